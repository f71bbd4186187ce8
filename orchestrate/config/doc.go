// Package config provides configuration structures for orchestration components.
//
// Configuration is used only during initialization and then transformed into
// domain objects. Observer and checkpoint-store fields are names resolved at
// runtime through registries, which keeps the structures serializable:
//
//	graph:
//	  name: content
//	  observer: slog
//	  max_steps: 50
//	  checkpoint:
//	    store: sqlite
//	    path: ./checkpoints.db
//	    interval: 1
//	    preserve: false
//
// Each structure has a Default constructor and a Merge method that copies
// the non-zero values of a loaded structure over the defaults.
package config
