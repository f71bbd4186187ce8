package config

// DefaultMaxSteps bounds a run when no limit is configured. The reference
// content topology finishes in at most three steps.
const DefaultMaxSteps = 50

// CheckpointConfig controls State persistence during graph execution.
//
//   - Store: name of the CheckpointStore to use (resolved via registry)
//   - Path: location for file and sqlite stores
//   - Interval: save after every N node executions (0 = disabled)
//   - Preserve: keep checkpoints after successful completion
type CheckpointConfig struct {
	Store    string `json:"store" yaml:"store"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Interval int    `json:"interval" yaml:"interval"`
	Preserve bool   `json:"preserve" yaml:"preserve"`
}

// DefaultCheckpointConfig returns checkpoint configuration with
// checkpointing disabled.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Store:    "memory",
		Interval: 0,
		Preserve: false,
	}
}

// Enabled reports whether checkpoints are written.
func (c CheckpointConfig) Enabled() bool {
	return c.Interval > 0
}

func (c *CheckpointConfig) Merge(source *CheckpointConfig) {
	if source.Store != "" {
		c.Store = source.Store
	}

	if source.Path != "" {
		c.Path = source.Path
	}

	if source.Interval > 0 {
		c.Interval = source.Interval
	}

	if source.Preserve {
		c.Preserve = source.Preserve
	}
}

// GraphConfig defines configuration for graph execution.
type GraphConfig struct {
	// Name identifies the graph in events, spans and checkpoints
	Name string `json:"name" yaml:"name"`

	// Observer names the observer implementation ("noop", "slog", ...)
	Observer string `json:"observer" yaml:"observer"`

	// MaxSteps bounds node invocations per run
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// Checkpoint configures State persistence and resume
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
}

// DefaultGraphConfig returns defaults for graph execution:
// slog observer, DefaultMaxSteps, checkpointing disabled.
func DefaultGraphConfig(name string) GraphConfig {
	return GraphConfig{
		Name:       name,
		Observer:   "slog",
		MaxSteps:   DefaultMaxSteps,
		Checkpoint: DefaultCheckpointConfig(),
	}
}

func (c *GraphConfig) Merge(source *GraphConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxSteps > 0 {
		c.MaxSteps = source.MaxSteps
	}

	c.Checkpoint.Merge(&source.Checkpoint)
}
