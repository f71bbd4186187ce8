// Package content is the reference workflow built on the graph engine: it
// validates a piece of text, normalizes it and formats a summary, or routes
// to an error handler when validation fails.
//
//	validate_input --process--> process_content --> format_output --> __end__
//	      \
//	       `--error--> handle_error --> __end__
//
// Validation failures are data, not run failures: they are written to the
// error field and the run completes through handle_error.
package content
