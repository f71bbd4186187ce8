package content

import "github.com/tailored-agentic-units/flowgraph/orchestrate/state"

// State fields.
const (
	FieldMessages         = "messages"
	FieldCurrentStep      = "current_step"
	FieldContent          = "content"
	FieldProcessedContent = "processed_content"
	FieldFinalResult      = "final_result"
	FieldError            = "error"
)

// Node names.
const (
	NodeValidate = "validate_input"
	NodeProcess  = "process_content"
	NodeFormat   = "format_output"
	NodeError    = "handle_error"
)

// Router labels of should_process.
const (
	RouterName   = "should_process"
	LabelProcess = "process"
	LabelError   = "error"
)

// Schema returns the merge strategies of the content State: messages
// accumulates, every other field is a replaced string.
func Schema() *state.Schema {
	return schema
}

var schema = state.MustSchema(
	state.AppendField(FieldMessages),
	state.ReplaceField(FieldCurrentStep, ""),
	state.ReplaceField(FieldContent, ""),
	state.ReplaceField(FieldProcessedContent, ""),
	state.ReplaceField(FieldFinalResult, ""),
	state.ReplaceField(FieldError, ""),
)
