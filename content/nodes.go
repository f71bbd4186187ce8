package content

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

// Validation messages written to the error field.
const (
	MsgEmpty        = "Input content is empty or invalid"
	MsgTooLongFmt   = "Input content is too long (max %d characters)"
	MsgUnknownError = "Unknown error occurred"
)

// Validate rejects empty or whitespace-only content and content longer than
// maxLength characters. On success it trims the content and clears the
// error field. A maxLength below 1 means DefaultMaxLength.
func Validate(maxLength int) graph.Node {
	if maxLength < 1 {
		maxLength = DefaultMaxLength
	}
	return graph.NodeFunc(func(_ context.Context, s state.State) (state.Update, error) {
		content := s.GetString(FieldContent)

		if strings.TrimSpace(content) == "" {
			return state.Update{
				FieldCurrentStep: NodeValidate,
				FieldError:       MsgEmpty,
			}, nil
		}

		length := utf8.RuneCountInString(content)
		if length > maxLength {
			return state.Update{
				FieldCurrentStep: NodeValidate,
				FieldError:       fmt.Sprintf(MsgTooLongFmt, maxLength),
			}, nil
		}

		return state.Update{
			FieldMessages:    fmt.Sprintf("Input validated: %d characters", length),
			FieldCurrentStep: NodeValidate,
			FieldContent:     strings.TrimSpace(content),
			FieldError:       "",
		}, nil
	})
}

// Transform normalizes validated content: whitespace runs become one
// space, the first character is upper-cased and the rest lower-cased, and
// a period is added unless the text already ends in . ! or ?.
func Transform() graph.Node {
	return graph.NodeFunc(func(_ context.Context, s state.State) (state.Update, error) {
		processed := Normalize(s.GetString(FieldContent))

		return state.Update{
			FieldMessages:         fmt.Sprintf("Content processed: %d characters", utf8.RuneCountInString(processed)),
			FieldCurrentStep:      NodeProcess,
			FieldProcessedContent: processed,
			FieldError:            "",
		}, nil
	})
}

// Normalize applies the Transform rules to text.
func Normalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = capitalize(text)

	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	return text
}

func capitalize(text string) string {
	first, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	return cases.Title(language.Und).String(string(first)) +
		cases.Lower(language.Und).String(text[size:])
}

// Format writes the human-readable summary to the final result field.
func Format() graph.Node {
	return graph.NodeFunc(func(_ context.Context, s state.State) (state.Update, error) {
		processed := s.GetString(FieldProcessedContent)

		result := fmt.Sprintf(`📝 Processed Content:
%s

📊 Statistics:
- Original length: %d characters
- Processed length: %d characters
- Processing steps: %d`,
			processed,
			utf8.RuneCountInString(s.GetString(FieldContent)),
			utf8.RuneCountInString(processed),
			s.Len(FieldMessages),
		)

		return state.Update{
			FieldMessages:    "Output formatted successfully",
			FieldCurrentStep: NodeFormat,
			FieldFinalResult: result,
			FieldError:       "",
		}, nil
	})
}

// HandleError turns the error field into the final result.
func HandleError() graph.Node {
	return graph.NodeFunc(func(_ context.Context, s state.State) (state.Update, error) {
		msg := s.GetString(FieldError)
		if msg == "" {
			msg = MsgUnknownError
		}

		return state.Update{
			FieldMessages:    "Error handled: " + msg,
			FieldCurrentStep: NodeError,
			FieldFinalResult: "❌ Error: " + msg,
			FieldError:       msg,
		}, nil
	})
}

// ShouldProcess routes to LabelError when the error field is set and to
// LabelProcess otherwise.
func ShouldProcess() graph.Router {
	return graph.NewRouter([]string{LabelProcess, LabelError}, func(s state.State) string {
		if s.GetString(FieldError) != "" {
			return LabelError
		}
		return LabelProcess
	})
}
