package batch

import (
	"fmt"
	"sort"
	"strings"
)

// TaskResult is the value produced for one item.
type TaskResult[TItem, TResult any] struct {
	// Index is the 0-based position of the item in the input slice
	Index int

	Item  TItem
	Value TResult
}

// TaskError captures the failure of one item.
type TaskError[TItem any] struct {
	// Index is the 0-based position of the item in the input slice
	Index int

	Item TItem
	Err  error
}

// Result holds the outcome of a batch. Both slices are ordered by Index.
// Items skipped after a fail-fast cancellation appear in neither.
type Result[TItem, TResult any] struct {
	Results []TaskResult[TItem, TResult]
	Errors  []TaskError[TItem]
}

// Values returns the successful values in input order.
func (r Result[TItem, TResult]) Values() []TResult {
	out := make([]TResult, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Value
	}
	return out
}

// Error is returned when a batch fails: any failure in fail-fast mode, or
// every item failing otherwise. Messages group identical causes:
//
//	batch failed: item 5: connection refused
//	batch failed: 3 items failed with 2 error types: 'timeout' (2 items), 'bad input' (1 item)
type Error[TItem any] struct {
	Errors []TaskError[TItem]
}

func (e *Error[TItem]) Error() string {
	if len(e.Errors) == 0 {
		return "batch failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("batch failed: item %d: %v", e.Errors[0].Index, e.Errors[0].Err)
	}

	counts := make(map[string]int)
	for _, taskErr := range e.Errors {
		counts[taskErr.Err.Error()]++
	}

	type summary struct {
		msg   string
		count int
	}
	var summaries []summary
	for msg, count := range counts {
		summaries = append(summaries, summary{msg, count})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].count != summaries[j].count {
			return summaries[i].count > summaries[j].count
		}
		return summaries[i].msg < summaries[j].msg
	})

	parts := make([]string, len(summaries))
	for i, s := range summaries {
		if s.count == 1 {
			parts[i] = fmt.Sprintf("'%s' (1 item)", s.msg)
		} else {
			parts[i] = fmt.Sprintf("'%s' (%d items)", s.msg, s.count)
		}
	}

	return fmt.Sprintf("batch failed: %d items failed with %d error types: %s",
		len(e.Errors), len(counts), strings.Join(parts, ", "))
}

func (e *Error[TItem]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, taskErr := range e.Errors {
		errs[i] = taskErr.Err
	}
	return errs
}
