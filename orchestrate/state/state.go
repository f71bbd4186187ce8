package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// State is the immutable field mapping visible to nodes and routers.
//
// The zero State has no schema and no fields; use New to start from a
// schema's zero values.
type State struct {
	data   map[string]any
	schema *Schema
}

// New creates a State holding the schema's zero values: an empty sequence
// for every Append field and the declared Zero for every Replace field.
func New(schema *Schema) State {
	return State{
		data:   schema.zeroValues(),
		schema: schema,
	}
}

// Restore rebuilds a State from previously captured data, such as a
// checkpoint. Values are taken as-is; Append fields missing from data start
// empty. Sequence values are normalized to []any.
func Restore(schema *Schema, data map[string]any) State {
	s := New(schema)
	for k, v := range data {
		if schema.Strategy(k) == Append {
			if seq, err := toSequence(v); err == nil {
				v = seq
			}
		}
		s.data[k] = v
	}
	return s
}

// Schema returns the schema the State was created with.
func (s State) Schema() *Schema {
	return s.schema
}

// Get retrieves a value by key. Sequence values are returned as the shared
// backing slice; callers must not modify them.
func (s State) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetString returns the value for key when it is a string, "" otherwise.
func (s State) GetString(key string) string {
	v, _ := s.data[key].(string)
	return v
}

// GetStrings returns the string elements of an Append field, formatting
// non-string elements with fmt.Sprint.
func (s State) GetStrings(key string) []string {
	seq, _ := s.data[key].([]any)
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		if str, ok := item.(string); ok {
			out = append(out, str)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// Len returns the length of the sequence stored under key, 0 when the
// field is absent or not a sequence.
func (s State) Len(key string) int {
	seq, _ := s.data[key].([]any)
	return len(seq)
}

// Keys returns the field names present in the State, sorted.
func (s State) Keys() []string {
	keys := slices.Collect(maps.Keys(s.data))
	slices.Sort(keys)
	return keys
}

// Data returns a copy of the State's fields. Sequences are copied so the
// result can be modified freely.
func (s State) Data() map[string]any {
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		if seq, ok := v.([]any); ok {
			v = slices.Clone(seq)
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the State's fields as a JSON object.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Data())
}
