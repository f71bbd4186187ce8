package state

import (
	"fmt"
	"maps"
	"reflect"
)

// Update is a partial State produced by one node invocation. Only the
// fields the node changes are present.
type Update map[string]any

// Merge folds update into s. See Merge.
func (s State) Merge(update Update) (State, error) {
	return Merge(s, update)
}

// Merge returns a new State combining current with update:
//
//   - Append fields get the update's value(s) concatenated in order,
//     duplicates retained. A scalar counts as a one-element sequence.
//   - Replace fields (and undeclared fields) take the update's value.
//   - Fields absent from update are carried over unchanged.
//
// Neither argument is modified. When any field fails to merge, no field is
// applied and the error wraps ErrTypeMismatch.
func Merge(current State, update Update) (State, error) {
	schema := current.schema
	next := make(map[string]any, len(current.data)+len(update))
	maps.Copy(next, current.data)

	for key, value := range update {
		f, declared := schema.Field(key)

		if declared && f.Strategy == Append {
			add, err := toSequence(value)
			if err != nil {
				return current, fmt.Errorf("%w: field %s: %v", ErrTypeMismatch, key, err)
			}

			prior, err := priorSequence(current.data[key])
			if err != nil {
				return current, fmt.Errorf("%w: field %s: %v", ErrTypeMismatch, key, err)
			}

			joined := make([]any, 0, len(prior)+len(add))
			joined = append(joined, prior...)
			joined = append(joined, add...)
			next[key] = joined
			continue
		}

		if declared {
			if want := f.zeroType(); want != nil && reflect.TypeOf(value) != want {
				return current, fmt.Errorf("%w: field %s expects %s, got %T", ErrTypeMismatch, key, want, value)
			}
		}
		next[key] = value
	}

	return State{data: next, schema: schema}, nil
}

func priorSequence(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("stored value %T is not a sequence", v)
	}
	return seq, nil
}

// toSequence converts an append value into its elements. Slices and arrays
// contribute their elements, scalars contribute themselves, anything else
// is rejected.
func toSequence(v any) ([]any, error) {
	if v == nil {
		return nil, fmt.Errorf("nil is neither a sequence nor a scalar")
	}

	if seq, ok := v.([]any); ok {
		out := make([]any, len(seq))
		copy(out, seq)
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("%T is neither a sequence nor a scalar", v)
	}
}
