package state

import (
	"fmt"
	"reflect"
)

// Strategy selects how an update value combines with the prior field value.
type Strategy int

const (
	// Replace overwrites the prior value.
	Replace Strategy = iota
	// Append concatenates onto the prior ordered sequence.
	Append
)

func (s Strategy) String() string {
	switch s {
	case Replace:
		return "replace"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Field declares one State field.
//
// Zero is the value a fresh State holds for the field. For Replace fields a
// non-nil Zero also fixes the field's type: updates carrying a value of a
// different type are rejected. Append fields always start as an empty
// sequence and ignore Zero.
type Field struct {
	Name     string
	Strategy Strategy
	Zero     any
}

// ReplaceField declares a Replace field whose fresh value and type come from zero.
func ReplaceField(name string, zero any) Field {
	return Field{Name: name, Strategy: Replace, Zero: zero}
}

// AppendField declares an Append field starting as an empty sequence.
func AppendField(name string) Field {
	return Field{Name: name, Strategy: Append}
}

// Schema is the per-field merge strategy table. It is immutable after
// NewSchema returns and safe to share between runs.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema builds a Schema from field declarations.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make(map[string]Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field name cannot be empty")
		}
		if _, exists := s.fields[f.Name]; exists {
			return nil, fmt.Errorf("field %s declared twice", f.Name)
		}
		if f.Strategy != Replace && f.Strategy != Append {
			return nil, fmt.Errorf("field %s has unknown %s", f.Name, f.Strategy)
		}
		if f.Strategy == Append {
			f.Zero = nil
		}

		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}

	return s, nil
}

// MustSchema is NewSchema that panics on invalid declarations. Intended for
// package-level schema variables.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Strategy returns the declared strategy for name, Replace when undeclared.
// A nil Schema declares nothing.
func (s *Schema) Strategy(name string) Strategy {
	if s == nil {
		return Replace
	}
	return s.fields[name].Strategy
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns the declarations in declaration order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

func (s *Schema) zeroValues() map[string]any {
	data := make(map[string]any)
	if s == nil {
		return data
	}
	for _, name := range s.order {
		f := s.fields[name]
		switch {
		case f.Strategy == Append:
			data[name] = []any{}
		case f.Zero != nil:
			data[name] = f.Zero
		}
	}
	return data
}

func (f Field) zeroType() reflect.Type {
	if f.Zero == nil {
		return nil
	}
	return reflect.TypeOf(f.Zero)
}
