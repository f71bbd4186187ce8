package state_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

var testSchema = state.MustSchema(
	state.AppendField("messages"),
	state.ReplaceField("content", ""),
	state.ReplaceField("error", ""),
	state.ReplaceField("count", 0),
)

func TestNewSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields []state.Field
	}{
		{name: "empty name", fields: []state.Field{state.ReplaceField("", "")}},
		{name: "duplicate", fields: []state.Field{state.AppendField("log"), state.ReplaceField("log", "")}},
		{name: "unknown strategy", fields: []state.Field{{Name: "x", Strategy: state.Strategy(7)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := state.NewSchema(tt.fields...)
			assert.Error(t, err)
		})
	}
}

func TestMustSchema_Panics(t *testing.T) {
	assert.Panics(t, func() {
		state.MustSchema(state.AppendField("a"), state.AppendField("a"))
	})
}

func TestSchema_StrategyAndFields(t *testing.T) {
	assert.Equal(t, state.Append, testSchema.Strategy("messages"))
	assert.Equal(t, state.Replace, testSchema.Strategy("content"))
	assert.Equal(t, state.Replace, testSchema.Strategy("undeclared"))

	var nilSchema *state.Schema
	assert.Equal(t, state.Replace, nilSchema.Strategy("anything"))
	assert.Nil(t, nilSchema.Fields())

	names := make([]string, 0)
	for _, f := range testSchema.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"messages", "content", "error", "count"}, names)

	assert.Equal(t, "append", state.Append.String())
	assert.Equal(t, "replace", state.Replace.String())
}

func TestNew_ZeroValues(t *testing.T) {
	s := state.New(testSchema)

	assert.Equal(t, map[string]any{
		"messages": []any{},
		"content":  "",
		"error":    "",
		"count":    0,
	}, s.Data())
	assert.Same(t, testSchema, s.Schema())
}

func TestState_Accessors(t *testing.T) {
	s, err := state.New(testSchema).Merge(state.Update{
		"messages": []any{"one", 2},
		"content":  "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", s.GetString("content"))
	assert.Equal(t, "", s.GetString("count"))
	assert.Equal(t, []string{"one", "2"}, s.GetStrings("messages"))
	assert.Equal(t, 2, s.Len("messages"))
	assert.Equal(t, 0, s.Len("content"))
	assert.Equal(t, []string{"content", "count", "error", "messages"}, s.Keys())

	v, ok := s.Get("content")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestState_DataIsACopy(t *testing.T) {
	s, err := state.New(testSchema).Merge(state.Update{"messages": "a"})
	require.NoError(t, err)

	data := s.Data()
	data["messages"].([]any)[0] = "mutated"
	data["content"] = "mutated"

	assert.Equal(t, []string{"a"}, s.GetStrings("messages"))
	assert.Equal(t, "", s.GetString("content"))
}

func TestState_JSONAndRestore(t *testing.T) {
	s, err := state.New(testSchema).Merge(state.Update{
		"messages": []string{"a", "b"},
		"content":  "text",
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))

	restored := state.Restore(testSchema, data)
	assert.Equal(t, []string{"a", "b"}, restored.GetStrings("messages"))
	assert.Equal(t, "text", restored.GetString("content"))

	next, err := restored.Merge(state.Update{"messages": "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, next.GetStrings("messages"))
}

func TestRestore_MissingAppendFieldStartsEmpty(t *testing.T) {
	s := state.Restore(testSchema, map[string]any{"content": "x"})
	assert.Equal(t, 0, s.Len("messages"))
	assert.Equal(t, "x", s.GetString("content"))
}
