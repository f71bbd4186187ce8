// Package state holds the shared State threaded through a graph run and the
// rule for folding a node's partial Update into it.
//
// Every field has a merge Strategy declared in a Schema:
//
//   - Replace: the update value overwrites the prior value. Fields the
//     schema does not declare are Replace.
//   - Append: the update value (a sequence, or a scalar treated as a
//     one-element sequence) is concatenated onto the prior sequence.
//
// State is immutable. Merge returns a new State and never modifies either
// argument, so a caller may keep every intermediate State of a run:
//
//	schema := state.MustSchema(
//	    state.AppendField("messages"),
//	    state.ReplaceField("error", ""),
//	)
//	s0 := state.New(schema)
//	s1, err := s0.Merge(state.Update{"messages": "validated", "error": ""})
//	// s0 still has no messages; s1 has ["validated"]
//
// A merge either applies the whole update or fails with ErrTypeMismatch and
// leaves nothing applied.
package state
