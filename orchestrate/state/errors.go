package state

import "errors"

// ErrTypeMismatch reports an update value whose type conflicts with the
// field's declaration.
var ErrTypeMismatch = errors.New("type mismatch")
