package pipeline

import "errors"

// ErrCheckpointingDisabled is returned by checkpoint operations when the
// graph config has no checkpoint interval.
var ErrCheckpointingDisabled = errors.New("checkpointing is disabled")
