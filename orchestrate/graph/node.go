package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

// Node is a named transformation step. Apply must be deterministic: given
// the same State it returns the same Update. A node that cannot produce an
// update returns an error and no update; the run then fails and nothing the
// node returned is merged.
type Node interface {
	Apply(ctx context.Context, s state.State) (state.Update, error)
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(ctx context.Context, s state.State) (state.Update, error)

func (f NodeFunc) Apply(ctx context.Context, s state.State) (state.Update, error) {
	return f(ctx, s)
}

// WithTimeout scopes node with its own deadline. Expiry is reported as a node
// failure even when the node itself returns an update.
func WithTimeout(node Node, timeout time.Duration) Node {
	return NodeFunc(func(ctx context.Context, s state.State) (state.Update, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		update, err := node.Apply(ctx, s)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("node exceeded %s: %w", timeout, ctxErr)
		}
		if err != nil {
			return nil, err
		}
		return update, nil
	})
}
