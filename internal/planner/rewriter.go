package planner

import "context"

// Rewriter reshapes a deterministic plan payload, typically by improving
// its natural-language content, while preserving the plan.v1 structure.
// Implementations receive and return raw payload JSON; the caller
// validates the result before trusting it.
// Version: 1.0
type Rewriter interface {
	// Rewrite returns a reworked payload, or an error when the rewrite
	// backend is unavailable or produced garbage.
	Rewrite(ctx context.Context, payload []byte) ([]byte, error)
}
