package fetcher

import (
	"context"

	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/transport"
)

// ThreadBudget bounds a thread walk by total requests and total bytes
// rather than by reply depth alone, so a thread engineered to be wide
// rather than deep can't exhaust the same resources a deep one would.
type ThreadBudget struct {
	MaxRequests int
	MaxBytes    int64
}

// DefaultThreadBudget matches the transport's own single-response cap
// multiplied out across a bounded number of hops.
var DefaultThreadBudget = ThreadBudget{MaxRequests: 50, MaxBytes: 20 << 20}

// WalkThread follows a chain of "inReplyTo" references starting from
// root, stopping when the budget is exhausted, a reference is missing,
// or a cycle is detected. It returns the walked ancestors nearest-first.
func WalkThread(ctx context.Context, agent *transport.Agent, root *Result, budget ThreadBudget, opts Options) ([]*Result, error) {
	const op = "fetcher.WalkThread"

	var ancestors []*Result
	seen := map[string]bool{root.ID: true}
	requests := 0
	var bytesSpent int64

	current := root
	for requests < budget.MaxRequests && bytesSpent < budget.MaxBytes {
		parentURI, _ := current.Raw["inReplyTo"].(string)
		if parentURI == "" {
			break
		}
		if seen[parentURI] {
			return ancestors, ferr.New(ferr.TypeConfusion, op, errCycle)
		}
		seen[parentURI] = true

		requests++
		parent, err := FetchObject(ctx, agent, parentURI, opts)
		if err != nil {
			return ancestors, err
		}
		bytesSpent += estimateSize(parent.Raw)
		ancestors = append(ancestors, parent)
		current = parent
	}

	return ancestors, nil
}

var errCycle = threadCycleError{}

type threadCycleError struct{}

func (threadCycleError) Error() string { return "thread walk detected a reference cycle" }

// estimateSize is a rough per-document byte estimate for budget
// accounting; it doesn't need to be exact, only monotonic with
// document size.
func estimateSize(raw map[string]any) int64 {
	n := int64(0)
	for k, v := range raw {
		n += int64(len(k)) + estimateValueSize(v)
	}
	return n
}

func estimateValueSize(v any) int64 {
	switch v := v.(type) {
	case string:
		return int64(len(v))
	case map[string]any:
		return estimateSize(v)
	case []any:
		var n int64
		for _, e := range v {
			n += estimateValueSize(e)
		}
		return n
	default:
		return 8
	}
}
