package traverse

import (
	"context"

	"github.com/agentic-research/hydronet/internal/network"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one start segment in a batch. Err is set instead
// of Result when that start could not be navigated.
type Outcome struct {
	Start  int64
	Result *Result
	Err    error
}

// TraverseMany navigates from every start concurrently. A failing start is
// recorded on its Outcome and does not stop the others; only ctx
// cancellation aborts the batch. Outcomes are returned in input order.
func TraverseMany(ctx context.Context, n *network.Network, starts []int64, mode Mode, opts ...Option) ([]Outcome, error) {
	o := defaults()
	for _, fn := range opts {
		fn(&o)
	}

	out := make([]Outcome, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, start := range starts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Navigate(n, start, mode, opts...)
			out[i] = Outcome{Start: start, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
