package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// All runs mapFunc for every input in parallel and waits for all of them. The
// first error cancels the context passed to the remaining calls and is
// returned, in which case no results are returned at all. Every launched call
// is awaited before All returns. Results keep the order of the input.
//
// limit <= 0 means no limit.
func All[E, D any](ctx context.Context, limit int, input []E, mapFunc func(context.Context, E) (D, error)) ([]D, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	ret := make([]D, len(input))
	for idx, e := range input {
		g.Go(func() error {
			d, err := mapFunc(gctx, e)
			if err != nil {
				return err
			}
			ret[idx] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}
