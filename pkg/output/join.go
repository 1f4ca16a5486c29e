package output

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Apply derives a new output by calling fn with the resolved value of o. If o
// fails, the derived output fails with the same error and fn is not called.
func Apply[T, U any](ctx context.Context, o *Output[T], fn func(context.Context, T) (U, error)) *Output[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		v, err := o.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(ctx, v)
	})
}

// All waits for every output to resolve and collects their values in the
// order given. The first failure fails the result immediately; the remaining
// outputs are no longer awaited.
func All[T any](ctx context.Context, outs ...*Output[T]) *Output[[]T] {
	return Go(ctx, func(ctx context.Context) ([]T, error) {
		return AwaitAll(ctx, outs...)
	})
}

// AwaitAll is the blocking form of All.
func AwaitAll[T any](ctx context.Context, outs ...*Output[T]) ([]T, error) {
	vals := make([]T, len(outs))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range outs {
		g.Go(func() error {
			v, err := o.Await(gctx)
			if err != nil {
				return err
			}
			vals[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vals, nil
}
