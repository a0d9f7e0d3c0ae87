package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// readAll runs independent store reads at the same time and returns their
// values in argument order. The first failing read cancels the others.
func readAll[T any](ctx context.Context, reads ...func(context.Context) (T, error)) ([]T, error) {
	g, gctx := errgroup.WithContext(ctx)
	values := make([]T, len(reads))

	for i, read := range reads {
		g.Go(func() error {
			v, err := read(gctx)
			if err != nil {
				return fmt.Errorf("read %d of %d: %w", i+1, len(reads), err)
			}

			values[i] = v

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return values, nil
}

// readPair is readAll for two reads of different types, such as the quote
// list and the last sync time.
func readPair[A, B any](
	ctx context.Context,
	readA func(context.Context) (A, error),
	readB func(context.Context) (B, error),
) (A, B, error) {
	var (
		a A
		b B
	)

	_, err := readAll(ctx,
		func(ctx context.Context) (struct{}, error) {
			v, err := readA(ctx)
			a = v

			return struct{}{}, err
		},
		func(ctx context.Context) (struct{}, error) {
			v, err := readB(ctx)
			b = v

			return struct{}{}, err
		},
	)
	if err != nil {
		var (
			zeroA A
			zeroB B
		)

		return zeroA, zeroB, err
	}

	return a, b, nil
}
