package stream

import (
	"context"
	"io"
	"slices"
)

// Tee copies every item from src to each writer in dst, in order.
//
// The subscribers are fixed for the lifetime of the call. Each item is sent
// to every subscriber before the next is received, so a bounded subscriber
// that is not read stalls the others. A subscriber whose reader gave up is
// dropped; the remaining subscribers are unaffected.
//
// When src ends, every subscriber is closed with the same terminal error,
// which Tee returns (nil for a clean end).
func Tee[T any](ctx context.Context, src *Reader[T], dst ...*Writer[T]) error {
	live := slices.Clone(dst)
	for {
		v, err := src.Recv(ctx)
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			for _, w := range dst {
				_ = w.CloseWithError(err)
			}
			return err
		}
		for i := 0; i < len(live); {
			if err := live[i].Send(ctx, v); err != nil {
				if ctx.Err() != nil {
					for _, w := range dst {
						_ = w.CloseWithError(ctx.Err())
					}
					return ctx.Err()
				}
				live = slices.Delete(live, i, i+1)
				continue
			}
			i++
		}
	}
}
