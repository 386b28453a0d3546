package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Tagged is an item labeled with the stream it came from.
type Tagged[K comparable, T any] struct {
	Tag   K
	Value T
}

// Merge forwards items from every source to dst as soon as they arrive,
// tagging each with its source's key.
//
// Items from one source keep their relative order; items from different
// sources interleave in arrival order. Nothing is dropped or truncated.
// Once every source has ended, dst is closed with the sources' faults joined,
// and Merge returns them (nil if all ended cleanly).
//
// If dst's reader gives up, the sources are still drained so that their
// producers never stall.
func Merge[K comparable, T any](
	ctx context.Context, dst *Writer[Tagged[K, T]], srcs map[K]*Reader[T],
) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for tag, src := range srcs {
		g.Go(func() error {
			err := forward(ctx, dst, tag, src)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return err
		})
	}
	_ = g.Wait() // Faults are collected from every source, not just the first.
	err := errors.Join(errs...)
	_ = dst.CloseWithError(err)
	return err
}

func forward[K comparable, T any](
	ctx context.Context, dst *Writer[Tagged[K, T]], tag K, src *Reader[T],
) error {
	discard := false
	for {
		v, err := src.Recv(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if discard {
			continue
		}
		if err := dst.Send(ctx, Tagged[K, T]{tag, v}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			discard = true
		}
	}
}
