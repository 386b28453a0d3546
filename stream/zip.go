package stream

import (
	"context"
	"errors"
	"io"
)

// Pair holds the items found at the same position in two streams.
// HasA and HasB report whether each side had an item at that position;
// a missing item is left as its zero value.
type Pair[A, B any] struct {
	A    A
	B    B
	HasA bool
	HasB bool
}

// Zip pairs items from a and b by position and sends each pair to dst.
//
// Zip does not reflect the timing of the two streams: it waits for one item
// from each side per step. When one side ends first, the remaining items of
// the other are paired with an absent marker, so max(len(a), len(b)) pairs
// are sent. Once both sides end, dst is closed with their faults joined,
// and Zip returns them.
func Zip[A, B any](
	ctx context.Context, dst *Writer[Pair[A, B]], a *Reader[A], b *Reader[B],
) error {
	var (
		errs         []error
		aDone, bDone bool
	)
	for {
		var p Pair[A, B]
		if !aDone {
			v, err := a.Recv(ctx)
			switch {
			case err == nil:
				p.A, p.HasA = v, true
			case err == io.EOF:
				aDone = true
			default:
				aDone = true
				errs = append(errs, err)
			}
		}
		if !bDone {
			v, err := b.Recv(ctx)
			switch {
			case err == nil:
				p.B, p.HasB = v, true
			case err == io.EOF:
				bDone = true
			default:
				bDone = true
				errs = append(errs, err)
			}
		}
		if !p.HasA && !p.HasB {
			break
		}
		if err := dst.Send(ctx, p); err != nil {
			errs = append(errs, err)
			break
		}
	}
	err := errors.Join(errs...)
	_ = dst.CloseWithError(err)
	return err
}
