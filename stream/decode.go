package stream

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DecodeError reports an invalid UTF-8 sequence in a decoded stream.
type DecodeError struct {
	// Offset is the number of bytes decoded before the invalid sequence.
	Offset int64

	// Err is the underlying validation error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: invalid UTF-8 at byte %d: %v",
		e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeSize bounds the text carried by a single decoded item.
const decodeSize = 32 * 1024

// Decode reads UTF-8 text from r and sends it to w, one item per read.
//
// Decode does not close w. It returns nil when r reaches [io.EOF],
// a [*DecodeError] at the first invalid byte sequence, or any other error
// returned by r or by w.
// Text preceding an invalid sequence is sent before the error is returned.
// A failing r ends the text like [io.EOF] does, so a sequence cut short by
// the failure is reported as a [*DecodeError] rather than dropped.
func Decode(ctx context.Context, r io.Reader, w *Writer[string]) error {
	src := &errReader{r: r}
	tr := transform.NewReader(src, encoding.UTF8Validator)
	buf := make([]byte, decodeSize)
	var off int64
	for {
		n, err := tr.Read(buf)
		if n > 0 {
			if err := w.Send(ctx, string(buf[:n])); err != nil {
				return err
			}
			off += int64(n)
		}
		switch {
		case err == nil:
		case err == io.EOF:
			return src.err
		default:
			return &DecodeError{Offset: off, Err: err}
		}
	}
}

// errReader ends its reader at the first error, keeping the error aside.
// The transformer sees [io.EOF] instead, which makes it validate whatever
// input it still holds.
type errReader struct {
	r   io.Reader
	err error
}

func (e *errReader) Read(p []byte) (int, error) {
	if e.err != nil {
		return 0, io.EOF
	}
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		e.err, err = err, io.EOF
	}
	return n, err
}
