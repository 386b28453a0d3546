package puppet

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"lesiw.io/puppet/stream"
)

// Input is the standard input of a [Process].
//
// Writes are queued in order and forwarded to the command once it starts.
// Input accepts writes before [Process.Start]; closing it before the process
// starts still delivers everything written first.
//
// The queue is unbounded: writes never block.
type Input struct {
	s *stream.Stream[[]byte]
	w *stream.Writer[[]byte]

	mu     sync.Mutex
	holder *InputWriter
}

func newInput() *Input {
	in := new(Input)
	in.s, in.w = stream.Pipe[[]byte](0)
	return in
}

// Write queues a copy of p.
// It fails with [ErrLocked] while an [InputWriter] holds the input,
// and with [ErrClosed] once the input is closed.
func (in *Input) Write(p []byte) (int, error) {
	if err := in.check(nil); err != nil {
		return 0, err
	}
	return in.send(bytes.Clone(p))
}

// WriteString queues s encoded as UTF-8.
func (in *Input) WriteString(s string) (int, error) {
	if err := in.check(nil); err != nil {
		return 0, err
	}
	return in.send([]byte(s))
}

// Close closes the input. Queued writes are still delivered.
// Closing an input twice is not an error.
func (in *Input) Close() error {
	if err := in.check(nil); err != nil {
		return err
	}
	return in.w.Close()
}

// Acquire takes exclusive ownership of the input until the returned
// writer is released.
//
// While the input is held, it is not closed automatically when the
// process completes: closing it is up to the holder.
func (in *Input) Acquire() (*InputWriter, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.holder != nil {
		return nil, ErrLocked
	}
	in.holder = &InputWriter{in: in}
	return in.holder, nil
}

func (in *Input) check(w *InputWriter) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.holder != w {
		return ErrLocked
	}
	return nil
}

func (in *Input) send(b []byte) (int, error) {
	if err := in.w.Send(context.Background(), b); err != nil {
		if errors.Is(err, stream.ErrClosed) {
			err = ErrClosed
		}
		return 0, err
	}
	return len(b), nil
}

// autoClose closes the input unless it is held.
// It reports whether the input was closed.
func (in *Input) autoClose() bool {
	in.mu.Lock()
	held := in.holder != nil
	in.mu.Unlock()
	if held {
		return false
	}
	_ = in.w.Close()
	return true
}

// InputWriter is exclusive ownership of an [Input].
type InputWriter struct {
	in *Input
}

// Write queues a copy of p.
func (w *InputWriter) Write(p []byte) (int, error) {
	if err := w.in.check(w); err != nil {
		return 0, err
	}
	return w.in.send(bytes.Clone(p))
}

// WriteString queues s encoded as UTF-8.
func (w *InputWriter) WriteString(s string) (int, error) {
	if err := w.in.check(w); err != nil {
		return 0, err
	}
	return w.in.send([]byte(s))
}

// Close closes the input. The writer keeps ownership until released.
func (w *InputWriter) Close() error {
	if err := w.in.check(w); err != nil {
		return err
	}
	return w.in.w.Close()
}

// Release gives up ownership. Later calls on w fail with [ErrLocked].
func (w *InputWriter) Release() {
	w.in.mu.Lock()
	defer w.in.mu.Unlock()
	if w.in.holder == w {
		w.in.holder = nil
	}
}
