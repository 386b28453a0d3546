// Package stream provides single-consumer streams and the operators used to
// plumb a child process's standard streams.
//
// A [Stream] is the readable end of a [Pipe]. It has exactly one reader,
// acquired with [Stream.Reader]; a second acquisition fails with [ErrLocked].
// The writable end is a [Writer], which may be shared by several producers.
//
// Operators are blocking pumps meant to run in their own goroutine:
//   - [Decode] turns a byte stream into strictly validated UTF-8 text.
//   - [Tee] copies one stream into a fixed set of subscribers.
//   - [Merge] fans several streams into one, in arrival order, tagging each
//     item with its origin.
//   - [Zip] pairs two streams positionally.
package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

var (
	// ErrLocked is returned when a stream's reader was already acquired.
	ErrLocked = errors.New("stream: reader already acquired")

	// ErrClosed is returned when sending on a closed stream.
	ErrClosed = errors.New("stream: send on closed stream")

	// ErrCanceled is returned when sending to a stream whose reader gave up,
	// and when receiving from a reader after Close.
	ErrCanceled = errors.New("stream: reader canceled")
)

// Stream is the readable end of a pipe.
type Stream[T any] struct {
	mu       sync.Mutex
	items    []T
	limit    int
	locked   bool
	closed   bool
	err      error
	canceled error

	readable chan struct{}
	writable chan struct{}
}

// Pipe creates a stream and its writer.
//
// Sends block while limit items are queued and unread.
// A limit of zero or less never blocks.
func Pipe[T any](limit int) (*Stream[T], *Writer[T]) {
	s := &Stream[T]{
		limit:    limit,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
	return s, &Writer[T]{s}
}

// Reader acquires the stream's only reader.
func (s *Stream[T]) Reader() (*Reader[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil, ErrLocked
	}
	s.locked = true
	return &Reader[T]{s}, nil
}

// Locked reports whether the stream's reader has been acquired.
func (s *Stream[T]) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func notify(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

// Writer is the writable end of a pipe. It is safe for concurrent use.
type Writer[T any] struct {
	s *Stream[T]
}

// Send queues v for the reader.
//
// Send fails with the reader's cancel cause after the reader gave up,
// with [ErrClosed] after the writer was closed, or with ctx's error.
func (w *Writer[T]) Send(ctx context.Context, v T) error {
	s := w.s
	for {
		s.mu.Lock()
		switch {
		case s.canceled != nil:
			err := s.canceled
			s.mu.Unlock()
			notify(s.writable)
			return err
		case s.closed:
			s.mu.Unlock()
			notify(s.writable)
			return ErrClosed
		case s.limit <= 0 || len(s.items) < s.limit:
			s.items = append(s.items, v)
			room := s.limit > 0 && len(s.items) < s.limit
			s.mu.Unlock()
			notify(s.readable)
			if room {
				// Pass the wakeup on to any other blocked sender.
				notify(s.writable)
			}
			return nil
		}
		s.mu.Unlock()
		select {
		case <-s.writable:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close ends the stream. The reader sees [io.EOF] once queued items drain.
func (w *Writer[T]) Close() error {
	return w.CloseWithError(nil)
}

// CloseWithError ends the stream. The reader sees err once queued items
// drain, or [io.EOF] if err is nil. Only the first close has an effect.
func (w *Writer[T]) CloseWithError(err error) error {
	s := w.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed, s.err = true, err
	s.mu.Unlock()
	notify(s.readable)
	notify(s.writable)
	return nil
}

// Reader is the single consumer of a stream.
type Reader[T any] struct {
	s *Stream[T]
}

// Recv returns the next item.
// At the end of the stream it returns [io.EOF], or the error the writer
// closed the stream with.
func (r *Reader[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	s := r.s
	for {
		s.mu.Lock()
		if s.canceled != nil {
			s.mu.Unlock()
			return zero, ErrCanceled
		}
		if len(s.items) > 0 {
			v := s.items[0]
			s.items[0] = zero
			s.items = s.items[1:]
			s.mu.Unlock()
			notify(s.writable)
			return v, nil
		}
		if s.closed {
			err := s.err
			s.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return zero, err
		}
		s.mu.Unlock()
		select {
		case <-s.readable:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// All iterates over the stream until it ends.
// A clean end stops the iteration; any other error is yielded once, last.
func (r *Reader[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := r.Recv(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(v, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Close gives up on the stream. Queued items are dropped and senders fail
// with [ErrCanceled].
func (r *Reader[T]) Close() error {
	return r.CloseWithError(nil)
}

// CloseWithError gives up on the stream. Senders fail with err,
// or [ErrCanceled] if err is nil.
func (r *Reader[T]) CloseWithError(err error) error {
	if err == nil {
		err = ErrCanceled
	}
	s := r.s
	s.mu.Lock()
	if s.canceled == nil {
		s.canceled = err
		clear(s.items)
		s.items = nil
	}
	s.mu.Unlock()
	notify(s.writable)
	return nil
}

// Collect acquires the reader of s and drains it.
// It returns the items received and the error that ended the stream,
// or nil if the stream ended cleanly.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	r, err := s.Reader()
	if err != nil {
		return nil, err
	}
	var items []T
	for v, err := range r.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, v)
	}
	return items, nil
}
