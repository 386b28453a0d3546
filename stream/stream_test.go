package stream_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"lesiw.io/puppet/stream"
)

func send[T any](t *testing.T, w *stream.Writer[T], items ...T) {
	t.Helper()
	for _, v := range items {
		if err := w.Send(t.Context(), v); err != nil {
			t.Fatalf("Send(%v) error = %v", v, err)
		}
	}
}

func TestPipeOrder(t *testing.T) {
	s, w := stream.Pipe[string](0)
	send(t, w, "a", "b", "c")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := stream.Collect(t.Context(), s)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if want := []string{"a", "b", "c"}; !cmp.Equal(want, got) {
		t.Errorf("Collect() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestPipeSingleReader(t *testing.T) {
	s, _ := stream.Pipe[int](0)
	if _, err := s.Reader(); err != nil {
		t.Fatalf("first Reader() error = %v", err)
	}
	if !s.Locked() {
		t.Error("Locked() = false after Reader(), want true")
	}
	if _, err := s.Reader(); !errors.Is(err, stream.ErrLocked) {
		t.Errorf("second Reader() error = %v, want ErrLocked", err)
	}
}

func TestPipeCloseWithError(t *testing.T) {
	errBoom := errors.New("boom")
	s, w := stream.Pipe[int](0)
	send(t, w, 1)
	_ = w.CloseWithError(errBoom)
	_ = w.CloseWithError(errors.New("ignored"))

	got, err := stream.Collect(t.Context(), s)
	if !errors.Is(err, errBoom) {
		t.Errorf("Collect() error = %v, want %v", err, errBoom)
	}
	if want := []int{1}; !cmp.Equal(want, got) {
		t.Errorf("Collect() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestPipeSendAfterClose(t *testing.T) {
	_, w := stream.Pipe[int](0)
	_ = w.Close()
	if err := w.Send(t.Context(), 1); !errors.Is(err, stream.ErrClosed) {
		t.Errorf("Send() after Close() error = %v, want ErrClosed", err)
	}
}

func TestPipeBackpressure(t *testing.T) {
	s, w := stream.Pipe[int](1)
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	send(t, w, 1)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if err := w.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send() on full pipe error = %v, want DeadlineExceeded", err)
	}

	if v, err := r.Recv(t.Context()); err != nil {
		t.Fatalf("Recv() error = %v", err)
	} else if v != 1 {
		t.Errorf("Recv() = %d, want 1", v)
	}
	send(t, w, 2)
	if v, err := r.Recv(t.Context()); err != nil {
		t.Fatalf("Recv() error = %v", err)
	} else if v != 2 {
		t.Errorf("Recv() = %d, want 2", v)
	}
}

func TestPipeReaderCancel(t *testing.T) {
	s, w := stream.Pipe[int](0)
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	send(t, w, 1, 2)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Send(t.Context(), 3); !errors.Is(err, stream.ErrCanceled) {
		t.Errorf("Send() after cancel error = %v, want ErrCanceled", err)
	}
	if _, err := r.Recv(t.Context()); !errors.Is(err, stream.ErrCanceled) {
		t.Errorf("Recv() after cancel error = %v, want ErrCanceled", err)
	}
}

func TestPipeReaderCancelCause(t *testing.T) {
	errGone := errors.New("gone")
	s, w := stream.Pipe[int](0)
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	_ = r.CloseWithError(errGone)
	if err := w.Send(t.Context(), 1); !errors.Is(err, errGone) {
		t.Errorf("Send() error = %v, want %v", err, errGone)
	}
}

func TestPipeCancelWakesBlockedSender(t *testing.T) {
	s, w := stream.Pipe[int](1)
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	send(t, w, 1)

	done := make(chan error, 1)
	go func() { done <- w.Send(context.Background(), 2) }()
	_ = r.Close()

	select {
	case err := <-done:
		if !errors.Is(err, stream.ErrCanceled) {
			t.Errorf("Send() error = %v, want ErrCanceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("blocked Send() did not return after cancel")
	}
}

func TestPipeConcurrentSenders(t *testing.T) {
	const senders, each = 4, 250
	s, w := stream.Pipe[int](1)

	var wg sync.WaitGroup
	for range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				if err := w.Send(context.Background(), i); err != nil {
					t.Errorf("Send() error = %v", err)
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		_ = w.Close()
	}()

	got, err := stream.Collect(t.Context(), s)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got, want := len(got), senders*each; got != want {
		t.Errorf("received %d items, want %d", got, want)
	}
}

func TestReaderAllStopsEarly(t *testing.T) {
	s, w := stream.Pipe[int](0)
	send(t, w, 1, 2, 3)
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for v, err := range r.All(t.Context()) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	if want := []int{1, 2}; !cmp.Equal(want, got) {
		t.Errorf("All() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
	if v, err := r.Recv(t.Context()); err != nil || v != 3 {
		t.Errorf("Recv() = %d, %v, want 3, <nil>", v, err)
	}
}

func TestRecvEOF(t *testing.T) {
	s, w := stream.Pipe[int](0)
	_ = w.Close()
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, err := r.Recv(t.Context()); err != io.EOF {
			t.Errorf("Recv() error = %v, want io.EOF", err)
		}
	}
}
