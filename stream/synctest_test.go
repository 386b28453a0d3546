//go:build go1.25

package stream_test

import (
	"context"
	"testing"
	"testing/synctest"

	"github.com/google/go-cmp/cmp"

	"lesiw.io/puppet/stream"
)

func TestMergeArrivalOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		so, wo := stream.Pipe[string](0)
		se, we := stream.Pipe[string](0)
		ro, _ := so.Reader()
		re, _ := se.Reader()
		s, w := stream.Pipe[tagged](0)

		done := make(chan error, 1)
		go func() {
			done <- stream.Merge(ctx, w, map[string]*stream.Reader[string]{
				"out": ro,
				"err": re,
			})
		}()

		steps := []struct {
			w *stream.Writer[string]
			v string
		}{
			{wo, "o1"}, {we, "e1"}, {wo, "o2"}, {we, "e2"}, {we, "e3"},
		}
		for _, st := range steps {
			if err := st.w.Send(ctx, st.v); err != nil {
				t.Fatal(err)
			}
			synctest.Wait()
		}
		_ = wo.Close()
		_ = we.Close()
		if err := <-done; err != nil {
			t.Fatalf("Merge() error = %v", err)
		}

		got, err := stream.Collect(ctx, s)
		if err != nil {
			t.Fatal(err)
		}
		want := []tagged{
			{"out", "o1"}, {"err", "e1"}, {"out", "o2"},
			{"err", "e2"}, {"err", "e3"},
		}
		if !cmp.Equal(want, got) {
			t.Errorf("Merge() mismatch (-want +got):\n%s",
				cmp.Diff(want, got))
		}
	})
}

func TestBoundedSendBlocksUntilRead(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		s, w := stream.Pipe[int](1)
		r, _ := s.Reader()
		if err := w.Send(ctx, 1); err != nil {
			t.Fatal(err)
		}

		sent := make(chan struct{})
		go func() {
			_ = w.Send(ctx, 2)
			close(sent)
		}()
		synctest.Wait()
		select {
		case <-sent:
			t.Fatal("Send() on full pipe returned before a read")
		default:
		}

		if _, err := r.Recv(ctx); err != nil {
			t.Fatal(err)
		}
		synctest.Wait()
		select {
		case <-sent:
		default:
			t.Fatal("Send() still blocked after a read")
		}
	})
}
