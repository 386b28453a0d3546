package stream_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lesiw.io/puppet/stream"
)

func source[T any](t *testing.T, items ...T) *stream.Reader[T] {
	t.Helper()
	s, w := stream.Pipe[T](0)
	send(t, w, items...)
	_ = w.Close()
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestTee(t *testing.T) {
	src := source(t, "a", "b", "c")
	s1, w1 := stream.Pipe[string](0)
	s2, w2 := stream.Pipe[string](0)

	if err := stream.Tee(t.Context(), src, w1, w2); err != nil {
		t.Fatalf("Tee() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, s := range []*stream.Stream[string]{s1, s2} {
		got, err := stream.Collect(t.Context(), s)
		if err != nil {
			t.Errorf("branch %d: Collect() error = %v", i, err)
		}
		if !cmp.Equal(want, got) {
			t.Errorf("branch %d mismatch (-want +got):\n%s",
				i, cmp.Diff(want, got))
		}
	}
}

func TestTeeDropsCanceledBranch(t *testing.T) {
	src := source(t, 1, 2, 3)
	s1, w1 := stream.Pipe[int](0)
	s2, w2 := stream.Pipe[int](0)
	r1, err := s1.Reader()
	if err != nil {
		t.Fatal(err)
	}
	_ = r1.Close()

	if err := stream.Tee(t.Context(), src, w1, w2); err != nil {
		t.Fatalf("Tee() error = %v", err)
	}
	got, err := stream.Collect(t.Context(), s2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3}; !cmp.Equal(want, got) {
		t.Errorf("live branch mismatch (-want +got):\n%s",
			cmp.Diff(want, got))
	}
}

func TestTeePropagatesError(t *testing.T) {
	errSrc := errors.New("source failed")
	s, w := stream.Pipe[int](0)
	send(t, w, 1)
	_ = w.CloseWithError(errSrc)
	src, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	b1, w1 := stream.Pipe[int](0)
	b2, w2 := stream.Pipe[int](0)

	if err := stream.Tee(t.Context(), src, w1, w2); !errors.Is(err, errSrc) {
		t.Errorf("Tee() error = %v, want %v", err, errSrc)
	}
	for i, b := range []*stream.Stream[int]{b1, b2} {
		got, err := stream.Collect(t.Context(), b)
		if !errors.Is(err, errSrc) {
			t.Errorf("branch %d: error = %v, want %v", i, err, errSrc)
		}
		if want := []int{1}; !cmp.Equal(want, got) {
			t.Errorf("branch %d mismatch (-want +got):\n%s",
				i, cmp.Diff(want, got))
		}
	}
}

type tagged = stream.Tagged[string, string]

func TestMerge(t *testing.T) {
	srcs := map[string]*stream.Reader[string]{
		"out": source(t, "o1", "o2", "o3"),
		"err": source(t, "e1"),
	}
	s, w := stream.Pipe[tagged](0)
	if err := stream.Merge(t.Context(), w, srcs); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	items, err := stream.Collect(t.Context(), s)
	if err != nil {
		t.Fatal(err)
	}

	got := make(map[string][]string)
	for _, it := range items {
		got[it.Tag] = append(got[it.Tag], it.Value)
	}
	want := map[string][]string{
		"out": {"o1", "o2", "o3"},
		"err": {"e1"},
	}
	if !cmp.Equal(want, got) {
		t.Errorf("Merge() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestMergeJoinsFaults(t *testing.T) {
	errA, errB := errors.New("a failed"), errors.New("b failed")
	sa, wa := stream.Pipe[string](0)
	sb, wb := stream.Pipe[string](0)
	send(t, wa, "x")
	_ = wa.CloseWithError(errA)
	_ = wb.CloseWithError(errB)
	ra, _ := sa.Reader()
	rb, _ := sb.Reader()

	s, w := stream.Pipe[tagged](0)
	err := stream.Merge(t.Context(), w,
		map[string]*stream.Reader[string]{"a": ra, "b": rb})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Merge() error = %v, want both faults", err)
	}
	items, err := stream.Collect(t.Context(), s)
	if !errors.Is(err, errA) {
		t.Errorf("merged stream error = %v, want %v", err, errA)
	}
	if len(items) != 1 || items[0].Value != "x" {
		t.Errorf("merged items = %v, want [{a x}]", items)
	}
}

func TestMergeDrainsAfterCancel(t *testing.T) {
	src := source(t, strings.Split("abcdefgh", "")...)
	s, w := stream.Pipe[tagged](1)
	r, err := s.Reader()
	if err != nil {
		t.Fatal(err)
	}
	_ = r.Close()

	err = stream.Merge(t.Context(), w,
		map[string]*stream.Reader[string]{"x": src})
	if err != nil {
		t.Errorf("Merge() error = %v, want <nil>", err)
	}
	if _, err := src.Recv(t.Context()); err == nil {
		t.Error("source not drained")
	}
}

func TestZipPads(t *testing.T) {
	a := source(t, "a1", "a2", "a3")
	b := source(t, 1)
	s, w := stream.Pipe[stream.Pair[string, int]](0)

	if err := stream.Zip(t.Context(), w, a, b); err != nil {
		t.Fatalf("Zip() error = %v", err)
	}
	got, err := stream.Collect(t.Context(), s)
	if err != nil {
		t.Fatal(err)
	}
	want := []stream.Pair[string, int]{
		{A: "a1", B: 1, HasA: true, HasB: true},
		{A: "a2", HasA: true},
		{A: "a3", HasA: true},
	}
	if !cmp.Equal(want, got) {
		t.Errorf("Zip() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestZipEmpty(t *testing.T) {
	s, w := stream.Pipe[stream.Pair[int, int]](0)
	err := stream.Zip(t.Context(), w, source[int](t), source[int](t))
	if err != nil {
		t.Fatalf("Zip() error = %v", err)
	}
	if got, _ := stream.Collect(t.Context(), s); len(got) != 0 {
		t.Errorf("Zip() = %v, want no pairs", got)
	}
}
