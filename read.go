package puppet

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"lesiw.io/puppet/stream"
)

// Read runs a command without input and returns its standard output.
// All trailing whitespace is stripped from the output.
//
// If the command fails, the error is an [*Error] carrying the exit code
// and the command's standard error as its Log.
func Read(ctx context.Context, m Machine, args ...string) (string, error) {
	p, err := New(m, Options{Args: args})
	if err != nil {
		return "", err
	}
	discard(p.Stdout())
	discard(p.Stderr())
	_ = p.Stdin().Close()
	if err := p.Start(ctx); err != nil {
		return "", err
	}

	var out, log strings.Builder
	r, err := p.Combined().Reader()
	if err != nil {
		return "", err
	}
	var fault error
	for c, err := range r.All(ctx) {
		if err != nil {
			fault = err
			break
		}
		switch c.Tag {
		case Stdout:
			out.WriteString(c.Value)
		case Stderr:
			log.WriteString(c.Value)
		}
	}

	err = p.Wait(ctx)
	if e := new(Error); err != nil && log.Len() > 0 && errors.As(err, &e) {
		e.Log = []byte(log.String())
	}
	if err == nil {
		err = fault
	}
	return strings.TrimRightFunc(out.String(), unicode.IsSpace), err
}

// Do runs a command for its side effects, discarding output.
// Only the error status is returned.
//
// If the command fails, the error will contain exit code and log output.
func Do(ctx context.Context, m Machine, args ...string) error {
	_, err := Read(ctx, m, args...)
	return err
}

// discard detaches a stream nobody reads.
func discard[T any](s *stream.Stream[T]) {
	if r, err := s.Reader(); err == nil {
		_ = r.Close()
	}
}
