package mem

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"lesiw.io/puppet"
)

// sleep waits for a number of seconds, or until it is killed.
func sleep(args []string) body {
	return func(
		ctx context.Context, _ io.Reader, _, stderr io.Writer,
	) error {
		if len(args) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: sleep seconds")
			return &puppet.Error{Code: 1}
		}
		sec, err := strconv.ParseFloat(args[0], 64)
		if err != nil || sec < 0 {
			_, _ = fmt.Fprintf(stderr,
				"sleep: invalid time interval %q\n", args[0])
			return &puppet.Error{Code: 1}
		}
		t := time.NewTimer(time.Duration(sec * float64(time.Second)))
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
