package puppet

import (
	"fmt"
	"log/slog"
	"slices"

	"lesiw.io/puppet/internal/sh"
)

// Options configures a [Process]. It is copied by [New] and never modified.
type Options struct {
	// Args is the executable followed by its arguments.
	Args []string

	// Command is a shell-style command line, split into words like
	// sh(1) would, without any expansion. It is used only if Args is empty.
	Command string

	// Logger receives lifecycle events. It defaults to slog.Default().
	Logger *slog.Logger

	// Dir is the working directory of the process.
	Dir string

	// Env holds environment variables added to the process environment.
	Env map[string]string

	// Buffer bounds every output stream to that many unread items.
	// Zero means unbounded.
	//
	// With a bound, an output stream that nobody reads eventually stalls
	// the process: read every stream, or close its reader to detach it.
	Buffer int
}

func (o *Options) argv() ([]string, error) {
	switch {
	case len(o.Args) > 0 && o.Command != "":
		return nil, fmt.Errorf("puppet: both Args and Command given")
	case len(o.Args) > 0:
		return slices.Clone(o.Args), nil
	}
	args, err := sh.Split(o.Command)
	if err != nil {
		return nil, fmt.Errorf("puppet: bad command %q: %w", o.Command, err)
	}
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	return args, nil
}
