package puppet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRunning is returned by operations that need a started process.
	ErrNotRunning = errors.New("puppet: process not started")

	// ErrStarted is returned when starting a process twice.
	ErrStarted = errors.New("puppet: process already started")

	// ErrNoCommand is returned when a process is given nothing to run.
	ErrNoCommand = errors.New("puppet: no command given")

	// ErrClosed is returned when writing to a closed input.
	ErrClosed = errors.New("puppet: write to closed input")

	// ErrLocked is returned when writing to an input held by an
	// [InputWriter], or acquiring an input that is already held.
	ErrLocked = errors.New("puppet: input held by another writer")

	// ErrReadOnly is returned when writing to a command that takes no input.
	ErrReadOnly = errors.New("puppet: write to read-only command")
)

// Error represents a command execution failure.
type Error struct {
	// Log contains the log output. This usually corresponds to stderr.
	Log []byte

	// Err is the underlying error.
	Err error

	// Code is the exit code. A value of 0 does not indicate success.
	Code int
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else {
		sb.WriteString(fmt.Sprintf("exit status %d", e.Code))
	}
	if len(e.Log) > 0 {
		sb.WriteString(
			"\n\t" +
				strings.TrimSuffix(
					strings.ReplaceAll(string(e.Log), "\n", "\n\t"),
					"\n\t",
				),
		)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound returns true if err represents a command that failed to start,
// typically indicating the command was not found.
//
// A puppet.Error is considered "not found" when Err is non-nil and Code is 0.
// This combination means the command never ran (failed to start).
//
//	p, _ := puppet.New(sys.Machine(), puppet.Options{Args: args})
//	_ = p.Start(ctx)
//	if err := p.Wait(ctx); puppet.NotFound(err) {
//	    // Command wasn't found or failed to start
//	}
func NotFound(err error) bool {
	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		return false
	}
	return cmdErr.Err != nil && cmdErr.Code == 0
}

// KillError reports that a termination request could not be delivered.
type KillError struct {
	Err error
}

func (e *KillError) Error() string {
	return "puppet: kill: " + e.Err.Error()
}

func (e *KillError) Unwrap() error { return e.Err }
