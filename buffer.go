package puppet

import "io"

// Buffer represents a command's execution.
// Buffers provide read access to command output.
// Reading drives execution and returns output until the command completes.
//
// Buffers may implement additional interfaces for extended capabilities:
//   - [KillBuffer] - terminate the command early
//   - [LogBuffer] - capture diagnostic output
//   - [WriteBuffer] - provide input to the command
type Buffer interface {
	// Read reads output from the command.
	// The command starts on first Read and completes at EOF.
	// Implementations must return EOF when the command terminates,
	// or the command's exit status if it failed.
	io.Reader
}

// WriteBuffer is an optional interface for buffers that accept input.
//
// Note that Close closes stdin, not stdout.
// The buffer must still be read to EOF to observe command completion.
type WriteBuffer interface {
	Buffer

	// Write writes data to the command's stdin.
	// The command starts on first Write if it hasn't started from Read.
	io.Writer

	// Close closes the command's stdin, signaling EOF to the command.
	// After Close, subsequent Write calls must return an error.
	io.Closer
}

// LogBuffer is an optional interface for buffers with diagnostic output.
// Buffers with diagnostic output can capture stderr separately from stdout.
type LogBuffer interface {
	Buffer

	// Log sets the destination for diagnostic output (stderr).
	// Implementations must write all stderr output to w, and must finish
	// writing before Read reports the command's completion.
	// Log is called before the first Read or Write.
	Log(io.Writer)
}

// KillBuffer is an optional interface for buffers that can be terminated.
type KillBuffer interface {
	Buffer

	// Kill asks the command to terminate immediately.
	// It does not wait: completion is still observed by reading to EOF.
	// Killing a command that already exited is not an error.
	Kill() error
}

// Log sets the log destination for buf if it implements [LogBuffer].
// It reports whether buf accepted the destination.
func Log(buf Buffer, w io.Writer) bool {
	if l, ok := buf.(LogBuffer); ok {
		l.Log(w)
		return true
	}
	return false
}
