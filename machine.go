package puppet

import (
	"context"

	"lesiw.io/fs"
)

// A [Machine] executes commands. It is the process host a [Process] runs on.
//
// Machines may implement [FSMachine] to expose their filesystem.
type Machine interface {
	// Command instantiates a command with the given context and arguments.
	// Environment variables are extracted from ctx using Envs, and the
	// working directory using [fs.WorkDir].
	// The returned Buffer represents the command's execution.
	// Reading to EOF drives command execution to completion.
	//
	// Canceling ctx must terminate the command.
	Command(ctx context.Context, arg ...string) Buffer
}

// FSMachine is an optional interface that allows a Machine to provide its own
// filesystem implementation.
type FSMachine interface {
	Machine

	// FS returns a fs.FS for this Machine.
	FS() fs.FS
}

// FS returns the filesystem of m, or nil if m is not an [FSMachine].
func FS(m Machine) fs.FS {
	if fsm, ok := m.(FSMachine); ok {
		return fsm.FS()
	}
	return nil
}

// MachineFunc is an adapter to allow ordinary functions to be used as
// Machines. This is similar to http.HandlerFunc.
type MachineFunc func(context.Context, ...string) Buffer

// Command implements the Machine interface.
func (f MachineFunc) Command(ctx context.Context, args ...string) Buffer {
	return f(ctx, args...)
}
