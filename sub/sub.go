// Package sub implements a puppet.Machine that prefixes all commands
// with a fixed set of arguments, such as nice or ssh.
package sub

import (
	"context"
	"slices"

	"lesiw.io/fs"

	"lesiw.io/puppet"
)

// Machine returns a puppet.Machine that prefixes all commands with the given
// prefix arguments, using the provided machine for execution.
func Machine(m puppet.Machine, prefix ...string) puppet.Machine {
	return &machine{m: m, prefix: prefix}
}

type machine struct {
	m      puppet.Machine
	prefix []string
}

func (m *machine) Command(ctx context.Context, arg ...string) puppet.Buffer {
	return m.m.Command(ctx, append(slices.Clip(m.prefix), arg...)...)
}

// FS forwards to the underlying machine's filesystem.
func (m *machine) FS() fs.FS { return puppet.FS(m.m) }
