// Package ssh implements a puppet.Machine that runs commands on a remote
// host through the ssh client.
//
// ssh(1) joins its remote arguments into one line that the remote shell
// parses again. The machine quotes every argument and carries the
// environment and working directory from the context into that line, so
// the remote command sees exactly the words it was given.
package ssh

import (
	"context"
	"strings"

	"lesiw.io/fs"

	"lesiw.io/puppet"
	"lesiw.io/puppet/internal/sh"
	"lesiw.io/puppet/sub"
)

// Machine creates a puppet.Machine that executes commands over SSH.
// The machine runs the ssh client on m (typically sys.Machine()) with the
// given client arguments, which end with the destination.
//
// Example:
//
//	m := ssh.Machine(sys.Machine(), "user@host")
//	ctx := puppet.WithEnv(ctx, map[string]string{"FOO": "bar"})
//	puppet.Read(ctx, m, "printenv", "FOO")
//	// Executes: ssh user@host -- 'FOO=bar printenv FOO'
//
// Additional SSH options can be provided:
//
//	m := ssh.Machine(sys.Machine(), "-p", "2222", "user@host")
func Machine(m puppet.Machine, args ...string) puppet.Machine {
	prefix := append([]string{"ssh"}, args...)
	return &machine{m: sub.Machine(m, append(prefix, "--")...)}
}

type machine struct {
	m puppet.Machine
}

func (sm *machine) Command(
	ctx context.Context, args ...string,
) puppet.Buffer {
	if len(args) == 0 {
		return puppet.Fail(&puppet.Error{Err: puppet.ErrNoCommand})
	}
	line := remoteLine(fs.WorkDir(ctx), puppet.Envs(ctx), args)
	ctx = fs.WithWorkDir(puppet.WithoutEnv(ctx), "")
	return sm.m.Command(ctx, line)
}

// remoteLine renders a command line for a POSIX login shell.
func remoteLine(dir string, env map[string]string, args []string) string {
	var b strings.Builder
	if dir != "" {
		b.WriteString("cd " + sh.Quote(dir) + " && ")
	}
	b.WriteString(sh.String(env, args...).String())
	return b.String()
}
