// Package mem provides an in-memory puppet.Machine for tests and examples.
//
// The machine provides real implementations of common commands (cat, echo,
// false, sleep, tee, tr) operating on an in-memory filesystem.
// Commands stream: they consume input and produce output as they go,
// and they can be killed.
//
// # Guarantees
//
// mem.Machine() makes the following guarantees for consistent testing:
//
//   - Filesystem starts empty (no files or directories)
//   - Platform-independent behavior on all hosts
//   - A killed command fails with exit code -1
package mem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"lesiw.io/fs"
	"lesiw.io/fs/memfs"

	"lesiw.io/puppet"
	"lesiw.io/puppet/internal/sh"
)

// Machine returns a new in-memory command machine.
func Machine() puppet.Machine { return &machine{memfs.New()} }

type fsys = fs.FS
type machine struct{ fsys }

func (m *machine) FS() fs.FS { return m.fsys }

func (m *machine) Command(ctx context.Context, arg ...string) puppet.Buffer {
	if len(arg) == 0 {
		return puppet.Fail(&puppet.Error{Err: puppet.ErrNoCommand})
	}
	var run body
	switch arg[0] {
	case "cat":
		run = m.cat(arg[1:])
	case "echo":
		run = echo(arg[1:])
	case "false":
		run = exit(1)
	case "sleep":
		run = sleep(arg[1:])
	case "tee":
		run = m.tee(arg[1:])
	case "tr":
		run = tr(arg[1:])
	case "true":
		run = exit(0)
	default:
		return puppet.Fail(&puppet.Error{
			Err: fmt.Errorf("command not found: %s", arg[0]),
		})
	}
	return newProc(ctx, run, arg...)
}

// body is the implementation of a command.
// Its result is the command's exit status.
type body func(
	ctx context.Context, stdin io.Reader, stdout, stderr io.Writer,
) error

var errKilled = errors.New("signal: killed")

// proc runs a body in its own goroutine, connected through pipes.
type proc struct {
	ctx    context.Context
	cancel context.CancelFunc
	args   []string
	run    body
	once   sync.Once
	log    io.Writer

	inr  *io.PipeReader
	inw  *io.PipeWriter
	outr *io.PipeReader
	outw *io.PipeWriter
}

var (
	_ puppet.WriteBuffer = (*proc)(nil)
	_ puppet.LogBuffer   = (*proc)(nil)
	_ puppet.KillBuffer  = (*proc)(nil)
)

func newProc(ctx context.Context, run body, args ...string) *proc {
	p := &proc{args: args, run: run, log: io.Discard}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.inr, p.inw = io.Pipe()
	p.outr, p.outw = io.Pipe()
	return p
}

func (p *proc) start() {
	p.once.Do(func() {
		stop := context.AfterFunc(p.ctx, p.kill)
		go func() {
			defer stop()
			err := p.run(p.ctx, p.inr, p.outw, p.log)
			_ = p.inr.Close()
			_ = p.outw.CloseWithError(err)
		}()
	})
}

func (p *proc) kill() {
	err := &puppet.Error{Err: errKilled, Code: -1}
	_ = p.outw.CloseWithError(err)
	_ = p.inr.CloseWithError(err)
	p.cancel()
}

func (p *proc) Read(b []byte) (int, error) {
	p.start()
	return p.outr.Read(b)
}

func (p *proc) Write(b []byte) (int, error) {
	p.start()
	return p.inw.Write(b)
}

func (p *proc) Close() error { return p.inw.Close() }

func (p *proc) Log(w io.Writer) { p.log = w }

func (p *proc) Kill() error {
	p.start()
	p.kill()
	return nil
}

func (p *proc) String() string {
	return sh.String(puppet.Envs(p.ctx), p.args...).String()
}

func exit(code int) body {
	return func(context.Context, io.Reader, io.Writer, io.Writer) error {
		if code == 0 {
			return nil
		}
		return &puppet.Error{Code: code}
	}
}
