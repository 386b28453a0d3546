// Package sys implements a puppet.Machine that executes commands
// on the local system using os/exec.
package sys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"lesiw.io/fs"
	"lesiw.io/fs/osfs"

	"lesiw.io/puppet"
	"lesiw.io/puppet/internal/sh"
)

// Machine returns a puppet.Machine that executes commands
// on the local system.
//
// Commands inherit the current process environment, extended by
// puppet.Envs(ctx), and run in fs.WorkDir(ctx) if set.
func Machine() puppet.Machine { return machine{} }

type machine struct{}

var _ puppet.Machine = (*machine)(nil)

func (machine) Command(ctx context.Context, arg ...string) puppet.Buffer {
	return newCmd(ctx, arg...)
}

var _ puppet.FSMachine = (*machine)(nil)

func (machine) FS() fs.FS { return osfs.New() }

// cmd is one command. It starts on its first Read, Write, or Kill.
//
// Stdout is the child's own pipe, so it reaches EOF once every process
// holding it open has exited. Wait is only called after that.
type cmd struct {
	cmd *exec.Cmd
	env map[string]string

	start func() error
	wait  func() error

	stdin  io.WriteCloser
	stdout io.ReadCloser
	log    io.Writer
	logbuf bytes.Buffer
}

var (
	_ puppet.WriteBuffer = (*cmd)(nil)
	_ puppet.LogBuffer   = (*cmd)(nil)
	_ puppet.KillBuffer  = (*cmd)(nil)
)

// cmdError wraps os/exec errors into puppet.Error.
// If err is an ExitError, uses its exit code.
// Otherwise, wraps the error with code 0 (e.g., for command not found).
func cmdError(err error) error {
	if err == nil {
		return nil
	}
	cmdErr := &puppet.Error{Err: err}
	if ee := new(exec.ExitError); errors.As(err, &ee) {
		cmdErr.Code = ee.ExitCode()
	}
	return cmdErr
}

func newCmd(ctx context.Context, args ...string) puppet.Buffer {
	if len(args) == 0 {
		return puppet.Fail(&puppet.Error{Err: puppet.ErrNoCommand})
	}

	c := &cmd{
		cmd: exec.CommandContext(ctx, args[0], args[1:]...),
		env: puppet.Envs(ctx),
	}
	// Relative working directories are resolved against our own.
	if dir := fs.WorkDir(ctx); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			c.cmd.Dir = abs
		}
	}
	c.cmd.Env = os.Environ()
	for k, v := range c.env {
		c.cmd.Env = append(c.cmd.Env, k+"="+v)
	}
	c.start = sync.OnceValue(c.startFunc)
	c.wait = sync.OnceValue(c.waitFunc)
	return c
}

func (c *cmd) startFunc() error {
	var err error
	if c.stdin, err = c.cmd.StdinPipe(); err != nil {
		return fmt.Errorf("failed to pipe stdin: %w", err)
	}
	if c.stdout, err = c.cmd.StdoutPipe(); err != nil {
		return fmt.Errorf("failed to pipe stdout: %w", err)
	}
	if c.log != nil {
		c.cmd.Stderr = c.log
	} else {
		c.cmd.Stderr = &c.logbuf
	}
	return cmdError(c.cmd.Start())
}

func (c *cmd) Read(p []byte) (int, error) {
	if err := c.start(); err != nil {
		return 0, err
	}
	n, err := c.stdout.Read(p)
	if err != nil {
		if werr := c.wait(); werr != nil {
			err = werr
		} else if errors.Is(err, os.ErrClosed) {
			// Wait closes stdout; reads after the end keep reporting it.
			err = io.EOF
		}
	}
	return n, err
}

func (c *cmd) Write(p []byte) (int, error) {
	if err := c.start(); err != nil {
		return 0, err
	}
	n, err := c.stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed write: %w", err)
	}
	return n, nil
}

func (c *cmd) Close() error {
	if err := c.start(); err != nil {
		return err
	}
	if err := c.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed close: %w", err)
	}
	return nil
}

func (c *cmd) Log(w io.Writer) { c.log = w }

// Kill kills the process. A process that failed to start or already
// exited is not an error.
func (c *cmd) Kill() error {
	if err := c.start(); err != nil {
		return nil
	}
	err := c.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (c *cmd) waitFunc() error {
	err := cmdError(c.cmd.Wait())
	if ce := new(puppet.Error); errors.As(err, &ce) && c.log == nil {
		ce.Log = c.logbuf.Bytes()
	}
	return err
}

func (c *cmd) String() string {
	return sh.String(c.env, c.cmd.Args...).String()
}
