// Puppet runs a command and relays its standard streams.
//
// Usage:
//
//	puppet [-x] [-v] [-C dir] [-e KEY=VALUE]... [-c command] [--] [args...]
//
// Standard input is forwarded to the command unless it is a terminal.
// The command's output is relayed in the order it arrives.
// Puppet exits with the command's exit code.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"
	"lesiw.io/defers"

	"lesiw.io/puppet"
	"lesiw.io/puppet/mem"
	"lesiw.io/puppet/sys"
)

func main() {
	defer defers.Run()
	code, err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "puppet:", err)
	}
	if code != 0 {
		defers.Exit(code)
	}
}

type config struct {
	trace   bool
	verbose bool
	mem     bool
	dir     string
	env     []string
	command string
	args    []string
}

func parse(args []string, stderr io.Writer) (*config, error) {
	cfg := new(config)
	flags := pflag.NewFlagSet("puppet", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.BoolVarP(&cfg.trace, "trace", "x", false,
		"print the command line before running it")
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false,
		"log process events")
	flags.BoolVar(&cfg.mem, "mem", false,
		"run on an in-memory machine")
	flags.StringVarP(&cfg.dir, "dir", "C", "",
		"run the command in `dir`")
	flags.StringArrayVarP(&cfg.env, "env", "e", nil,
		"add `KEY=VALUE` to the command's environment")
	flags.StringVarP(&cfg.command, "command", "c", "",
		"run a shell-style `command` line")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	cfg.args = flags.Args()
	return cfg, nil
}

func (cfg *config) options(logger *slog.Logger) (puppet.Options, error) {
	opts := puppet.Options{
		Args:    cfg.args,
		Command: cfg.command,
		Dir:     cfg.dir,
		Logger:  logger,
	}
	for _, kv := range cfg.env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return opts, fmt.Errorf("bad environment variable: %q", kv)
		}
		if opts.Env == nil {
			opts.Env = make(map[string]string)
		}
		opts.Env[k] = v
	}
	return opts, nil
}

func run(
	args []string, stdin io.Reader, stdout, stderr io.Writer,
) (int, error) {
	cfg, err := parse(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0, nil
	} else if err != nil {
		return 2, nil
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))
	if cfg.trace {
		puppet.Trace = puppet.ShTrace
	}
	opts, err := cfg.options(logger)
	if err != nil {
		return 2, err
	}
	var m puppet.Machine = sys.Machine()
	if cfg.mem {
		m = mem.Machine()
	}
	p, err := puppet.New(m, opts)
	if err != nil {
		return 2, err
	}

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		return 1, err
	}
	sig, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defers.Add(stop)
	go func() {
		select {
		case <-sig.Done():
			logger.Debug("signal received, killing", "cmd", p.String())
			if err := p.Kill(ctx); err != nil {
				logger.Warn("kill failed", "cmd", p.String(), "err", err)
			}
		case <-p.Done():
		}
	}()
	go feed(p.Stdin(), stdin, logger)

	if err := relay(ctx, p, stdout, stderr); err != nil {
		logger.Warn("output lost", "cmd", p.String(), "err", err)
	}
	return status(p.Wait(ctx))
}

// feed forwards r to the command, unless r is a terminal.
func feed(in *puppet.Input, r io.Reader, logger *slog.Logger) {
	defer func() { _ = in.Close() }()
	if r == nil || isTerminal(r) {
		return
	}
	if _, err := io.Copy(in, r); err != nil &&
		!errors.Is(err, puppet.ErrClosed) {
		logger.Debug("stdin forward stopped", "err", err)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// relay copies the combined output to stdout and stderr.
func relay(
	ctx context.Context, p *puppet.Process, stdout, stderr io.Writer,
) error {
	detach(p.Stdout().Reader())
	detach(p.Stderr().Reader())
	r, err := p.Combined().Reader()
	if err != nil {
		return err
	}
	for c, err := range r.All(ctx) {
		if err != nil {
			return err
		}
		w := stdout
		if c.Tag == puppet.Stderr {
			w = stderr
		}
		if _, err := io.WriteString(w, c.Value); err != nil {
			return err
		}
	}
	return nil
}

func detach(r interface{ Close() error }, err error) {
	if err == nil {
		_ = r.Close()
	}
}

// status maps the command's exit status to an exit code.
func status(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var e *puppet.Error
	if errors.As(err, &e) && e.Code > 0 {
		return e.Code, nil
	}
	return 1, err
}
