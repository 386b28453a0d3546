package puppet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"lesiw.io/fs"

	"lesiw.io/puppet/internal/sh"
	"lesiw.io/puppet/stream"
)

// Process supervises one command and exposes its standard streams.
//
// A Process moves through the states Created, Running, and then Exited or
// Killed. Its streams exist from [New] on, so input may be queued and
// readers acquired before [Process.Start].
//
// Output is decoded as UTF-8. Each output stream is copied to its public
// stream and to the [Process.Combined] stream, which carries both in the
// order they arrive. Each stream has exactly one reader.
//
// The command's exit status is the result of [Process.Wait].
// The process completes once the command reported its status and all of
// its output was delivered. A command whose output descriptors are held
// open by a detached child does not complete until that child exits.
type Process struct {
	m      Machine
	args   []string
	env    map[string]string
	dir    string
	limit  int
	logger *slog.Logger

	stdin    *Input
	stdout   *stream.Stream[string]
	stderr   *stream.Stream[string]
	combined *stream.Stream[Chunk]
	outw     *stream.Writer[string]
	errw     *stream.Writer[string]
	combw    *stream.Writer[Chunk]

	mu    sync.Mutex
	state State
	run   *run
}

// run is the live half of a Process. It exists once the process started.
type run struct {
	parent context.Context
	cancel context.CancelFunc
	buf    Buffer
	killed atomic.Bool

	forwarded chan struct{}
	done      chan struct{}
	err       error
}

// New returns a process that runs a command on m, in the Created state.
func New(m Machine, opts Options) (*Process, error) {
	if m == nil {
		return nil, errors.New("puppet: nil machine")
	}
	args, err := opts.argv()
	if err != nil {
		return nil, err
	}
	p := &Process{
		m:      m,
		args:   args,
		env:    maps.Clone(opts.Env),
		dir:    opts.Dir,
		limit:  opts.Buffer,
		logger: opts.Logger,
		stdin:  newInput(),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.stdout, p.outw = stream.Pipe[string](p.limit)
	p.stderr, p.errw = stream.Pipe[string](p.limit)
	p.combined, p.combw = stream.Pipe[Chunk](p.limit)
	return p, nil
}

// Start starts the command.
//
// The command runs until it exits, is killed, or ctx ends; an ended ctx
// counts as a kill. Start fails with [ErrStarted] unless the process is in
// the Created state. A command that cannot be spawned is not reported by
// Start: its failure is the result of [Process.Wait].
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Created {
		return ErrStarted
	}

	if len(p.env) > 0 {
		ctx = WithEnv(ctx, p.env)
	}
	if p.dir != "" {
		ctx = fs.WithWorkDir(ctx, p.dir)
	}
	rctx, cancel := context.WithCancel(ctx)
	r := &run{
		parent:    ctx,
		cancel:    cancel,
		forwarded: make(chan struct{}),
		done:      make(chan struct{}),
	}
	in, err := p.stdin.s.Reader()
	if err != nil {
		cancel()
		return err
	}
	r.buf = p.m.Command(rctx, p.args...)
	trace(r.buf, p.String())

	pr, pw := io.Pipe()
	if !Log(r.buf, pw) {
		_ = pw.Close()
	}

	p.state, p.run = Running, r
	p.logger.Debug("process started", "cmd", p.String())

	go p.forward(rctx, r, in)
	go p.pump(context.WithoutCancel(rctx), r, pr, pw)
	return nil
}

// forward copies the input to the command's stdin.
func (p *Process) forward(
	ctx context.Context, r *run, in *stream.Reader[[]byte],
) {
	defer close(r.forwarded)
	w, ok := r.buf.(WriteBuffer)
	if !ok {
		_ = in.CloseWithError(ErrReadOnly)
		return
	}
	defer func() {
		if err := w.Close(); err != nil {
			p.logger.Debug("stdin close failed", "cmd", p.String(),
				"err", err)
		}
	}()
	for {
		b, err := in.Recv(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			_ = in.CloseWithError(ErrClosed)
			return
		}
		if _, err := w.Write(b); err != nil {
			p.logger.Debug("stdin write failed", "cmd", p.String(),
				"err", err)
			_ = in.CloseWithError(err)
			return
		}
	}
}

// pump drives the output side of the process until it completes.
func (p *Process) pump(
	ctx context.Context, r *run, pr *io.PipeReader, pw *io.PipeWriter,
) {
	rawOut, rawOutW := stream.Pipe[string](p.limit)
	rawErr, rawErrW := stream.Pipe[string](p.limit)
	mixOut, mixOutW := stream.Pipe[string](p.limit)
	mixErr, mixErrW := stream.Pipe[string](p.limit)
	srcOut, _ := rawOut.Reader()
	srcErr, _ := rawErr.Reader()
	fromOut, _ := mixOut.Reader()
	fromErr, _ := mixErr.Reader()

	var (
		g      errgroup.Group
		status error
	)
	g.Go(func() error {
		defer pw.Close()
		status = decode(ctx, r.buf, rawOutW)
		return nil
	})
	g.Go(func() error {
		return decode(ctx, pr, rawErrW)
	})
	g.Go(func() error {
		return stream.Tee(ctx, srcOut, p.outw, mixOutW)
	})
	g.Go(func() error {
		return stream.Tee(ctx, srcErr, p.errw, mixErrW)
	})
	g.Go(func() error {
		srcs := map[Origin]*stream.Reader[string]{
			Stdout: fromOut,
			Stderr: fromErr,
		}
		return stream.Merge(ctx, p.combw, srcs)
	})
	if err := g.Wait(); err != nil {
		p.logger.Debug("output fault", "cmd", p.String(), "err", err)
	}
	p.complete(r, status)
}

// decode decodes src into w and closes w.
// Output after a decoding fault is discarded so that the command never
// blocks on a full pipe. It returns the error that ended src, which is the
// command's status for stdout, whether or not decoding failed.
func decode(
	ctx context.Context, src io.Reader, w *stream.Writer[string],
) error {
	st := &statusReader{r: src}
	err := stream.Decode(ctx, st, w)
	if de := new(stream.DecodeError); errors.As(err, &de) {
		_ = w.CloseWithError(err)
		if !st.done {
			_, _ = io.Copy(io.Discard, st)
		}
		return st.err
	}
	_ = w.Close()
	return err
}

// statusReader records how its reader ended.
type statusReader struct {
	r    io.Reader
	done bool
	err  error
}

func (s *statusReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil {
		s.done = true
		if err != io.EOF {
			s.err = err
		}
	}
	return n, err
}

func (p *Process) complete(r *run, status error) {
	if !p.stdin.autoClose() {
		p.logger.Debug("stdin held at exit, leaving it open",
			"cmd", p.String())
	}
	killed := r.killed.Load() || r.parent.Err() != nil
	r.cancel()
	<-r.forwarded

	p.mu.Lock()
	r.err = status
	if killed {
		p.state = Killed
	} else {
		p.state = Exited
	}
	state := p.state
	p.mu.Unlock()
	close(r.done)

	p.logger.Debug("process completed", "cmd", p.String(),
		"state", state, "err", status)
}

func (p *Process) started() (*run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return nil, ErrNotRunning
	}
	return p.run, nil
}

// Wait waits for the process to complete and returns the command's exit
// status: nil on success, an [*Error] otherwise.
//
// Wait fails with [ErrNotRunning] before Start. It may be called any number
// of times and returns the same result each time.
// If ctx ends first, Wait returns its error and the process keeps running.
func (p *Process) Wait(ctx context.Context) error {
	r, err := p.started()
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill terminates the process and waits for it to complete.
//
// Kill fails with [ErrNotRunning] before Start and does nothing once the
// process completed. A termination request that cannot be delivered is
// reported as a [*KillError].
func (p *Process) Kill(ctx context.Context) error {
	r, err := p.started()
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return nil
	default:
	}

	p.logger.Debug("killing process", "cmd", p.String())
	r.killed.Store(true)
	if k, ok := r.buf.(KillBuffer); ok {
		if err := k.Kill(); err != nil {
			r.killed.Store(false)
			return &KillError{Err: err}
		}
	} else {
		r.cancel()
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done returns a channel that is closed when the process completes.
// It returns nil before Start.
func (p *Process) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return nil
	}
	return p.run.done
}

// Stdin returns the process's standard input.
func (p *Process) Stdin() *Input { return p.stdin }

// Stdout returns the decoded standard output.
func (p *Process) Stdout() *stream.Stream[string] { return p.stdout }

// Stderr returns the decoded standard error.
func (p *Process) Stderr() *stream.Stream[string] { return p.stderr }

// Combined returns standard output and standard error in arrival order.
func (p *Process) Combined() *stream.Stream[Chunk] { return p.combined }

// String returns the command line in shell form.
func (p *Process) String() string {
	return sh.String(p.env, p.args...).String()
}
