// Package puppet supervises a single command and exposes its standard
// streams as typed streams.
//
// A [Process] is created from a [Machine] and [Options], then started.
//
//	p, err := puppet.New(sys.Machine(), puppet.Options{
//	    Args: []string{"cat"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.Stdin().WriteString("Hello world!\n")
//	p.Stdin().Close()
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	out, _ := stream.Collect(ctx, p.Stdout())
//	if err := p.Wait(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Streams
//
// [Process.Stdin] accepts text and bytes at any time before the process
// completes. Writes made before [Process.Start] are queued and delivered
// first, in order. The input is closed automatically when the process
// completes, unless an [InputWriter] acquired with [Input.Acquire] holds it.
//
// [Process.Stdout] and [Process.Stderr] carry decoded UTF-8 text.
// An invalid byte sequence ends the affected stream with a
// [*stream.DecodeError]; the process still runs to completion.
// [Process.Combined] carries both streams as [Chunk] values tagged with
// their [Origin], in the order they arrive.
//
// Every stream has exactly one reader. Streams nobody reads buffer their
// output, so a long-running process should read or detach each of them.
//
// # Lifecycle
//
// [Process.Wait] returns the command's exit status as an [*Error].
// [Process.Kill] terminates the command and waits for it to complete.
// Both fail with [ErrNotRunning] before the process is started.
// Neither has a timeout of its own: race Wait with a deadline, then Kill.
//
//	ctx, cancel := context.WithTimeout(ctx, time.Minute)
//	defer cancel()
//	if err := p.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
//	    p.Kill(context.WithoutCancel(ctx))
//	}
//
// # Machines
//
// A [Machine] is the host that runs commands.
// [lesiw.io/puppet/sys] runs commands on the local system.
//
// Other Machines provided by this package:
//   - [lesiw.io/puppet/mem] - in-memory Machine for examples
//   - [lesiw.io/puppet/sub] - prefixes commands with fixed arguments
//   - [lesiw.io/puppet/ssh] - runs commands on a remote host
//   - [lesiw.io/puppet/mock] - mock Machine for testing
//
// A simple function can be adapted into a Machine via [MachineFunc].
//
// Environment variables are part of the [context.Context].
// They can be set using [WithEnv] or [Options.Env].
//
// [Read] and [Do] run short commands to completion, like command
// substitution in a shell.
package puppet
