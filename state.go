package puppet

import (
	"fmt"

	"lesiw.io/puppet/stream"
)

// State is the lifecycle state of a [Process].
type State int

const (
	// Created is the state of a process that has not been started.
	Created State = iota
	// Running is the state of a started process that has not completed.
	Running
	// Exited is the state of a process that completed on its own.
	Exited
	// Killed is the state of a process that completed after Kill,
	// or after the context it was started with ended.
	Killed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Killed:
		return "killed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Origin names the output stream a [Chunk] came from.
type Origin int

const (
	Stdout Origin = iota
	Stderr
)

func (o Origin) String() string {
	switch o {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Chunk is a piece of decoded output on the combined stream.
type Chunk = stream.Tagged[Origin, string]
