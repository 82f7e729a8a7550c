// Package link is the raw conversation primitive with an engine process:
// write a line, read a line without blocking, ask whether the process is
// still alive.
//
// Nothing here understands any protocol. Framing is newline-delimited text;
// trailing "\r" is stripped so engines built for Windows behave the same.
package link

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by WriteLine after Close or process exit.
	ErrClosed = errors.New("link closed")

	// ErrBackpressure is returned when the outbound buffer is full.
	// The engine is not reading its stdin.
	ErrBackpressure = errors.New("link outbound buffer full")

	// ErrNotExecutable means the command is missing or lacks exec permission.
	ErrNotExecutable = errors.New("engine executable missing or not executable")
)

// Link is one bidirectional line stream to one engine process.
//
// Implementations must allow WriteLine from several goroutines; ReadLine is
// only ever called from the owning engine's tick.
type Link interface {
	// WriteLine queues line for delivery and returns without waiting for it.
	WriteLine(line string) error

	// ReadLine returns the next buffered line, or ok=false if none is ready.
	ReadLine() (line string, ok bool)

	// Alive reports whether the process is still running. Lines produced
	// before exit remain readable after Alive turns false.
	Alive() bool

	// ExitCode is the process exit status, or -1 while running.
	ExitCode() int

	// Close stops writing, waits up to grace for the process to exit and
	// kills it otherwise.
	Close(grace time.Duration) error
}

// Spec describes the process to start.
type Spec struct {
	Command string
	Args    []string
	Dir     string
}

// Spawner starts a process and returns its Link.
// Production code uses Spawn; tests inject scripted links.
type Spawner func(ctx context.Context, spec Spec) (Link, error)
