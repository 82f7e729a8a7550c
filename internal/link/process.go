package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	inboundBuffer  = 1024
	outboundBuffer = 256
	maxLineBytes   = 1 << 20
)

// Process is a Link backed by an os/exec child.
//
// Three goroutines per process:
//   - reader: scans stdout into the inbound channel
//   - writer: drains the outbound channel into stdin
//   - waiter: reaps the process once stdout is exhausted
type Process struct {
	cmd *exec.Cmd

	inbound  chan string
	outbound chan string

	mu     sync.Mutex
	closed bool

	alive    atomic.Bool
	exitCode atomic.Int64
	exited   chan struct{}
}

var _ Link = (*Process)(nil)

// Spawn starts spec.Command with piped stdin/stdout.
// Errors wrapping ErrNotExecutable mean the binary itself is the problem.
func Spawn(ctx context.Context, spec Spec) (Link, error) {
	if err := checkExecutable(spec.Command); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w: %v", spec.Command, ErrNotExecutable, err)
	}

	p := &Process{
		cmd:      cmd,
		inbound:  make(chan string, inboundBuffer),
		outbound: make(chan string, outboundBuffer),
		exited:   make(chan struct{}),
	}
	p.alive.Store(true)
	p.exitCode.Store(-1)

	readerDone := make(chan struct{})
	go p.readLoop(stdout, readerDone)
	go p.writeLoop(stdin)
	go p.waitLoop(readerDone)

	slog.Debug("engine process started", "command", spec.Command, "pid", cmd.Process.Pid)
	return p, nil
}

func checkExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("empty command: %w", ErrNotExecutable)
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrNotExecutable, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrNotExecutable, err)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotExecutable)
	}
	return nil
}

func (p *Process) readLoop(r io.Reader, done chan<- struct{}) {
	defer close(done)
	defer close(p.inbound)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		p.inbound <- strings.TrimRight(scanner.Text(), "\r")
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		slog.Debug("engine stdout read error", "error", err)
	}
}

func (p *Process) writeLoop(w io.WriteCloser) {
	defer w.Close()
	for line := range p.outbound {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			slog.Debug("engine stdin write error", "error", err)
			// Keep draining so WriteLine never blocks on a dead process.
			for range p.outbound {
			}
			return
		}
	}
}

func (p *Process) waitLoop(readerDone <-chan struct{}) {
	<-readerDone
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = 1
		}
	}
	p.exitCode.Store(int64(code))
	p.alive.Store(false)
	p.closeOutbound()
	close(p.exited)
}

// WriteLine implements Link.
func (p *Process) WriteLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.outbound <- line:
		return nil
	default:
		return ErrBackpressure
	}
}

// ReadLine implements Link.
func (p *Process) ReadLine() (string, bool) {
	select {
	case line, ok := <-p.inbound:
		return line, ok
	default:
		return "", false
	}
}

// Alive implements Link.
func (p *Process) Alive() bool {
	return p.alive.Load()
}

// ExitCode implements Link.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

func (p *Process) closeOutbound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.outbound)
	}
}

// Close implements Link.
func (p *Process) Close(grace time.Duration) error {
	p.closeOutbound()

	select {
	case <-p.exited:
		return nil
	case <-time.After(grace):
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill engine process: %w", err)
	}
	<-p.exited
	return nil
}
