package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/roach88/wbarena/internal/link"
)

// ScriptedLink is a deterministic link.Link for protocol tests.
//
// Replies are scripted per command: when a written line equals a rule's
// command, or starts with the command followed by a space, the rule's
// replies become readable on the next ReadLine. Nothing happens in the
// background, so a test fully controls when the engine "answers" by
// choosing when to Tick.
//
// Thread-safety: all methods are safe for concurrent use.
type ScriptedLink struct {
	mu       sync.Mutex
	rules    []scriptRule
	inbound  []string
	written  []string
	alive    bool
	exitCode int
	closed   bool
}

type scriptRule struct {
	command string
	reply   func(line string) []string
}

// NewScriptedLink returns a live link with no rules.
func NewScriptedLink() *ScriptedLink {
	return &ScriptedLink{alive: true, exitCode: -1}
}

// On queues replies whenever command is written.
func (s *ScriptedLink) On(command string, replies ...string) *ScriptedLink {
	return s.OnFunc(command, func(string) []string { return replies })
}

// OnFunc computes replies from the written line.
func (s *ScriptedLink) OnFunc(command string, reply func(line string) []string) *ScriptedLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptRule{command: command, reply: reply})
	return s
}

// EchoPing answers "ping N" with "pong N".
func (s *ScriptedLink) EchoPing() *ScriptedLink {
	return s.OnFunc("ping", func(line string) []string {
		return []string{"pong " + strings.TrimPrefix(line, "ping ")}
	})
}

// Emit makes lines readable as if the engine printed them.
func (s *ScriptedLink) Emit(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, lines...)
}

// Exit simulates process exit. Buffered lines stay readable.
func (s *ScriptedLink) Exit(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.exitCode = code
}

// Written returns every line written so far.
func (s *ScriptedLink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

// Take returns the lines written since the last Take (or since creation)
// and forgets them.
func (s *ScriptedLink) Take() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.written
	s.written = nil
	return out
}

// Closed reports whether Close was called.
func (s *ScriptedLink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Spawner returns a link.Spawner that always hands out s.
func (s *ScriptedLink) Spawner() link.Spawner {
	return func(context.Context, link.Spec) (link.Link, error) {
		return s, nil
	}
}

func (s *ScriptedLink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.alive {
		return link.ErrClosed
	}
	s.written = append(s.written, line)
	for _, r := range s.rules {
		if line == r.command || strings.HasPrefix(line, r.command+" ") {
			s.inbound = append(s.inbound, r.reply(line)...)
			break
		}
	}
	return nil
}

func (s *ScriptedLink) ReadLine() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbound) == 0 {
		return "", false
	}
	line := s.inbound[0]
	s.inbound = s.inbound[1:]
	return line, true
}

func (s *ScriptedLink) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *ScriptedLink) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

func (s *ScriptedLink) Close(time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.alive {
		s.alive = false
		s.exitCode = 0
	}
	return nil
}
