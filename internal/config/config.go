// Package config loads tournament files: engine identities, protocol
// timeouts and match settings.
//
// Two formats are accepted, picked by file extension:
//   - .yaml / .yml: decoded with unknown-field rejection
//   - .cue: unified with the embedded #Config schema, then decoded
//
// Both paths end in the same Go validation and defaulting, so a CUE file and
// its YAML twin produce identical Config values.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Protocol dialect names accepted in engine entries.
const (
	ProtocolWinBoard = "winboard"
	ProtocolUCI      = "uci"
)

// Timeout policies. See Engine.OnTimeout.
const (
	OnTimeoutReuse = "reuse"
	OnTimeoutBench = "bench"

	TimeoutResultLoss     = "loss"
	TimeoutResultNoResult = "noresult"
)

// Defaults applied by Normalize.
const (
	DefaultTickIntervalMs  = 100
	DefaultNegotiationMs   = 2000
	DefaultIdleMs          = 10000
	DefaultPingIntervalMs  = 5000
	DefaultMoveMarginMs    = 1000
	DefaultGames           = 2
	DefaultConcurrency     = 1
	DefaultMaxPlies        = 400
	DefaultMoveTimeMs      = 1000
	DefaultTerminateWaitMs = 500
)

// Config is the whole tournament file.
type Config struct {
	TickIntervalMs int      `yaml:"tick_interval_ms,omitempty" json:"tick_interval_ms,omitempty"`
	Database       string   `yaml:"database,omitempty" json:"database,omitempty"`
	Engines        []Engine `yaml:"engines" json:"engines"`
	Match          Match    `yaml:"match" json:"match"`
}

// Engine identifies one engine program and how to talk to it.
// Immutable once handed to a protocol engine.
type Engine struct {
	Name     string            `yaml:"name" json:"name"`
	Command  string            `yaml:"command" json:"command"`
	Args     []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Dir      string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	Protocol string            `yaml:"protocol" json:"protocol"`
	Options  map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
	MemoryMB int               `yaml:"memory_mb,omitempty" json:"memory_mb,omitempty"`
	Cores    int               `yaml:"cores,omitempty" json:"cores,omitempty"`
	Ponder   bool              `yaml:"ponder,omitempty" json:"ponder,omitempty"`
	Timeouts Timeouts          `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`

	// OnTimeout decides whether an engine that missed a move deadline is
	// reused for the next game ("reuse") or taken out of play ("bench").
	OnTimeout string `yaml:"on_timeout,omitempty" json:"on_timeout,omitempty"`

	// TimeoutResult is what a missed move deadline scores: "loss" or "noresult".
	TimeoutResult string `yaml:"timeout_result,omitempty" json:"timeout_result,omitempty"`
}

// Timeouts are wall-clock budgets; protocol engines convert them to ticks.
type Timeouts struct {
	NegotiationMs   int `yaml:"negotiation_ms,omitempty" json:"negotiation_ms,omitempty"`
	IdleMs          int `yaml:"idle_ms,omitempty" json:"idle_ms,omitempty"`
	PingIntervalMs  int `yaml:"ping_interval_ms,omitempty" json:"ping_interval_ms,omitempty"`
	MoveMarginMs    int `yaml:"move_margin_ms,omitempty" json:"move_margin_ms,omitempty"`
	TerminateWaitMs int `yaml:"terminate_wait_ms,omitempty" json:"terminate_wait_ms,omitempty"`
}

// Match configures a two-engine match.
type Match struct {
	White        string      `yaml:"white,omitempty" json:"white,omitempty"`
	Black        string      `yaml:"black,omitempty" json:"black,omitempty"`
	Games        int         `yaml:"games,omitempty" json:"games,omitempty"`
	Concurrency  int         `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	MaxPlies     int         `yaml:"max_plies,omitempty" json:"max_plies,omitempty"`
	IgnoreClaims bool        `yaml:"ignore_claims,omitempty" json:"ignore_claims,omitempty"`
	TimeControl  TimeControl `yaml:"time_control,omitempty" json:"time_control,omitempty"`
}

// TimeControl is either a fixed time per move (MoveTimeMs) or a
// base+increment clock with an optional moves-to-go period.
type TimeControl struct {
	BaseMs     int `yaml:"base_ms,omitempty" json:"base_ms,omitempty"`
	IncMs      int `yaml:"inc_ms,omitempty" json:"inc_ms,omitempty"`
	MovesToGo  int `yaml:"moves_to_go,omitempty" json:"moves_to_go,omitempty"`
	MoveTimeMs int `yaml:"move_time_ms,omitempty" json:"move_time_ms,omitempty"`
}

// IsFixedMoveTime reports whether the control is a per-move budget.
func (tc TimeControl) IsFixedMoveTime() bool {
	return tc.MoveTimeMs > 0
}

// TickInterval returns the scheduler period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Engine returns the engine entry with the given name.
func (c *Config) Engine(name string) (Engine, bool) {
	for _, e := range c.Engines {
		if e.Name == name {
			return e, true
		}
	}
	return Engine{}, false
}

// Normalize fills defaults and validates. Called by Load; exported for
// callers that build a Config in code.
func (c *Config) Normalize() error {
	if c.TickIntervalMs <= 0 {
		c.TickIntervalMs = DefaultTickIntervalMs
	}
	if len(c.Engines) == 0 {
		return &ValidationError{Field: "engines", Message: "at least one engine is required"}
	}

	seen := make(map[string]bool, len(c.Engines))
	for i := range c.Engines {
		e := &c.Engines[i]
		if err := e.Normalize(); err != nil {
			return err
		}
		if seen[e.Name] {
			return &ValidationError{Field: "engines", Message: fmt.Sprintf("duplicate engine name %q", e.Name)}
		}
		seen[e.Name] = true
	}

	return c.Match.normalize(c)
}

// Normalize fills engine defaults and validates the entry.
func (e *Engine) Normalize() error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "engines.name", Message: "name is required"}
	}
	if strings.TrimSpace(e.Command) == "" {
		return &ValidationError{Field: "engines.command", Engine: e.Name, Message: "command is required"}
	}

	e.Protocol = strings.ToLower(strings.TrimSpace(e.Protocol))
	switch e.Protocol {
	case "", "xboard", "cecp", ProtocolWinBoard:
		e.Protocol = ProtocolWinBoard
	case ProtocolUCI:
	default:
		return &ValidationError{Field: "engines.protocol", Engine: e.Name, Message: fmt.Sprintf("unknown protocol %q", e.Protocol)}
	}

	switch e.OnTimeout {
	case "":
		e.OnTimeout = OnTimeoutReuse
	case OnTimeoutReuse, OnTimeoutBench:
	default:
		return &ValidationError{Field: "engines.on_timeout", Engine: e.Name, Message: fmt.Sprintf("unknown policy %q", e.OnTimeout)}
	}

	switch e.TimeoutResult {
	case "":
		e.TimeoutResult = TimeoutResultLoss
	case TimeoutResultLoss, TimeoutResultNoResult:
	default:
		return &ValidationError{Field: "engines.timeout_result", Engine: e.Name, Message: fmt.Sprintf("unknown result %q", e.TimeoutResult)}
	}

	if e.MemoryMB < 0 || e.Cores < 0 {
		return &ValidationError{Field: "engines", Engine: e.Name, Message: "memory_mb and cores must not be negative"}
	}

	t := &e.Timeouts
	if t.NegotiationMs <= 0 {
		t.NegotiationMs = DefaultNegotiationMs
	}
	if t.IdleMs <= 0 {
		t.IdleMs = DefaultIdleMs
	}
	if t.PingIntervalMs <= 0 {
		t.PingIntervalMs = DefaultPingIntervalMs
	}
	if t.MoveMarginMs <= 0 {
		t.MoveMarginMs = DefaultMoveMarginMs
	}
	if t.TerminateWaitMs <= 0 {
		t.TerminateWaitMs = DefaultTerminateWaitMs
	}
	return nil
}

func (m *Match) normalize(c *Config) error {
	if m.Games <= 0 {
		m.Games = DefaultGames
	}
	if m.Concurrency <= 0 {
		m.Concurrency = DefaultConcurrency
	}
	if m.MaxPlies <= 0 {
		m.MaxPlies = DefaultMaxPlies
	}
	if m.White == "" {
		m.White = c.Engines[0].Name
	}
	if m.Black == "" {
		m.Black = c.Engines[len(c.Engines)-1].Name
	}
	for _, name := range []string{m.White, m.Black} {
		if _, ok := c.Engine(name); !ok {
			return &ValidationError{Field: "match", Message: fmt.Sprintf("unknown engine %q", name)}
		}
	}

	tc := &m.TimeControl
	if tc.BaseMs < 0 || tc.IncMs < 0 || tc.MovesToGo < 0 || tc.MoveTimeMs < 0 {
		return &ValidationError{Field: "match.time_control", Message: "values must not be negative"}
	}
	if tc.BaseMs == 0 && tc.MoveTimeMs == 0 {
		tc.MoveTimeMs = DefaultMoveTimeMs
	}
	return nil
}

// Ticks converts a millisecond budget into a tick count, rounding up,
// never below one tick.
func Ticks(ms int, interval time.Duration) int {
	if interval <= 0 {
		interval = time.Duration(DefaultTickIntervalMs) * time.Millisecond
	}
	n := int(math.Ceil(float64(time.Duration(ms)*time.Millisecond) / float64(interval)))
	if n < 1 {
		n = 1
	}
	return n
}

// ValidationError reports an invalid or missing config field.
type ValidationError struct {
	Field   string
	Engine  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("config %s (engine %s): %s", e.Field, e.Engine, e.Message)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
