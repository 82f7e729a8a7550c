// Package logging configures slog for the CLI and provides Console, the one
// process-wide sink shared by every engine instance for verbose protocol
// echo.
//
// Engine instances never write to stdout directly; many of them run at once
// and their lines would interleave mid-line. Each Console write takes the
// console lock for exactly one line.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Options selects level and handler format.
type Options struct {
	Verbose bool
	Format  string // "text" | "json"
	Writer  io.Writer
}

// NewLogger builds a slog.Logger writing to opts.Writer (stderr by default).
func NewLogger(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Direction of a protocol line relative to this program.
type Direction string

const (
	// Outbound lines are written to the engine.
	Outbound Direction = "->"
	// Inbound lines are read from the engine.
	Inbound Direction = "<-"
)

// Console serializes whole lines from many engines onto one writer.
// The zero value writes nowhere; use NewConsole.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	start   time.Time
	enabled bool
}

// NewConsole returns a console writing to w. A nil w disables output.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, start: time.Now(), enabled: w != nil}
}

// Enabled reports whether writes go anywhere.
func (c *Console) Enabled() bool {
	return c != nil && c.enabled
}

// Printf writes one formatted line.
func (c *Console) Printf(format string, args ...any) {
	if !c.Enabled() {
		return
	}
	line := fmt.Sprintf(format, args...)
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Line echoes one protocol line for engine with elapsed milliseconds.
func (c *Console) Line(engine string, dir Direction, line string) {
	if !c.Enabled() {
		return
	}
	c.Printf("%d %s %s %s", time.Since(c.start).Milliseconds(), engine, dir, line)
}
