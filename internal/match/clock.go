package match

import (
	"fmt"
	"time"

	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/protocol"
)

// Clock is a two-sided chess clock.
//
// With a fixed move time every move gets the same budget and the clock never
// flags; the engine's own move deadline covers it. Otherwise each side starts
// with BaseMs, gains IncMs after every move, and when MovesToGo is set both
// sides receive BaseMs again once black completes the period.
//
// Not safe for concurrent use; a Game owns its clock.
type Clock struct {
	tc  config.TimeControl
	now func() time.Time

	remaining [2]int // ms, indexed by chess.Side
	movesLeft int
	flagged   [2]bool

	running chess.Side
	started time.Time
}

// NewClock creates a clock at the start of a game. now defaults to time.Now.
func NewClock(tc config.TimeControl, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{tc: tc, now: now, running: chess.NoSide, movesLeft: tc.MovesToGo}
	c.remaining[chess.White] = tc.BaseMs
	c.remaining[chess.Black] = tc.BaseMs
	return c
}

// Start runs side's clock. A clock already running is stopped first.
func (c *Clock) Start(side chess.Side) {
	if c.running != chess.NoSide {
		c.Stop()
	}
	c.running = side
	c.started = c.now()
}

// Stop charges the running side for the time since Start and returns the
// elapsed milliseconds. Stop on an idle clock returns 0.
func (c *Clock) Stop() int64 {
	side := c.running
	if side == chess.NoSide {
		return 0
	}
	c.running = chess.NoSide
	elapsed := c.now().Sub(c.started).Milliseconds()

	if c.tc.IsFixedMoveTime() {
		return elapsed
	}

	c.remaining[side] -= int(elapsed)
	if c.remaining[side] < 0 {
		c.flagged[side] = true
		return elapsed
	}
	c.remaining[side] += c.tc.IncMs

	if side == chess.Black && c.tc.MovesToGo > 0 {
		c.movesLeft--
		if c.movesLeft == 0 {
			c.remaining[chess.White] += c.tc.BaseMs
			c.remaining[chess.Black] += c.tc.BaseMs
			c.movesLeft = c.tc.MovesToGo
		}
	}
	return elapsed
}

// Flagged reports whether side ran out of time.
func (c *Clock) Flagged(side chess.Side) bool {
	if side != chess.White && side != chess.Black {
		return false
	}
	return c.flagged[side]
}

// Remaining returns side's time in milliseconds. Fixed move time reports
// the per-move budget.
func (c *Clock) Remaining(side chess.Side) int {
	if c.tc.IsFixedMoveTime() {
		return c.tc.MoveTimeMs
	}
	if side != chess.White && side != chess.Black {
		return 0
	}
	return max(c.remaining[side], 0)
}

// MovesLeft is the number of black moves until the next time control, or
// zero for a control without periods.
func (c *Clock) MovesLeft() int {
	return c.movesLeft
}

// For returns the clock as seen by side, ready for protocol.Engine.SetClock.
func (c *Clock) For(side chess.Side) protocol.Clock {
	return protocol.Clock{OwnMs: c.Remaining(side), OppMs: c.Remaining(side.Opposite())}
}

func (c *Clock) String() string {
	if c.tc.IsFixedMoveTime() {
		return fmt.Sprintf("%dms/move", c.tc.MoveTimeMs)
	}
	return fmt.Sprintf("white %s black %s",
		chess.FormatPeriod(c.Remaining(chess.White)/1000),
		chess.FormatPeriod(c.Remaining(chess.Black)/1000))
}

// DescribeTimeControl renders tc for game records: "40/60+1" style for
// clocked games, "st 2000ms" for a fixed move time.
func DescribeTimeControl(tc config.TimeControl) string {
	if tc.IsFixedMoveTime() {
		return fmt.Sprintf("st %dms", tc.MoveTimeMs)
	}
	s := fmt.Sprintf("%g+%g", float64(tc.BaseMs)/1000, float64(tc.IncMs)/1000)
	if tc.MovesToGo > 0 {
		s = fmt.Sprintf("%d/%s", tc.MovesToGo, s)
	}
	return s
}
