// Package ticker provides the periodic-execution guard and the scheduler
// that drives every live engine instance.
//
// A tick is an execution opportunity, not an obligation. Guard.Run never
// blocks: when the previous run for the same instance is still in progress
// the new tick is dropped and counted. Tick budgets used for timeouts must be
// sized so that an occasional dropped tick cannot cause a false timeout.
package ticker

import (
	"sync"
	"sync/atomic"
)

// Tickable is anything the Scheduler can drive.
type Tickable interface {
	Tick()
}

// Guard allows at most one in-flight execution per instance.
// The zero value is ready to use.
type Guard struct {
	mu      sync.Mutex
	runs    atomic.Int64
	dropped atomic.Int64
}

// Run executes work unless a previous Run on this guard is still executing.
// Returns false when the tick was dropped.
func (g *Guard) Run(work func()) bool {
	if !g.mu.TryLock() {
		g.dropped.Add(1)
		return false
	}
	defer g.mu.Unlock()
	g.runs.Add(1)
	work()
	return true
}

// Runs returns how many ticks executed.
func (g *Guard) Runs() int64 {
	return g.runs.Load()
}

// Dropped returns how many ticks were skipped because of overlap.
func (g *Guard) Dropped() int64 {
	return g.dropped.Load()
}
