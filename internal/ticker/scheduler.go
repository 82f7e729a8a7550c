package ticker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultInterval is used when a Scheduler is created with a non-positive interval.
const DefaultInterval = 100 * time.Millisecond

// Scheduler fans one timer out to many Tickables.
//
// Each period every registered instance gets its own goroutine, so a slow
// instance never delays the others. Overlap within one instance is the
// instance's own Guard's business.
//
// Thread-safety: Add/Remove may be called from any goroutine, including
// from inside a Tick.
type Scheduler struct {
	interval time.Duration

	mu    sync.Mutex
	items map[Tickable]struct{}
}

// NewScheduler creates a scheduler ticking every interval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		items:    make(map[Tickable]struct{}),
	}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Add registers t. Adding twice is a no-op.
func (s *Scheduler) Add(t Tickable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t] = struct{}{}
}

// Remove unregisters t. In-flight ticks for t are not interrupted.
func (s *Scheduler) Remove(t Tickable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, t)
}

// Len returns the number of registered instances.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Scheduler) snapshot() []Tickable {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tickable, 0, len(s.items))
	for t := range s.items {
		out = append(out, t)
	}
	return out
}

// TickAll ticks every registered instance once, in parallel, and waits for
// all of them. Used by Run and by tests that need a deterministic step.
func (s *Scheduler) TickAll() {
	var g errgroup.Group
	for _, t := range s.snapshot() {
		g.Go(func() error {
			t.Tick()
			return nil
		})
	}
	_ = g.Wait()
}

// Run ticks until ctx is cancelled, then waits for in-flight ticks.
//
// Ticks are dispatched without waiting for the previous period to finish;
// an instance still busy from the last period drops the new tick itself.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Debug("tick scheduler starting", "interval", s.interval)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	var inflight errgroup.Group
	defer func() { _ = inflight.Wait() }()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("tick scheduler stopping")
			return ctx.Err()
		case <-t.C:
			for _, item := range s.snapshot() {
				inflight.Go(func() error {
					item.Tick()
					return nil
				})
			}
		}
	}
}
