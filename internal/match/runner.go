package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/link"
	"github.com/roach88/wbarena/internal/logging"
	"github.com/roach88/wbarena/internal/protocol"
	"github.com/roach88/wbarena/internal/store"
	"github.com/roach88/wbarena/internal/ticker"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStore records games, moves and transcripts in s.
func WithStore(s *store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithConsole echoes every protocol line to c.
func WithConsole(c *logging.Console) Option {
	return func(r *Runner) { r.console = c }
}

// WithSpawner replaces process spawning for every engine.
func WithSpawner(s link.Spawner) Option {
	return func(r *Runner) { r.spawn = s }
}

// WithIDGenerator sets the game id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) { r.ids = g }
}

// WithBoard sets the factory for per-game boards.
func WithBoard(f func() Board) Option {
	return func(r *Runner) { r.newBoard = f }
}

// WithNow replaces the wall clock used for chess clocks and timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithOutcomeHandler is called with every finished game, in completion
// order, from a single goroutine.
func WithOutcomeHandler(h func(Outcome)) Option {
	return func(r *Runner) { r.onOutcome = h }
}

// Runner plays the match described by a config.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	console   *logging.Console
	spawn     link.Spawner
	ids       IDGenerator
	newBoard  func() Board
	now       func() time.Time
	onOutcome func(Outcome)
}

// NewRunner builds a runner for a normalized config.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		newBoard: func() Board { return NewRulesBoard() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plays every game of the match and returns the summary.
//
// Games are numbered from 1; the engine named match.white plays white in odd
// games. Cancelling ctx ends the games in progress without a result and
// shuts the engines down.
func (r *Runner) Run(parent context.Context) (*Summary, error) {
	m := r.cfg.Match
	summary := &Summary{First: m.White, Second: m.Black}

	// The scheduler outlives ctx so engines can still be ticked while they
	// quit.
	sched := ticker.NewScheduler(r.cfg.TickInterval())
	schedCtx, stopSched := context.WithCancel(context.Background())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = sched.Run(schedCtx)
	}()
	defer func() {
		stopSched()
		<-schedDone
	}()

	workers := min(m.Concurrency, m.Games)
	r.logger.Info("match started", "white", m.White, "black", m.Black,
		"games", m.Games, "concurrency", workers, "time_control", DescribeTimeControl(m.TimeControl))

	g, ctx := errgroup.WithContext(parent)
	numbers := make(chan int)
	outcomes := make(chan Outcome)

	g.Go(func() error {
		defer close(numbers)
		for n := 1; n <= m.Games; n++ {
			select {
			case numbers <- n:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			w, err := r.newWorker(i, sched)
			if err != nil {
				return err
			}
			defer w.shutdown()
			return w.play(ctx, numbers, outcomes)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(outcomes)
		return nil
	})

	g.Go(func() error {
		for o := range outcomes {
			summary.Add(o)
			st := summary.Stat()
			r.logger.Info("match standing", "game", o.Number, "result", o.Score(), "reason", o.Result.Reason,
				"wins", summary.Wins, "losses", summary.Losses, "draws", summary.Draws,
				"score", fmt.Sprintf("%.3f", st.Score), "elo", fmt.Sprintf("%.1f", st.EloDiff),
				"los", fmt.Sprintf("%.1f%%", st.LOS*100))
			if r.onOutcome != nil {
				r.onOutcome(o)
			}
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		err = parent.Err()
	}
	r.logger.Info("match finished", "games", summary.Games(), "summary", summary.String())
	return summary, err
}

// worker owns one engine per seat for the whole match. Seat 0 runs the
// engine named match.white, seat 1 match.black.
type worker struct {
	id         int
	r          *Runner
	sched      *ticker.Scheduler
	logger     *slog.Logger
	mailbox    *Mailbox
	transcript *Transcript
	seats      [2]protocol.Engine
	ponder     [2]bool
	configs    [2]config.Engine
}

func (r *Runner) newWorker(id int, sched *ticker.Scheduler) (*worker, error) {
	w := &worker{
		id:         id,
		r:          r,
		sched:      sched,
		logger:     r.logger.With("worker", id),
		mailbox:    NewMailbox(),
		transcript: NewTranscript(),
	}
	for seat, name := range []string{r.cfg.Match.White, r.cfg.Match.Black} {
		cfg, ok := r.cfg.Engine(name)
		if !ok {
			return nil, fmt.Errorf("unknown engine %q", name)
		}
		opts := []protocol.Option{
			protocol.WithLogger(w.logger),
			protocol.WithEventHandler(w.mailbox.Handler(seat)),
			protocol.WithObserver(w.transcript),
			protocol.WithConsole(r.console),
			protocol.WithTickInterval(r.cfg.TickInterval()),
			protocol.WithTimeControl(r.cfg.Match.TimeControl),
		}
		if r.spawn != nil {
			opts = append(opts, protocol.WithSpawner(r.spawn))
		}
		eng, err := protocol.New(cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", name, err)
		}
		w.seats[seat] = eng
		w.configs[seat] = cfg
		w.ponder[seat] = cfg.Ponder && cfg.Protocol == config.ProtocolUCI
	}
	return w, nil
}

func (w *worker) play(ctx context.Context, numbers <-chan int, outcomes chan<- Outcome) error {
	for n := range numbers {
		for seat := range w.seats {
			if err := w.ensureReady(ctx, seat); err != nil {
				return err
			}
		}

		white, black := 0, 1
		if n%2 == 0 {
			white, black = 1, 0
		}
		game := &Game{
			ID:         w.r.ids.Generate(),
			Number:     n,
			White:      Player{Engine: w.seats[white], Seat: white, Ponder: w.ponder[white]},
			Black:      Player{Engine: w.seats[black], Seat: black, Ponder: w.ponder[black]},
			FirstWhite: white == 0,
			Match:      w.r.cfg.Match,
			Board:      w.r.newBoard(),
			Mailbox:    w.mailbox,
			Transcript: w.transcript,
			Store:      w.r.store,
			Logger:     w.logger,
			Now:        w.r.now,
		}
		out, err := game.Play(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case outcomes <- out:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// ensureReady attaches the engine in seat if it is not running, then waits
// for negotiation to finish.
func (w *worker) ensureReady(ctx context.Context, seat int) error {
	eng := w.seats[seat]
	if !eng.State().IsLive() {
		if eng.State() == protocol.StateCrashed {
			w.logger.Info("respawning engine", "engine", eng.Name())
		}
		if err := eng.Attach(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		w.sched.Add(eng)
	}

	t := time.NewTicker(w.sched.Interval())
	defer t.Stop()
	for {
		switch st := eng.State(); {
		case st.IsIdle():
			return nil
		case !st.IsLive():
			return &protocol.EngineError{
				Code:    protocol.ErrCodeCrash,
				Engine:  eng.Name(),
				Message: fmt.Sprintf("engine stopped during startup (state %s)", st),
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// shutdown asks both engines to quit, waits up to their terminate budget
// for them to exit, then detaches them.
func (w *worker) shutdown() {
	var wg sync.WaitGroup
	for seat, eng := range w.seats {
		if eng == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.stopEngine(eng, time.Duration(w.configs[seat].Timeouts.TerminateWaitMs)*time.Millisecond)
		}()
	}
	wg.Wait()
}

func (w *worker) stopEngine(eng protocol.Engine, wait time.Duration) {
	if eng.State().IsLive() {
		eng.PrepareToDetach()
		deadline := time.Now().Add(wait)
		for eng.State() == protocol.StateTerminating && time.Now().Before(deadline) {
			time.Sleep(w.sched.Interval())
		}
	}
	eng.Detach()
	w.sched.Remove(eng)
	w.logger.Debug("engine detached", "engine", eng.Name())
}
