package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/link"
	"github.com/roach88/wbarena/internal/logging"
	"github.com/roach88/wbarena/internal/ticker"
)

// Engine is one engine instance driven by ticks.
//
// Lifecycle methods never block on the engine process. Methods called on a
// Detached, Terminating or Crashed instance are no-ops.
type Engine interface {
	ticker.Tickable

	Name() string
	Protocol() string
	State() State
	Features() FeatureMap
	PingState() PingState
	TickStats() (runs, dropped int64)

	// Attach starts the process and begins negotiation.
	Attach(ctx context.Context) error

	// NewGame queues a game reset. Returns false if one is already pending
	// or the instance does not accept commands.
	NewGame() bool

	// Go queues a search for the side to move.
	Go() bool

	// GoPonder queues a search on the opponent's time, assuming move.
	GoPonder(move chess.Move) bool

	// Stop forces a move now. Before the search has started it is applied
	// right after the pending Go.
	Stop()

	// OppositeMadeMove forwards the opponent's move. san is optional and
	// only used by dialects that negotiated SAN.
	OppositeMadeMove(move chess.Move, san string)

	// SetClock updates the remaining times used by the next Go.
	SetClock(c Clock)

	// ReportResult tells the engine the game is over. res is from this
	// engine's perspective and side is the colour it played.
	ReportResult(res chess.Result, side chess.Side)

	// PrepareToDetach asks the engine to quit; a later exit is not a crash.
	PrepareToDetach()

	// Detach closes the link, killing the process after the configured
	// grace period.
	Detach()
}

// dialect is the protocol-specific half of an instance. Every method is
// called with the instance state mutex held.
type dialect interface {
	reset()
	handshake()
	finishNegotiation(timedOut bool)
	parseLine(line string)
	newGame()
	think()
	ponder(move chess.Move)
	stop()
	opponentMoved(move chess.Move) (ponderHit bool)
	userMove(move chess.Move, san string)
	gameOver(res chess.Result, side chess.Side)
	abortSearch()
	quit()
	canPing() bool
	writePing(n int)
}

// Option configures an Engine.
type Option func(*instance)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *instance) { e.logger = l }
}

// WithSpawner replaces process spawning. Tests pass scripted links.
func WithSpawner(s link.Spawner) Option {
	return func(e *instance) { e.spawn = s }
}

// WithObserver adds a sink for every protocol line.
func WithObserver(o LineObserver) Option {
	return func(e *instance) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithConsole echoes protocol lines to c when it is enabled.
func WithConsole(c *logging.Console) Option {
	return func(e *instance) {
		if c.Enabled() {
			e.observers = append(e.observers, c)
		}
	}
}

// WithEventHandler sets the receiver of engine events.
func WithEventHandler(h EventHandler) Option {
	return func(e *instance) { e.handler = h }
}

// WithTickInterval tells the instance how long a tick is, for converting
// millisecond timeouts into tick budgets.
func WithTickInterval(d time.Duration) Option {
	return func(e *instance) { e.interval = d }
}

// WithTimeControl sets the time control sent at every new game.
func WithTimeControl(tc config.TimeControl) Option {
	return func(e *instance) { e.tc = tc }
}

// budget holds timeouts converted to ticks.
type budget struct {
	negotiation   int
	idle          int
	pingInterval  int
	terminate     int
	terminateWait time.Duration
}

type instance struct {
	cfg       config.Engine
	tc        config.TimeControl
	interval  time.Duration
	spawn     link.Spawner
	logger    *slog.Logger
	observers []LineObserver
	handler   EventHandler
	proto     dialect
	budget    budget

	guard ticker.Guard
	state atomic.Int32
	queue *SyncTaskQueue

	mu            sync.Mutex
	link          link.Link
	tick          int
	lastOutput    int
	lastPing      int
	ping          PingState
	features      FeatureMap
	clock         Clock
	negotiateLeft int
	inGame        bool
	resultSent    bool
	stopPending   bool
	searchStart   int
	moveDeadline  int
	stopDeadline  int // tick by which a stopped search must answer; 0 when none is owed
	errorsSinceGo int
	terminateAt   int
	pending       []Event
}

// New builds a Detached engine for cfg. cfg is normalized on a copy.
func New(cfg config.Engine, opts ...Option) (Engine, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	e := &instance{
		cfg:      cfg,
		interval: time.Duration(config.DefaultTickIntervalMs) * time.Millisecond,
		spawn:    link.Spawn,
		logger:   slog.Default(),
		queue:    NewSyncTaskQueue(),
		features: FeatureMap{},
		tc:       config.TimeControl{MoveTimeMs: config.DefaultMoveTimeMs},
	}
	for _, opt := range opts {
		opt(e)
	}

	t := cfg.Timeouts
	e.budget = budget{
		negotiation:   config.Ticks(t.NegotiationMs, e.interval),
		idle:          config.Ticks(t.IdleMs, e.interval),
		pingInterval:  config.Ticks(t.PingIntervalMs, e.interval),
		terminate:     config.Ticks(t.TerminateWaitMs, e.interval),
		terminateWait: time.Duration(t.TerminateWaitMs) * time.Millisecond,
	}

	switch cfg.Protocol {
	case config.ProtocolWinBoard:
		e.proto = &winboard{instance: e}
	case config.ProtocolUCI:
		e.proto = &uci{instance: e}
	default:
		return nil, fmt.Errorf("unsupported protocol %q", cfg.Protocol)
	}
	e.state.Store(int32(StateDetached))
	return e, nil
}

func (e *instance) Name() string     { return e.cfg.Name }
func (e *instance) Protocol() string { return e.cfg.Protocol }
func (e *instance) State() State     { return State(e.state.Load()) }

func (e *instance) Features() FeatureMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.features.clone()
}

func (e *instance) PingState() PingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ping
}

func (e *instance) TickStats() (int64, int64) {
	return e.guard.Runs(), e.guard.Dropped()
}

// locked runs fn under the state mutex, then dispatches the events it
// produced after releasing it.
func (e *instance) locked(fn func()) {
	e.mu.Lock()
	fn()
	events := e.pending
	e.pending = nil
	e.mu.Unlock()

	if e.handler == nil {
		return
	}
	for _, ev := range events {
		e.handler(ev)
	}
}

func (e *instance) Attach(ctx context.Context) error {
	var err error
	e.locked(func() {
		if st := e.State(); st != StateDetached && st != StateCrashed {
			err = fmt.Errorf("engine %s already attached (state %s)", e.cfg.Name, st)
			return
		}
		if e.link != nil {
			go e.closeLink(e.link, 0)
			e.link = nil
		}

		var l link.Link
		l, err = e.spawn(ctx, link.Spec{Command: e.cfg.Command, Args: e.cfg.Args, Dir: e.cfg.Dir})
		if err != nil {
			err = &EngineError{Code: ErrCodeSpawn, Engine: e.cfg.Name, Message: "failed to start engine", Err: err}
			e.setState(StateDetached)
			return
		}

		e.reset(l)
		e.setState(StateAttaching)
		e.logger.Info("engine attached", "engine", e.cfg.Name, "protocol", e.cfg.Protocol)
		e.negotiateLeft = e.budget.negotiation
		e.proto.handshake()
		e.setState(StateNegotiating)
	})
	return err
}

func (e *instance) reset(l link.Link) {
	e.link = l
	e.tick = 0
	e.lastOutput = 0
	e.lastPing = 0
	e.ping = PingState{}
	e.features = FeatureMap{}
	e.clock = Clock{}
	e.inGame = false
	e.resultSent = false
	e.stopPending = false
	e.moveDeadline = 0
	e.stopDeadline = 0
	e.errorsSinceGo = 0
	e.queue.Clear()
	e.proto.reset()
}

func (e *instance) NewGame() bool {
	if !e.State().IsLive() {
		return false
	}
	return e.queue.Enqueue(SyncTask{Kind: SyncNewGame})
}

func (e *instance) Go() bool {
	if !e.State().IsLive() {
		return false
	}
	return e.queue.Enqueue(SyncTask{Kind: SyncGo})
}

func (e *instance) GoPonder(move chess.Move) bool {
	if !e.State().IsLive() {
		return false
	}
	return e.queue.Enqueue(SyncTask{Kind: SyncGo, Ponder: true, Move: move})
}

func (e *instance) Stop() {
	e.locked(func() {
		st := e.State()
		switch {
		case st.IsSearching():
			e.proto.stop()
		case st.IsLive() && e.queue.Pending(SyncGo):
			e.stopPending = true
		}
	})
}

func (e *instance) OppositeMadeMove(move chess.Move, san string) {
	e.locked(func() {
		st := e.State()
		if !st.IsLive() {
			return
		}
		if st == StatePondering {
			if e.proto.opponentMoved(move) {
				e.startClock()
				e.setState(StateThinking)
				return
			}
			st = e.State()
		}
		if st.IsIdle() && e.queue.Len() == 0 && e.link != nil {
			e.proto.userMove(move, san)
			return
		}
		e.queue.Enqueue(SyncTask{Kind: SyncUserMove, Move: move, SAN: san})
	})
}

func (e *instance) SetClock(c Clock) {
	e.locked(func() { e.clock = c })
}

func (e *instance) ReportResult(res chess.Result, side chess.Side) {
	e.locked(func() {
		if !e.State().IsLive() || e.link == nil {
			return
		}
		e.proto.gameOver(res, side)
		e.moveDeadline = 0
		e.inGame = false
		e.resultSent = true
	})
}

func (e *instance) PrepareToDetach() {
	e.locked(func() {
		if !e.State().IsLive() || e.link == nil {
			return
		}
		e.queue.Clear()
		e.proto.quit()
		e.terminateAt = e.tick
		e.setState(StateTerminating)
	})
}

func (e *instance) Detach() {
	var l link.Link
	e.locked(func() {
		if e.State().IsLive() && e.link != nil {
			e.proto.quit()
		}
		e.queue.Clear()
		l = e.link
		e.link = nil
		e.inGame = false
		e.setState(StateDetached)
	})
	if l != nil {
		e.closeLink(l, e.budget.terminateWait)
	}
}

func (e *instance) closeLink(l link.Link, grace time.Duration) {
	if err := l.Close(grace); err != nil {
		e.logger.Debug("engine link close", "engine", e.cfg.Name, "error", err)
	}
}

// Tick performs one step unless the previous one is still running.
func (e *instance) Tick() {
	e.guard.Run(func() { e.locked(e.step) })
}

func (e *instance) step() {
	st := e.State()
	if e.link == nil || st == StateDetached || st == StateCrashed {
		return
	}
	e.tick++

	// Alive is sampled before draining so that lines written just before
	// exit are parsed before the exit is classified.
	alive := e.link.Alive()
	for e.link != nil {
		line, ok := e.link.ReadLine()
		if !ok {
			break
		}
		e.receive(line)
	}
	if e.link == nil {
		return
	}
	if !alive {
		e.exited()
		return
	}

	if e.State() == StateNegotiating {
		e.negotiateLeft--
		if e.negotiateLeft <= 0 {
			e.logger.Info("feature negotiation timed out, using defaults", "engine", e.cfg.Name)
			e.proto.finishNegotiation(true)
		}
	}

	e.runSyncTasks()
	if e.link == nil {
		return
	}
	if e.State() == StateIdle {
		e.maybePing()
	}
	e.checkDeadlines()
}

func (e *instance) receive(line string) {
	e.lastOutput = e.tick
	e.observe(logging.Inbound, line)
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	e.proto.parseLine(line)
}

func (e *instance) exited() {
	code := e.link.ExitCode()
	if e.State() == StateTerminating {
		e.logger.Info("engine exited", "engine", e.cfg.Name, "code", code)
		l := e.link
		e.link = nil
		e.setState(StateDetached)
		go e.closeLink(l, 0)
		return
	}
	e.crash(fmt.Sprintf("process exited with code %d", code))
}

const maxTasksPerTick = 16

func (e *instance) runSyncTasks() {
	for i := 0; i < maxTasksPerTick && e.link != nil; i++ {
		if !e.queue.TryRunHead(e.ready, e.run) {
			break
		}
	}

	switch st := e.State(); {
	case st == StateIdle && e.queue.Len() > 0:
		e.setState(StateWaitingSync)
	case st == StateWaitingSync && e.queue.Len() == 0:
		e.setState(StateIdle)
	}
}

// ready is the readiness predicate for the queue head: the engine is idle,
// alive, and owes no pong. Forwarded opponent moves only need idleness.
func (e *instance) ready(t SyncTask) bool {
	if e.link == nil || !e.link.Alive() || !e.State().IsIdle() {
		return false
	}
	if t.Kind == SyncUserMove {
		return true
	}
	return !e.ping.Outstanding()
}

func (e *instance) run(t SyncTask) {
	e.logger.Debug("running sync task", "engine", e.cfg.Name, "task", t.Kind)
	switch t.Kind {
	case SyncNewGame:
		e.inGame = true
		e.resultSent = false
		e.stopPending = false
		e.moveDeadline = 0
		e.proto.newGame()
		e.setState(StateIdle)
	case SyncGo:
		if t.Ponder {
			e.proto.ponder(t.Move)
			e.setState(StatePondering)
		} else {
			e.errorsSinceGo = 0
			e.proto.think()
			e.startClock()
			e.setState(StateThinking)
		}
		if e.stopPending {
			e.stopPending = false
			e.proto.stop()
		}
	case SyncUserMove:
		e.proto.userMove(t.Move, t.SAN)
	}
}

// startClock arms the move deadline for a search starting this tick.
func (e *instance) startClock() {
	e.searchStart = e.tick
	ms := e.tc.MoveTimeMs
	if !e.tc.IsFixedMoveTime() {
		ms = e.clock.OwnMs
		if ms <= 0 {
			ms = e.tc.BaseMs
		}
	}
	if ms <= 0 {
		e.moveDeadline = 0
		return
	}
	e.moveDeadline = config.Ticks(ms+e.cfg.Timeouts.MoveMarginMs, e.interval)
}

func (e *instance) maybePing() {
	if !e.proto.canPing() || e.ping.Outstanding() || e.queue.Len() > 0 {
		return
	}
	if e.tick-max(e.lastOutput, e.lastPing) < e.budget.pingInterval {
		return
	}
	e.sendPing()
}

func (e *instance) sendPing() {
	if !e.proto.canPing() {
		return
	}
	n := e.ping.next()
	e.lastPing = e.tick
	e.proto.writePing(n)
}

func (e *instance) checkDeadlines() {
	st := e.State()
	switch {
	case st.IsSearching() && e.stopDeadline > 0 && e.tick > e.stopDeadline:
		e.crash(fmt.Sprintf("search not stopped after %d ticks", e.budget.idle))
	case st == StateThinking && e.moveDeadline > 0 && e.tick-e.searchStart > e.moveDeadline:
		e.moveTimedOut()
	case st == StateTerminating && e.tick-e.terminateAt > e.budget.terminate:
		e.logger.Warn("engine did not quit, killing it", "engine", e.cfg.Name)
		l := e.link
		e.link = nil
		e.setState(StateDetached)
		go e.closeLink(l, 0)
	case e.isIdleCrash():
		e.crash(fmt.Sprintf("no response for %d ticks", e.tick-max(e.lastOutput, e.lastPing)))
	}
}

// awaitStop arms the stop deadline after a stop command that the engine
// must answer before the instance can take new work.
func (e *instance) awaitStop() {
	e.stopDeadline = e.tick + e.budget.idle
}

// isIdleCrash reports a pong owed for longer than the idle budget.
func (e *instance) isIdleCrash() bool {
	return e.ping.Outstanding() && e.tick-max(e.lastOutput, e.lastPing) > e.budget.idle
}

func (e *instance) moveTimedOut() {
	e.moveDeadline = 0
	if e.errorsSinceGo > 0 {
		e.crash(fmt.Sprintf("missed move deadline after %d engine errors", e.errorsSinceGo))
		return
	}

	res := chess.Result{Type: chess.Loss, Reason: chess.Timeout}
	if e.cfg.TimeoutResult == config.TimeoutResultNoResult {
		res.Type = chess.NoResult
	}
	err := &EngineError{Code: ErrCodeTimeout, Engine: e.cfg.Name, Message: "move deadline passed"}
	e.logger.Warn("engine missed move deadline", "engine", e.cfg.Name, "ticks", e.tick-e.searchStart, "policy", e.cfg.OnTimeout)

	if e.cfg.OnTimeout == config.OnTimeoutBench {
		e.reportResult(res, err)
		e.teardown()
		return
	}
	e.proto.abortSearch()
	e.reportResult(res, err)
}

// reportResult emits a game result at most once per game.
func (e *instance) reportResult(res chess.Result, err error) {
	if e.resultSent {
		e.logger.Debug("result already reported", "engine", e.cfg.Name, "result", res)
		return
	}
	e.resultSent = true
	e.inGame = false
	e.emit(Event{Kind: EventResult, Result: res, Err: err})
}

func (e *instance) crash(reason string) {
	if e.State() == StateCrashed {
		return
	}
	err := &EngineError{Code: ErrCodeCrash, Engine: e.cfg.Name, Message: reason}
	e.logger.Error("engine crashed", "engine", e.cfg.Name, "state", e.State(), "reason", reason)

	// A queued new game counts: the match already considers it started.
	if e.queue.Pending(SyncNewGame) && !e.inGame {
		e.inGame = true
		e.resultSent = false
	}
	if e.inGame {
		e.reportResult(chess.Result{Type: chess.Loss, Reason: chess.Crash}, err)
	} else {
		e.emit(Event{Kind: EventResult, Result: chess.Result{Type: chess.NoResult, Reason: chess.Crash}, Err: err})
	}
	e.teardown()
}

// teardown takes the instance out of play. Later lifecycle calls are no-ops
// until the next Attach.
func (e *instance) teardown() {
	if n := e.queue.Clear(); n > 0 {
		e.logger.Debug("dropped queued tasks", "engine", e.cfg.Name, "count", n)
	}
	e.moveDeadline = 0
	e.stopDeadline = 0
	e.stopPending = false
	e.setState(StateCrashed)
	if l := e.link; l != nil {
		e.link = nil
		go e.closeLink(l, 0)
	}
}

// negotiated moves the instance to Idle once negotiation ends.
func (e *instance) negotiated(timedOut bool) {
	e.setState(StateIdle)
	comment := "features accepted"
	if timedOut {
		comment = "negotiation timed out"
	}
	e.emit(Event{Kind: EventReady, Comment: comment})
}

func (e *instance) setState(s State) {
	old := State(e.state.Swap(int32(s)))
	if old != s {
		e.logger.Debug("engine state", "engine", e.cfg.Name, "from", old, "to", s)
	}
}

func (e *instance) emit(ev Event) {
	ev.Engine = e.cfg.Name
	ev.Tick = e.tick
	e.pending = append(e.pending, ev)
}

func (e *instance) write(line string) {
	if e.link == nil {
		return
	}
	e.observe(logging.Outbound, line)
	if err := e.link.WriteLine(line); err != nil {
		e.logger.Warn("engine write failed", "engine", e.cfg.Name, "line", line, "error", err)
	}
}

func (e *instance) writef(format string, args ...any) {
	e.write(fmt.Sprintf(format, args...))
}

func (e *instance) observe(dir logging.Direction, line string) {
	for _, o := range e.observers {
		o.Line(e.cfg.Name, dir, line)
	}
}

// violation logs a line the engine should not have sent. Never fatal.
func (e *instance) violation(msg, line string) {
	e.logger.Debug("protocol violation", "engine", e.cfg.Name, "state", e.State(), "message", msg, "line", line)
}

// diagnose surfaces an engine-reported error.
func (e *instance) diagnose(code EngineErrorCode, msg, line string) {
	err := &EngineError{Code: code, Engine: e.cfg.Name, Message: msg, Line: line}
	e.logger.Warn("engine diagnostic", "engine", e.cfg.Name, "code", code, "line", line)
	e.emit(Event{Kind: EventDiagnostic, Comment: line, Err: err})
}

// engineMoved reports a move from a running search and returns to Idle.
func (e *instance) engineMoved(text, ponder string) {
	mv, err := chess.ParseCoordinateMove(text)
	if err != nil {
		mv = chess.NullMove
	}
	e.moveDeadline = 0
	e.stopDeadline = 0
	e.setState(StateIdle)
	e.emit(Event{Kind: EventMove, Move: mv, MoveText: text, PonderText: ponder})
}

// endSearch drops out of a search without a move.
func (e *instance) endSearch() {
	e.moveDeadline = 0
	e.stopDeadline = 0
	if e.State().IsSearching() {
		e.setState(StateIdle)
	}
}
