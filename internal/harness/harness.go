package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/logging"
	"github.com/roach88/wbarena/internal/protocol"
	"github.com/roach88/wbarena/internal/testutil"
)

// Option configures a scenario run.
type Option func(*harness)

// WithLogger sets the logger handed to the engine. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *harness) { h.logger = l }
}

// WithConsole echoes protocol lines as they are traced.
func WithConsole(c *logging.Console) Option {
	return func(h *harness) { h.console = c }
}

// harness drives one engine instance through a scenario. Ticks are issued
// by Run itself, so every observation happens on the calling goroutine and
// the trace order is fully determined by the steps.
type harness struct {
	logger    *slog.Logger
	console   *logging.Console
	engine    protocol.Engine
	link      *testutil.ScriptedLink
	result    *Result
	lastState protocol.State
	recording bool
}

// Run executes a scenario against a scripted engine and returns the trace
// with any assertion failures. An error means the scenario could not run
// at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &harness{
		logger:    logging.Discard(),
		result:    NewResult(),
		lastState: protocol.StateDetached,
		recording: true,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.link = scriptedLink(scenario.Script)
	eng, err := protocol.New(scenario.Engine,
		protocol.WithLogger(h.logger),
		protocol.WithSpawner(h.link.Spawner()),
		protocol.WithObserver(h),
		protocol.WithConsole(h.console),
		protocol.WithEventHandler(h.onEvent),
		protocol.WithTickInterval(time.Duration(scenario.TickIntervalMs)*time.Millisecond),
		protocol.WithTimeControl(scenario.TimeControl),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng

	h.step("attach")
	if err := eng.Attach(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to attach engine: %w", err)
	}
	h.observeState()

	for i, step := range scenario.Steps {
		if err := h.run(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	h.recording = false
	h.result.State = eng.State().String()
	h.result.Features = map[string]string(eng.Features())
	eng.Detach()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// scriptedLink builds the fake engine process. "{arg}" in a reply is
// replaced by whatever followed the command on the written line.
func scriptedLink(rules []ScriptRule) *testutil.ScriptedLink {
	l := testutil.NewScriptedLink()
	for _, r := range rules {
		l.OnFunc(r.On, func(line string) []string {
			arg := strings.TrimSpace(strings.TrimPrefix(line, r.On))
			out := make([]string, len(r.Reply))
			for i, reply := range r.Reply {
				out[i] = strings.ReplaceAll(reply, "{arg}", arg)
			}
			return out
		})
	}
	return l
}

func (h *harness) run(s Step) error {
	switch {
	case s.Tick > 0:
		h.step(fmt.Sprintf("tick %d", s.Tick))
		for range s.Tick {
			h.engine.Tick()
			h.observeState()
		}
	case s.Call != "":
		return h.call(s)
	case len(s.Emit) > 0:
		for _, line := range s.Emit {
			h.step("emit " + line)
			h.link.Emit(line)
		}
	case s.Exit != nil:
		h.step(fmt.Sprintf("exit %d", *s.Exit))
		h.link.Exit(*s.Exit)
	}
	return nil
}

func (h *harness) call(s Step) error {
	text := "call " + s.Call
	if s.Move != "" {
		text += " " + s.Move
	}
	idx := h.step(text)

	var move chess.Move
	if s.Move != "" {
		var err error
		if move, err = chess.ParseCoordinateMove(s.Move); err != nil {
			return err
		}
	}

	accepted := true
	switch s.Call {
	case CallNewGame:
		accepted = h.engine.NewGame()
	case CallGo:
		accepted = h.engine.Go()
	case CallGoPonder:
		accepted = h.engine.GoPonder(move)
	case CallStop:
		h.engine.Stop()
	case CallMove:
		h.engine.OppositeMadeMove(move, s.SAN)
	case CallSetClock:
		h.engine.SetClock(protocol.Clock{OwnMs: s.Clock.OwnMs, OppMs: s.Clock.OppMs})
	case CallReportResult:
		res, side := s.Result.parse()
		h.engine.ReportResult(res, side)
	case CallPrepareToDetach:
		h.engine.PrepareToDetach()
	case CallDetach:
		h.engine.Detach()
	default:
		return fmt.Errorf("unknown call %q", s.Call)
	}
	if !accepted {
		h.result.Trace[idx].Comment = "rejected"
	}
	h.observeState()
	return nil
}

// step records a step entry and returns its index in the trace.
func (h *harness) step(text string) int {
	h.result.add(TraceEntry{Type: EntryStep, Text: text})
	return len(h.result.Trace) - 1
}

// Line implements protocol.LineObserver.
func (h *harness) Line(_ string, dir logging.Direction, line string) {
	if !h.recording {
		return
	}
	typ := EntrySend
	if dir == logging.Inbound {
		typ = EntryRecv
	}
	h.result.add(TraceEntry{Type: typ, Text: line})
}

func (h *harness) onEvent(ev protocol.Event) {
	if !h.recording {
		return
	}
	h.result.add(eventEntry(ev))
}

// observeState records the engine state when it changed since the last
// observation.
func (h *harness) observeState() {
	st := h.engine.State()
	if st == h.lastState {
		return
	}
	h.lastState = st
	h.result.add(TraceEntry{Type: EntryState, Text: st.String()})
}
