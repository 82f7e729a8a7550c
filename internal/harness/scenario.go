package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/config"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Engine is the engine entry under test. Command defaults to the name;
	// nothing is ever executed.
	Engine config.Engine `yaml:"engine"`

	TimeControl config.TimeControl `yaml:"time_control,omitempty"`

	// TickIntervalMs converts the engine's timeouts into tick budgets.
	TickIntervalMs int `yaml:"tick_interval_ms,omitempty"`

	// Script lists the scripted engine's replies.
	Script []ScriptRule `yaml:"script,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// ScriptRule replies to every written line equal to On or starting with
// On followed by a space.
type ScriptRule struct {
	On    string   `yaml:"on"`
	Reply []string `yaml:"reply"`
}

// Step is exactly one of: Tick, Call, Emit or Exit.
type Step struct {
	// Tick runs this many ticks.
	Tick int `yaml:"tick,omitempty"`

	// Call invokes an Engine method; see the Call* constants.
	Call   string      `yaml:"call,omitempty"`
	Move   string      `yaml:"move,omitempty"`
	SAN    string      `yaml:"san,omitempty"`
	Clock  *ClockArgs  `yaml:"clock,omitempty"`
	Result *ResultArgs `yaml:"result,omitempty"`

	// Emit makes lines readable as if the engine printed them.
	Emit []string `yaml:"emit,omitempty"`

	// Exit makes the engine process exit with this code.
	Exit *int `yaml:"exit,omitempty"`
}

// ClockArgs are the arguments of set_clock.
type ClockArgs struct {
	OwnMs int `yaml:"own_ms"`
	OppMs int `yaml:"opp_ms"`
}

// ResultArgs are the arguments of report_result: a result from the engine's
// own perspective and the side it played.
type ResultArgs struct {
	Type   string `yaml:"type"`
	Reason string `yaml:"reason"`
	Side   string `yaml:"side"`
}

// Engine methods a step can call.
const (
	CallNewGame         = "new_game"
	CallGo              = "go"
	CallGoPonder        = "go_ponder"
	CallStop            = "stop"
	CallMove            = "move"
	CallSetClock        = "set_clock"
	CallReportResult    = "report_result"
	CallPrepareToDetach = "prepare_to_detach"
	CallDetach          = "detach"
)

var calls = []string{
	CallNewGame, CallGo, CallGoPonder, CallStop, CallMove, CallSetClock,
	CallReportResult, CallPrepareToDetach, CallDetach,
}

// Assertion validates the trace or the final engine state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Entry is "<type> <text>" (trace_contains, trace_count).
	Entry string `yaml:"entry,omitempty"`

	// Entries must appear in this order, not necessarily adjacent
	// (trace_order).
	Entries []string `yaml:"entries,omitempty"`

	// Count is the exact number of matching entries (trace_count).
	Count int `yaml:"count,omitempty"`

	// State is the expected final state name (final_state).
	State string `yaml:"state,omitempty"`

	// Features must all be present with these values (final_state).
	Features map[string]string `yaml:"features,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML strictly and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Engine.Command == "" {
		scenario.Engine.Command = scenario.Engine.Name
	}
	if scenario.TickIntervalMs <= 0 {
		scenario.TickIntervalMs = config.DefaultTickIntervalMs
	}
	if tc := &scenario.TimeControl; tc.BaseMs == 0 && tc.MoveTimeMs == 0 {
		tc.MoveTimeMs = config.DefaultMoveTimeMs
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := s.Engine.Normalize(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Script {
		if strings.TrimSpace(r.On) == "" {
			return fmt.Errorf("script[%d]: on is required", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	kinds := 0
	if s.Tick != 0 {
		kinds++
		if s.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick must be positive", index)
		}
	}
	if s.Call != "" {
		kinds++
	}
	if len(s.Emit) > 0 {
		kinds++
	}
	if s.Exit != nil {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("steps[%d]: exactly one of tick, call, emit or exit is required", index)
	}
	if s.Call == "" {
		return nil
	}

	if !slices.Contains(calls, s.Call) {
		return fmt.Errorf("steps[%d]: unknown call %q", index, s.Call)
	}
	switch s.Call {
	case CallMove, CallGoPonder:
		if _, err := chess.ParseCoordinateMove(s.Move); err != nil {
			return fmt.Errorf("steps[%d]: %s needs a coordinate move: %w", index, s.Call, err)
		}
	case CallSetClock:
		if s.Clock == nil {
			return fmt.Errorf("steps[%d]: set_clock needs clock", index)
		}
	case CallReportResult:
		if s.Result == nil {
			return fmt.Errorf("steps[%d]: report_result needs result", index)
		}
		if chess.ParseSide(s.Result.Side) == chess.NoSide {
			return fmt.Errorf("steps[%d]: unknown side %q", index, s.Result.Side)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Entries) == 0 {
			return fmt.Errorf("assertions[%d]: entries list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.State == "" && len(a.Features) == 0 {
			return fmt.Errorf("assertions[%d]: state or features is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// parse converts report_result arguments.
func (r ResultArgs) parse() (chess.Result, chess.Side) {
	res := chess.Result{Reason: chess.ParseReasonType(r.Reason)}
	switch strings.ToLower(r.Type) {
	case "win":
		res.Type = chess.Win
	case "draw":
		res.Type = chess.Draw
	case "loss":
		res.Type = chess.Loss
	}
	return res, chess.ParseSide(r.Side)
}
