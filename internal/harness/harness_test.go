package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return scenario
}

func keys(trace []TraceEntry) []string {
	out := make([]string, len(trace))
	for i, e := range trace {
		out[i] = e.Key()
	}
	return out
}

func TestRun_WinBoardGame(t *testing.T) {
	result, err := Run(loadScenario(t, "winboard_game"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "detached", result.State)
	assert.Equal(t, "1", result.Features["done"])

	for i, e := range result.Trace {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Contains(t, result.Trace, TraceEntry{Seq: 31, Type: EntryEvent, Text: "move", Move: "e2e4"})
	assert.Contains(t, result.Trace, TraceEntry{Seq: 30, Type: EntryEvent, Text: "info", Comment: "depth 1 score 15 pv e2e4"})
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(loadScenario(t, "uci_ponder"))
	require.NoError(t, err)
	second, err := Run(loadScenario(t, "uci_ponder"))
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_ScriptArgPlaceholder(t *testing.T) {
	result, err := Run(loadScenario(t, "winboard_game"))
	require.NoError(t, err)
	assert.Contains(t, keys(result.Trace), "recv pong 1")
}

func TestRun_RejectedCallIsMarked(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: rejected
description: calls on a detached engine are refused
engine:
  name: crafty
steps:
  - call: prepare_to_detach
  - exit: 0
  - tick: 1
  - call: new_game
assertions:
  - type: final_state
    state: detached
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, "step call new_game", last.Key())
	assert.Equal(t, "rejected", last.Comment)
}

func TestRun_EmitAndClaim(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: claim
description: a claim and a draw offer surface as events
engine:
  name: crafty
script:
  - on: protover
    reply: ["feature done=1"]
steps:
  - tick: 1
  - emit: ["offer draw", "1/2-1/2 {Draw by repetition}"]
  - tick: 1
assertions:
  - type: trace_order
    entries:
      - step emit offer draw
      - "step emit 1/2-1/2 {Draw by repetition}"
      - recv offer draw
      - event draw_offer
      - event claim
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	var claim TraceEntry
	for _, e := range result.Trace {
		if e.Key() == "event claim" {
			claim = e
		}
	}
	assert.Equal(t, "1/2-1/2", claim.Result)
	assert.Equal(t, "Draw by repetition", claim.Comment)
}

func TestRun_FailingAssertions(t *testing.T) {
	scenario := loadScenario(t, "winboard_crash")
	scenario.Assertions = []Assertion{
		{Type: AssertFinalState, State: "idle"},
		{Type: AssertTraceContains, Entry: "send quit"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Expected: state idle")
	assert.Contains(t, result.Errors[0], "Actual: state crashed")
	assert.Contains(t, result.Errors[1], "send quit")
}

func TestRun_CrashOutsideGame(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: idle_exit
description: an idle engine that exits reports no result
engine:
  name: crafty
script:
  - on: protover
    reply: ["feature done=1"]
steps:
  - tick: 1
  - exit: 1
  - tick: 1
assertions:
  - type: final_state
    state: crashed
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace, TraceEntry{
		Seq: 12, Type: EntryEvent, Text: "result", Result: "noresult", Reason: "crash",
	})
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("first")
	r.AddError("second")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"first", "second"}, r.Errors)
}
