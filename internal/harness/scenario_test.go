package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wbarena/internal/config"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: attach only
engine:
  name: crafty
steps:
  - tick: 1
assertions:
  - type: final_state
    state: negotiating
`

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/winboard_game.yaml")
	require.NoError(t, err)

	assert.Equal(t, "winboard_game", scenario.Name)
	assert.Equal(t, "crafty", scenario.Engine.Command)
	assert.Equal(t, config.ProtocolWinBoard, scenario.Engine.Protocol)
	assert.Equal(t, 1000, scenario.TimeControl.MoveTimeMs)
	assert.Equal(t, config.DefaultTickIntervalMs, scenario.TickIntervalMs)
	require.Len(t, scenario.Script, 3)
	assert.Equal(t, []string{"pong {arg}"}, scenario.Script[1].Reply)
	require.Len(t, scenario.Steps, 11)
	assert.Equal(t, CallReportResult, scenario.Steps[7].Call)
	assert.Equal(t, ResultArgs{Type: "win", Reason: "mate", Side: "white"}, *scenario.Steps[7].Result)
	require.NotNil(t, scenario.Steps[9].Exit)
	assert.Equal(t, 0, *scenario.Steps[9].Exit)
	assert.Len(t, scenario.Assertions, 3)
}

func TestLoadScenario_Defaults(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "crafty", scenario.Engine.Command)
	assert.Equal(t, config.DefaultMoveTimeMs, scenario.TimeControl.MoveTimeMs)
	assert.Equal(t, config.DefaultNegotiationMs, scenario.Engine.Timeouts.NegotiationMs)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, minimalScenario+"flow_token: abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow_token")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nengine: {name: e}\nsteps: [{tick: 1}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nengine: {name: e}\nsteps: [{tick: 1}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "description is required",
		},
		{
			name:    "missing engine",
			yaml:    "name: n\ndescription: d\nsteps: [{tick: 1}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "engine",
		},
		{
			name:    "bad protocol",
			yaml:    "name: n\ndescription: d\nengine: {name: e, protocol: telnet}\nsteps: [{tick: 1}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "unknown protocol",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nassertions: [{type: final_state, state: idle}]",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{tick: 1}]",
			wantErr: "assertions list is required",
		},
		{
			name:    "two kinds in one step",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{tick: 1, call: go}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "exactly one of",
		},
		{
			name:    "empty step",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "exactly one of",
		},
		{
			name:    "unknown call",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{call: resign}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: `unknown call "resign"`,
		},
		{
			name:    "move without coordinates",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{call: move, move: Nf3}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "needs a coordinate move",
		},
		{
			name:    "set_clock without clock",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{call: set_clock}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "set_clock needs clock",
		},
		{
			name:    "report_result bad side",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{call: report_result, result: {type: win, reason: mate, side: red}}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: `unknown side "red"`,
		},
		{
			name:    "script rule without command",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nscript: [{reply: [x]}]\nsteps: [{tick: 1}]\nassertions: [{type: final_state, state: idle}]",
			wantErr: "script[0]: on is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{tick: 1}]\nassertions: [{type: state_is}]",
			wantErr: `unknown assertion type "state_is"`,
		},
		{
			name:    "trace_contains without entry",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{tick: 1}]\nassertions: [{type: trace_contains}]",
			wantErr: "entry is required for trace_contains",
		},
		{
			name:    "trace_order without entries",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{tick: 1}]\nassertions: [{type: trace_order}]",
			wantErr: "entries list is required",
		},
		{
			name:    "final_state without expectation",
			yaml:    "name: n\ndescription: d\nengine: {name: e}\nsteps: [{tick: 1}]\nassertions: [{type: final_state}]",
			wantErr: "state or features is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_AllTestdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
