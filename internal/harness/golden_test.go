package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	result, err := Run(loadScenario(t, "negotiation_timeout"))
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "negotiation_timeout", result))
}

func TestMarshalTrace(t *testing.T) {
	data, err := MarshalTrace([]TraceEntry{
		{Seq: 1, Type: EntryStep, Text: "attach"},
		{Seq: 2, Type: EntryEvent, Text: "result", Result: "loss", Reason: "crash"},
	})
	require.NoError(t, err)

	want := `{"seq":1,"text":"attach","type":"step"}` + "\n" +
		`{"reason":"crash","result":"loss","seq":2,"text":"result","type":"event"}` + "\n"
	assert.Equal(t, want, string(data))
}

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": true, "c": "x"}, `{"a":true,"b":1,"c":"x"}`},
		{"nested", map[string]any{"z": []any{int64(2), "y"}, "a": map[string]any{}}, `{"a":{},"z":[2,"y"]}`},
		{"no html escape", "<a & b>", `"<a & b>"`},
		{"control chars", "a\tb\n\x01", `"a\tb\n\u0001"`},
		{"quotes", `say "hi" \o/`, `"say \"hi\" \\o/"`},
		{"line separator stays literal", "a\u2028b", "\"a\u2028b\""},
		{"nfc", "cafe\u0301", "\"caf\u00e9\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := marshalCanonical(map[string]any{"x": 1.5})
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = marshalCanonical([]any{nil})
	assert.ErrorContains(t, err, "null is forbidden")

	_, err = marshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// By code point U+FF61 comes first; in UTF-16 the emoji is a surrogate
	// pair starting 0xD83D and sorts ahead of it.
	keys := sortedKeys(map[string]any{"\uff61": 1, "\U0001F600": 2, "a": 3})
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, keys)
}
