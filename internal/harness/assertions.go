package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", entry.Seq, entry.Key())
		}
	}
	return buf.String()
}

// assertTraceContains checks that some entry has the given key.
func assertTraceContains(trace []TraceEntry, a Assertion) error {
	for _, entry := range trace {
		if entry.Key() == a.Entry {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.Entry,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the entries appear in order. Other entries
// may appear between them.
func assertTraceOrder(trace []TraceEntry, a Assertion) error {
	next := 0
	last := int64(0)
	for _, entry := range trace {
		if next == len(a.Entries) {
			break
		}
		if entry.Key() == a.Entries[next] {
			next++
			last = entry.Seq
		}
	}
	if next == len(a.Entries) {
		return nil
	}

	actual := fmt.Sprintf("%q not found", a.Entries[next])
	if next > 0 {
		actual = fmt.Sprintf("%q not found after seq %d", a.Entries[next], last)
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("entries in order: %q", a.Entries),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertTraceCount checks that the key appears exactly Count times.
func assertTraceCount(trace []TraceEntry, a Assertion) error {
	count := 0
	for _, entry := range trace {
		if entry.Key() == a.Entry {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Entry),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the engine state after the last step and a
// subset of its negotiated features.
func assertFinalState(result *Result, a Assertion) error {
	if a.State != "" && result.State != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "state " + a.State,
			Actual:   "state " + result.State,
		}
	}

	for _, name := range slices.Sorted(maps.Keys(a.Features)) {
		want := a.Features[name]
		got, ok := result.Features[name]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("feature %s=%s", name, want),
				Actual:   "feature not negotiated",
			}
		}
		if got != want {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("feature %s=%s", name, want),
				Actual:   fmt.Sprintf("feature %s=%s", name, got),
			}
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions against a result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
