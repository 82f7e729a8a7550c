package harness

import (
	"fmt"

	"github.com/roach88/wbarena/internal/protocol"
)

// Trace entry types.
const (
	EntryStep  = "step"
	EntrySend  = "send"
	EntryRecv  = "recv"
	EntryEvent = "event"
	EntryState = "state"
)

// TraceEntry is one observation during a scenario run.
type TraceEntry struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Text    string `json:"text"`
	Move    string `json:"move,omitempty"`
	Result  string `json:"result,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Key returns the "<type> <text>" form assertions use.
func (e TraceEntry) Key() string {
	return e.Type + " " + e.Text
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEntry `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// State and Features are read from the engine after the last step.
	State    string            `json:"state"`
	Features map[string]string `json:"features,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEntry) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}

// eventEntry renders an engine event for the trace.
func eventEntry(ev protocol.Event) TraceEntry {
	e := TraceEntry{Type: EntryEvent, Text: ev.Kind.String()}
	switch ev.Kind {
	case protocol.EventMove:
		e.Move = ev.MoveText
	case protocol.EventResult:
		e.Result = ev.Result.Type.Name()
		e.Reason = ev.Result.Reason.String()
	case protocol.EventClaim:
		e.Result = ev.Claim
		e.Comment = ev.Comment
	case protocol.EventInfo:
		if ev.Info != nil {
			e.Comment = fmt.Sprintf("depth %d score %d pv %s", ev.Info.Depth, ev.Info.Score, ev.Info.PV)
		}
	default:
		e.Comment = ev.Comment
	}
	return e
}
