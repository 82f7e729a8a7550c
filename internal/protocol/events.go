package protocol

import (
	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/logging"
)

// EventKind tags an Event.
type EventKind int

const (
	// EventReady: negotiation finished (or timed out) and the engine is Idle.
	EventReady EventKind = iota
	// EventMove: the engine played Move (MoveText holds the raw token).
	EventMove
	// EventResult: the game is over from this engine's point of view.
	EventResult
	// EventInfo: a line of search output.
	EventInfo
	// EventClaim: the engine claimed a result ("1-0 {White mates}").
	EventClaim
	// EventDrawOffer: the engine offered a draw.
	EventDrawOffer
	// EventDiagnostic: an engine error or protocol violation worth surfacing.
	EventDiagnostic
)

var eventKindNames = [...]string{"ready", "move", "result", "info", "claim", "draw_offer", "diagnostic"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is what an engine reports upward. Results are always from the
// reporting engine's own perspective.
type Event struct {
	Kind   EventKind
	Engine string
	Tick   int

	// EventMove
	Move       chess.Move
	MoveText   string
	PonderText string

	// EventResult, EventClaim
	Result chess.Result
	Claim  string // white-relative score token as sent by the engine

	Comment string
	Info    *SearchInfo
	Err     error
}

// SearchInfo is one parsed line of thinking output.
type SearchInfo struct {
	Depth  int    `json:"depth"`
	Score  int    `json:"score"` // centipawns
	Mate   int    `json:"mate,omitempty"`
	TimeMs int64  `json:"time_ms"`
	Nodes  int64  `json:"nodes"`
	PV     string `json:"pv,omitempty"`
}

// EventHandler receives events after the engine's state lock is released.
// It runs on the tick goroutine and must not block for long.
type EventHandler func(Event)

// LineObserver sees every protocol line in both directions.
// *logging.Console satisfies it.
type LineObserver interface {
	Line(engine string, dir logging.Direction, line string)
}

// Clock is the remaining time the driver reports before each Go.
type Clock struct {
	OwnMs int
	OppMs int
}
