package chess

import (
	"fmt"
	"strings"
)

// Side to move. Black is 0 so a Side indexes per-side arrays directly.
type Side int

const (
	Black Side = iota
	White
	NoSide
)

// Opposite returns the other side; NoSide stays NoSide.
func (s Side) Opposite() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	}
	return NoSide
}

// String returns "w"/"b"/"-".
func (s Side) String() string {
	switch s {
	case White:
		return "w"
	case Black:
		return "b"
	}
	return "-"
}

// LongString returns "white"/"black"/"none".
func (s Side) LongString() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// ParseSide accepts the short and long forms, case-insensitively.
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return White
	case "b", "black":
		return Black
	}
	return NoSide
}

// ResultType is always expressed from one player's point of view
// (the engine reporting it) except in Score, which is white-relative.
type ResultType int

const (
	NoResult ResultType = iota
	Win
	Draw
	Loss
)

var resultStrings = []string{"*", "1-0", "1/2-1/2", "0-1"}

// String returns the PGN-style token, index-aligned with the enumeration.
func (t ResultType) String() string {
	if t < 0 || int(t) >= len(resultStrings) {
		return resultStrings[0]
	}
	return resultStrings[t]
}

// ParseResultType is the inverse of String; unknown text maps to NoResult.
func ParseResultType(s string) ResultType {
	for i, v := range resultStrings {
		if v == s {
			return ResultType(i)
		}
	}
	return NoResult
}

// Name returns the lower-case enumeration name.
func (t ResultType) Name() string {
	switch t {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Loss:
		return "loss"
	}
	return "noresult"
}

// ReasonType explains how a game ended.
type ReasonType int

const (
	NoReason ReasonType = iota
	Mate
	Stalemate
	Repetition
	Resign
	FiftyMoves
	InsufficientMaterial
	IllegalMove
	Timeout
	Adjudication
	Crash
)

var reasonStrings = []string{
	"*", "mate", "stalemate", "repetition", "resign", "fifty moves",
	"insufficient material", "illegal move", "timeout", "adjudication", "crash",
}

// String returns the human form, index-aligned with the enumeration.
func (r ReasonType) String() string {
	if r < 0 || int(r) >= len(reasonStrings) {
		return reasonStrings[0]
	}
	return reasonStrings[r]
}

// ParseReasonType is the inverse of String; unknown text maps to NoReason.
func ParseReasonType(s string) ReasonType {
	for i, v := range reasonStrings {
		if v == s {
			return ReasonType(i)
		}
	}
	return NoReason
}

// Result pairs the outcome with its reason.
type Result struct {
	Type   ResultType
	Reason ReasonType
}

// IsNone reports whether no result has been set.
func (r Result) IsNone() bool {
	return r.Type == NoResult && r.Reason == NoReason
}

func (r Result) String() string {
	return fmt.Sprintf("%s (%s)", r.Type.Name(), r.Reason)
}

// Flip swaps win and loss, turning one player's view into the opponent's.
func (r Result) Flip() Result {
	switch r.Type {
	case Win:
		r.Type = Loss
	case Loss:
		r.Type = Win
	}
	return r
}

// Score converts a result seen by side into the white-relative PGN token.
func (r Result) Score(side Side) string {
	t := r.Type
	if side == Black {
		t = r.Flip().Type
	}
	switch t {
	case Win:
		return "1-0"
	case Loss:
		return "0-1"
	case Draw:
		return "1/2-1/2"
	}
	return "*"
}

// ResultFromScore reads a white-relative PGN token as seen by side.
func ResultFromScore(score string, side Side) ResultType {
	switch score {
	case "1-0":
		if side == Black {
			return Loss
		}
		return Win
	case "0-1":
		if side == Black {
			return Win
		}
		return Loss
	case "1/2-1/2":
		return Draw
	}
	return NoResult
}

// FormatPeriod renders seconds as "[Nd ][h:]mm:ss".
func FormatPeriod(seconds int) string {
	s := seconds % 60
	minutes := seconds / 60
	m := minutes % 60
	hours := minutes / 60
	h := hours % 24
	d := hours / 24

	var sb strings.Builder
	if d > 0 {
		fmt.Fprintf(&sb, "%dd ", d)
	}
	if h > 0 {
		fmt.Fprintf(&sb, "%d:%02d:%02d", h, m, s)
	} else {
		fmt.Fprintf(&sb, "%d:%02d", m, s)
	}
	return sb.String()
}
