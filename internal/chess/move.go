package chess

import (
	"fmt"
	"strings"
)

// PieceType ordering is fixed: the letters line up with
// pieceTypeName so promotion suffixes round-trip.
type PieceType int

const (
	Empty PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

const pieceTypeName = ".kqrbnp"

// Move is an opaque from/to pair with an optional promotion piece.
// The zero value is not a valid move (From == To == 0).
type Move struct {
	From      int
	To        int
	Promotion PieceType
}

// NullMove is returned by parsers on failure.
var NullMove = Move{From: NoSquare, To: NoSquare}

// IsValid reports whether both squares are on the board and distinct.
func (m Move) IsValid() bool {
	return m.From >= 0 && m.From < 64 && m.To >= 0 && m.To < 64 && m.From != m.To
}

// String returns coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if !m.IsValid() {
		return "0000"
	}
	s := PosToCoordinateString(m.From) + PosToCoordinateString(m.To)
	if m.Promotion > King && m.Promotion < Pawn {
		s += string(pieceTypeName[m.Promotion])
	}
	return s
}

// ParseCoordinateMove parses "e2e4", "e7e8q" or "e7e8=Q".
// Castling must be given as king move (e1g1); SAN is rejected.
func ParseCoordinateMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return NullMove, fmt.Errorf("move %q: too short for coordinate notation", s)
	}
	from := CoordinateStringToPos(s[0:2])
	to := CoordinateStringToPos(s[2:4])
	if from == NoSquare || to == NoSquare || from == to {
		return NullMove, fmt.Errorf("move %q: not coordinate notation", s)
	}
	m := Move{From: from, To: to}

	rest := strings.TrimPrefix(s[4:], "=")
	switch len(rest) {
	case 0:
	case 1:
		idx := strings.IndexByte(pieceTypeName, strings.ToLower(rest)[0])
		if idx <= int(King) || idx >= int(Pawn) {
			return NullMove, fmt.Errorf("move %q: bad promotion piece", s)
		}
		m.Promotion = PieceType(idx)
	default:
		return NullMove, fmt.Errorf("move %q: trailing characters", s)
	}
	return m, nil
}

// IsCoordinateMove reports whether s parses as coordinate notation.
func IsCoordinateMove(s string) bool {
	_, err := ParseCoordinateMove(s)
	return err == nil
}
