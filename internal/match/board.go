package match

import (
	"fmt"

	rules "github.com/notnil/chess"

	"github.com/roach88/wbarena/internal/chess"
)

// Board validates moves and detects game ends. The match driver knows no
// chess rules itself; a rules-aware Board plugs in here.
type Board interface {
	// Reset returns to the initial position with white to move.
	Reset()

	// Apply plays text for side and returns the parsed move plus its SAN
	// rendering, which may be empty when the board cannot produce one.
	Apply(text string, side chess.Side) (chess.Move, string, error)

	// Outcome reports a finished game. result is white-relative.
	Outcome() (result chess.ResultType, reason chess.ReasonType, over bool)
}

// RulesBoard plays full chess rules. It accepts coordinate or SAN moves,
// renders SAN for engines that asked for it, and ends games on mate,
// stalemate, repetition, the fifty-move rule and insufficient material.
// Threefold repetition and fifty moves are claimed as soon as they apply.
type RulesBoard struct {
	game *rules.Game
}

// NewRulesBoard returns a board at the initial position.
func NewRulesBoard() *RulesBoard {
	b := &RulesBoard{}
	b.Reset()
	return b
}

func (b *RulesBoard) Reset() {
	b.game = rules.NewGame()
}

func (b *RulesBoard) Apply(text string, side chess.Side) (chess.Move, string, error) {
	if b.game.Outcome() != rules.NoOutcome {
		return chess.NullMove, "", fmt.Errorf("move %q: game is over", text)
	}
	pos := b.game.Position()
	if turn := sideOf(pos.Turn()); turn != side {
		return chess.NullMove, "", fmt.Errorf("%s to move, got move from %s", turn.LongString(), side.LongString())
	}

	legal, err := b.find(pos, text)
	if err != nil {
		return chess.NullMove, "", err
	}
	san := rules.AlgebraicNotation{}.Encode(pos, legal)
	if err := b.game.Move(legal); err != nil {
		return chess.NullMove, "", fmt.Errorf("move %q: %w", text, err)
	}
	b.claimDraw()

	m, err := chess.ParseCoordinateMove(legal.String())
	if err != nil {
		return chess.NullMove, "", err
	}
	return m, san, nil
}

// find resolves text against the legal moves of pos. Coordinate notation
// is tried first, then SAN.
func (b *RulesBoard) find(pos *rules.Position, text string) (*rules.Move, error) {
	if m, err := chess.ParseCoordinateMove(text); err == nil {
		want := m.String()
		for _, legal := range b.game.ValidMoves() {
			if legal.String() == want {
				return legal, nil
			}
		}
		return nil, fmt.Errorf("move %q: illegal in this position", text)
	}
	decoded, err := rules.AlgebraicNotation{}.Decode(pos, text)
	if err != nil {
		return nil, fmt.Errorf("move %q: %w", text, err)
	}
	for _, legal := range b.game.ValidMoves() {
		if legal.String() == decoded.String() {
			return legal, nil
		}
	}
	return nil, fmt.Errorf("move %q: illegal in this position", text)
}

func (b *RulesBoard) claimDraw() {
	if b.game.Outcome() != rules.NoOutcome {
		return
	}
	for _, method := range b.game.EligibleDraws() {
		if method == rules.ThreefoldRepetition || method == rules.FiftyMoveRule {
			_ = b.game.Draw(method)
			return
		}
	}
}

func (b *RulesBoard) Outcome() (chess.ResultType, chess.ReasonType, bool) {
	var result chess.ResultType
	switch b.game.Outcome() {
	case rules.WhiteWon:
		result = chess.Win
	case rules.BlackWon:
		result = chess.Loss
	case rules.Draw:
		result = chess.Draw
	default:
		return chess.NoResult, chess.NoReason, false
	}

	switch b.game.Method() {
	case rules.Checkmate:
		return result, chess.Mate, true
	case rules.Stalemate:
		return result, chess.Stalemate, true
	case rules.ThreefoldRepetition, rules.FivefoldRepetition:
		return result, chess.Repetition, true
	case rules.FiftyMoveRule, rules.SeventyFiveMoveRule:
		return result, chess.FiftyMoves, true
	case rules.InsufficientMaterial:
		return result, chess.InsufficientMaterial, true
	}
	return result, chess.Adjudication, true
}

func sideOf(c rules.Color) chess.Side {
	if c == rules.Black {
		return chess.Black
	}
	return chess.White
}

// CoordinateBoard accepts any well-formed coordinate move from the side to
// move. It never ends a game and cannot render SAN, so it is only fit for
// engines that read coordinate moves.
type CoordinateBoard struct {
	toMove chess.Side
	moves  []chess.Move
}

// NewCoordinateBoard returns a board at the initial position.
func NewCoordinateBoard() *CoordinateBoard {
	b := &CoordinateBoard{}
	b.Reset()
	return b
}

func (b *CoordinateBoard) Reset() {
	b.toMove = chess.White
	b.moves = b.moves[:0]
}

func (b *CoordinateBoard) Apply(text string, side chess.Side) (chess.Move, string, error) {
	if side != b.toMove {
		return chess.NullMove, "", fmt.Errorf("%s to move, got move from %s", b.toMove.LongString(), side.LongString())
	}
	m, err := chess.ParseCoordinateMove(text)
	if err != nil {
		return chess.NullMove, "", err
	}
	b.moves = append(b.moves, m)
	b.toMove = side.Opposite()
	return m, "", nil
}

func (b *CoordinateBoard) Outcome() (chess.ResultType, chess.ReasonType, bool) {
	return chess.NoResult, chess.NoReason, false
}

// Moves returns the moves played so far.
func (b *CoordinateBoard) Moves() []chess.Move {
	return append([]chess.Move(nil), b.moves...)
}
