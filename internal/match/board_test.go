package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/logging"
)

func TestCoordinateBoard(t *testing.T) {
	b := NewCoordinateBoard()

	m, san, err := b.Apply("e2e4", chess.White)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", m.String())
	assert.Empty(t, san)

	_, _, err = b.Apply("d2d4", chess.White)
	assert.ErrorContains(t, err, "black to move")

	_, _, err = b.Apply("Nf6", chess.Black)
	assert.Error(t, err)

	_, _, err = b.Apply("e7e8q", chess.Black)
	require.NoError(t, err)
	assert.Len(t, b.Moves(), 2)

	_, _, over := b.Outcome()
	assert.False(t, over)

	b.Reset()
	assert.Empty(t, b.Moves())
	_, _, err = b.Apply("g1f3", chess.White)
	assert.NoError(t, err)
}

func TestRulesBoard(t *testing.T) {
	b := NewRulesBoard()

	m, san, err := b.Apply("e2e4", chess.White)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", m.String())
	assert.Equal(t, "e4", san)

	_, _, err = b.Apply("d2d4", chess.White)
	assert.ErrorContains(t, err, "black to move")

	m, san, err = b.Apply("Nf6", chess.Black)
	require.NoError(t, err)
	assert.Equal(t, "g8f6", m.String())
	assert.Equal(t, "Nf6", san)

	_, _, err = b.Apply("e4e6", chess.White)
	assert.ErrorContains(t, err, "illegal")
	_, _, err = b.Apply("e9e4", chess.White)
	assert.Error(t, err)

	_, _, over := b.Outcome()
	assert.False(t, over)

	b.Reset()
	_, _, err = b.Apply("e7e5", chess.White)
	assert.Error(t, err)
	_, san, err = b.Apply("g1f3", chess.White)
	require.NoError(t, err)
	assert.Equal(t, "Nf3", san)
}

func TestRulesBoard_Mate(t *testing.T) {
	b := NewRulesBoard()
	var san string
	for i, text := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		var err error
		_, san, err = b.Apply(text, chess.Side(1-i%2))
		require.NoError(t, err, text)
	}
	assert.True(t, strings.HasPrefix(san, "Qh4"))

	result, reason, over := b.Outcome()
	assert.True(t, over)
	assert.Equal(t, chess.Loss, result)
	assert.Equal(t, chess.Mate, reason)

	_, _, err := b.Apply("e1f2", chess.White)
	assert.ErrorContains(t, err, "game is over")
}

func TestRulesBoard_Repetition(t *testing.T) {
	b := NewRulesBoard()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	plies := 0
	for plies < 12 {
		_, _, err := b.Apply(shuffle[plies%4], chess.Side(1-plies%2))
		require.NoError(t, err)
		plies++
		if _, _, over := b.Outcome(); over {
			break
		}
	}

	result, reason, over := b.Outcome()
	require.True(t, over)
	assert.Equal(t, chess.Draw, result)
	assert.Equal(t, chess.Repetition, reason)
	assert.Contains(t, []int{8, 12}, plies)
}

func TestTranscript_RecordsOnlyDuringGame(t *testing.T) {
	tr := NewTranscript()
	tr.Line("crafty", logging.Outbound, "xboard")

	tr.Begin("g1")
	tr.Line("crafty", logging.Outbound, "go")
	tr.Line("crafty", logging.Inbound, "move e2e4")
	lines := tr.End()
	tr.Line("crafty", logging.Outbound, "quit")

	require.Len(t, lines, 2)
	assert.Equal(t, "g1", lines[0].GameID)
	assert.Equal(t, int64(1), lines[0].Seq)
	assert.Equal(t, "->", lines[0].Direction)
	assert.Equal(t, int64(2), lines[1].Seq)
	assert.Equal(t, "<-", lines[1].Direction)
	assert.Equal(t, "move e2e4", lines[1].Text)
	assert.Empty(t, tr.End())

	tr.Begin("g2")
	tr.Line("fish", logging.Inbound, "readyok")
	lines = tr.End()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].Seq)
}

func TestIDGenerators(t *testing.T) {
	seq := NewSequenceGenerator("")
	assert.Equal(t, "game-1", seq.Generate())
	assert.Equal(t, "game-2", seq.Generate())
	assert.Equal(t, "m-1", NewSequenceGenerator("m").Generate())

	a, b := UUIDv7Generator{}.Generate(), UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
