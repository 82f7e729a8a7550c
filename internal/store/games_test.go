package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGame_Idempotent(t *testing.T) {
	s := createTestStore(t)
	g := createTestGame(t, s, "g1", 1)

	g.White = "someone-else"
	require.NoError(t, s.WriteGame(context.Background(), g))

	got, _, err := s.ReadGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "crafty", got.White)
}

func TestFinishGame(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	g := createTestGame(t, s, "g1", 1)
	finished := g.StartedAt.Add(90 * time.Second)

	require.NoError(t, s.FinishGame(ctx, "g1", "0-1", "resign", 41, finished))

	got, moves, err := s.ReadGame(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.Equal(t, "0-1", got.Result)
	assert.Equal(t, "resign", got.Reason)
	assert.Equal(t, 41, got.Plies)
	assert.True(t, got.Finished())
	assert.True(t, finished.Equal(got.FinishedAt))
	assert.True(t, g.StartedAt.Equal(got.StartedAt))
}

func TestFinishGame_Unknown(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishGame(context.Background(), "missing", "1-0", "mate", 1, testStart)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReadGame_Unknown(t *testing.T) {
	s := createTestStore(t)
	_, _, err := s.ReadGame(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWriteMove_OrderAndInfo(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g1", 1)

	// Written out of order; read back by ply.
	require.NoError(t, s.WriteMove(ctx, Move{GameID: "g1", Ply: 2, Side: "b", Move: "e7e5", ElapsedMs: 80}))
	require.NoError(t, s.WriteMove(ctx, Move{
		GameID: "g1", Ply: 1, Side: "w", Move: "e2e4", ElapsedMs: 120,
		Info: MoveInfo{Depth: 12, Score: 31, Nodes: 120000, PV: "e2e4 e7e5 <g1f3>"},
	}))
	// Duplicate ply is ignored.
	require.NoError(t, s.WriteMove(ctx, Move{GameID: "g1", Ply: 1, Side: "w", Move: "d2d4"}))

	_, moves, err := s.ReadGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, "e2e4", moves[0].Move)
	assert.Equal(t, 12, moves[0].Info.Depth)
	assert.Equal(t, "e2e4 e7e5 <g1f3>", moves[0].Info.PV)
	assert.Equal(t, "e7e5", moves[1].Move)
	assert.Equal(t, MoveInfo{}, moves[1].Info)
}

func TestWriteMove_RequiresGame(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteMove(context.Background(), Move{GameID: "nope", Ply: 1, Side: "w", Move: "e2e4"})
	assert.Error(t, err)
}

func TestMarshalInfo_NoHTMLEscaping(t *testing.T) {
	data, err := marshalInfo(MoveInfo{PV: "a7a8=Q <mate>"})
	require.NoError(t, err)
	assert.Equal(t, `{"pv":"a7a8=Q <mate>"}`, data)

	info, err := unmarshalInfo(data)
	require.NoError(t, err)
	assert.Equal(t, "a7a8=Q <mate>", info.PV)
}

func TestListGames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	assert.NotNil(t, games)
	assert.Empty(t, games)

	createTestGame(t, s, "g2", 2)
	createTestGame(t, s, "g1", 1)

	games, err = s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "g1", games[0].ID)
	assert.Equal(t, "g2", games[1].ID)
	assert.False(t, games[0].Finished())
	assert.Equal(t, "*", games[0].Result)
}

func TestTranscript(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g1", 1)

	lines := []Line{
		{Seq: 1, Engine: "crafty", Direction: "->", Text: "new"},
		{Seq: 2, Engine: "crafty", Direction: "->", Text: "go"},
		{Seq: 3, Engine: "crafty", Direction: "<-", Text: "move e2e4"},
	}
	require.NoError(t, s.WriteTranscript(ctx, "g1", lines))
	// Repeated lines are ignored; new ones append.
	require.NoError(t, s.WriteTranscript(ctx, "g1", []Line{
		{Seq: 3, Engine: "crafty", Direction: "<-", Text: "move d2d4"},
		// "e" followed by a combining acute accent normalizes to one rune.
		{Seq: 4, Engine: "fish", Direction: "<-", Text: "info string cafe\u0301"},
	}))
	require.NoError(t, s.WriteTranscript(ctx, "g1", nil))

	got, err := s.ReadTranscript(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "move e2e4", got[2].Text)
	assert.Equal(t, "info string caf\u00e9", got[3].Text)
	assert.Equal(t, "g1", got[0].GameID)
}

func TestTranscript_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteTranscript(context.Background(), "missing", []Line{{Seq: 1, Engine: "x", Direction: "->", Text: "new"}})
	require.Error(t, err)

	got, err := s.ReadTranscript(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
