package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wbarena/internal/chess"
)

func TestSyncTaskQueue_LikeKindIsIdempotent(t *testing.T) {
	q := NewSyncTaskQueue()

	assert.True(t, q.Enqueue(SyncTask{Kind: SyncNewGame}))
	assert.False(t, q.Enqueue(SyncTask{Kind: SyncNewGame}))
	assert.True(t, q.Enqueue(SyncTask{Kind: SyncGo}))
	assert.False(t, q.Enqueue(SyncTask{Kind: SyncGo, Ponder: true}))
	assert.Equal(t, 2, q.Len())
}

func TestSyncTaskQueue_UserMovesAccumulate(t *testing.T) {
	q := NewSyncTaskQueue()
	e2e4, _ := chess.ParseCoordinateMove("e2e4")
	d2d4, _ := chess.ParseCoordinateMove("d2d4")

	assert.True(t, q.Enqueue(SyncTask{Kind: SyncUserMove, Move: e2e4}))
	assert.True(t, q.Enqueue(SyncTask{Kind: SyncUserMove, Move: d2d4}))
	assert.Equal(t, 2, q.Len())

	head, ok := q.Head()
	require.True(t, ok)
	assert.Equal(t, e2e4, head.Move)
}

func TestSyncTaskQueue_TryRunHead(t *testing.T) {
	q := NewSyncTaskQueue()
	q.Enqueue(SyncTask{Kind: SyncNewGame})
	q.Enqueue(SyncTask{Kind: SyncGo})

	var ran []SyncTaskKind
	run := func(task SyncTask) { ran = append(ran, task.Kind) }

	assert.False(t, q.TryRunHead(func(SyncTask) bool { return false }, run))
	assert.Empty(t, ran)
	assert.Equal(t, 2, q.Len())

	assert.True(t, q.TryRunHead(func(SyncTask) bool { return true }, run))
	assert.Equal(t, []SyncTaskKind{SyncNewGame}, ran)

	// The head is removed before run, so run may enqueue without deadlock.
	assert.True(t, q.TryRunHead(func(SyncTask) bool { return true }, func(task SyncTask) {
		ran = append(ran, task.Kind)
		q.Enqueue(SyncTask{Kind: SyncGo})
	}))
	assert.Equal(t, []SyncTaskKind{SyncNewGame, SyncGo}, ran)
	assert.True(t, q.Pending(SyncGo))
}

func TestSyncTaskQueue_EmptyAndClear(t *testing.T) {
	q := NewSyncTaskQueue()
	assert.False(t, q.TryRunHead(func(SyncTask) bool { return true }, func(SyncTask) {
		t.Fatal("run called on empty queue")
	}))

	q.Enqueue(SyncTask{Kind: SyncNewGame})
	q.Enqueue(SyncTask{Kind: SyncGo})
	assert.Equal(t, 2, q.Clear())
	assert.Zero(t, q.Len())
	_, ok := q.Head()
	assert.False(t, ok)

	// Kinds may be queued again after Clear.
	assert.True(t, q.Enqueue(SyncTask{Kind: SyncNewGame}))
}

func TestPingState(t *testing.T) {
	var p PingState
	assert.False(t, p.Outstanding())

	assert.Equal(t, 1, p.next())
	assert.True(t, p.Outstanding())

	// Future and garbage pongs never move Pong past Expecting.
	assert.False(t, p.receive(5))
	assert.Equal(t, PingState{Sent: 1, Expecting: 1, Pong: 0}, p)

	assert.True(t, p.receive(1))
	assert.False(t, p.Outstanding())

	p.next()
	p.next()
	assert.False(t, p.receive(2))
	assert.Equal(t, PingState{Sent: 3, Expecting: 3, Pong: 2}, p)
	assert.True(t, p.Outstanding())

	p.settle()
	assert.False(t, p.Outstanding())
	assert.LessOrEqual(t, p.Pong, p.Expecting)
	assert.LessOrEqual(t, p.Expecting, p.Sent)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "waiting_sync", StateWaitingSync.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateWaitingSync.IsIdle())
	assert.True(t, StatePondering.IsSearching())
	assert.False(t, StateCrashed.IsLive())
	assert.True(t, StateNegotiating.IsLive())
}
