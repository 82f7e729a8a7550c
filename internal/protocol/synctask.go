package protocol

import (
	"sync"

	"github.com/roach88/wbarena/internal/chess"
)

// SyncTaskKind names the commands that must wait for the engine to be ready.
type SyncTaskKind int

const (
	SyncNewGame SyncTaskKind = iota
	SyncGo
	SyncUserMove
)

func (k SyncTaskKind) String() string {
	switch k {
	case SyncNewGame:
		return "newgame"
	case SyncGo:
		return "go"
	case SyncUserMove:
		return "usermove"
	}
	return "unknown"
}

// SyncTask is one deferred command. Move and SAN are set for SyncUserMove
// and for a pondering SyncGo.
type SyncTask struct {
	Kind   SyncTaskKind
	Ponder bool
	Move   chess.Move
	SAN    string
}

// SyncTaskQueue is a FIFO of deferred commands with its own mutex. Callers
// enqueue from any goroutine; only the tick goroutine runs the head, so at
// most one task is ever executing.
type SyncTaskQueue struct {
	mu    sync.Mutex
	tasks []SyncTask
}

// NewSyncTaskQueue returns an empty queue.
func NewSyncTaskQueue() *SyncTaskQueue {
	return &SyncTaskQueue{}
}

// Enqueue appends t. NewGame and Go are idempotent while pending: a second
// one of the same kind is dropped and Enqueue returns false.
func (q *SyncTaskQueue) Enqueue(t SyncTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.Kind != SyncUserMove {
		for _, pending := range q.tasks {
			if pending.Kind == t.Kind {
				return false
			}
		}
	}
	q.tasks = append(q.tasks, t)
	return true
}

// TryRunHead removes the head and runs it when ready(head) holds.
// ready is evaluated under the queue lock; run is called after releasing
// it. Returns whether a task ran.
func (q *SyncTaskQueue) TryRunHead(ready func(SyncTask) bool, run func(SyncTask)) bool {
	q.mu.Lock()
	if len(q.tasks) == 0 || !ready(q.tasks[0]) {
		q.mu.Unlock()
		return false
	}
	head := q.tasks[0]
	q.tasks = q.tasks[1:]
	q.mu.Unlock()

	run(head)
	return true
}

// Head returns the next task without removing it.
func (q *SyncTaskQueue) Head() (SyncTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return SyncTask{}, false
	}
	return q.tasks[0], true
}

// Pending reports whether a task of kind is queued.
func (q *SyncTaskQueue) Pending(kind SyncTaskKind) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

// Len returns the number of queued tasks.
func (q *SyncTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Clear drops every queued task and returns how many were dropped.
func (q *SyncTaskQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	q.tasks = nil
	return n
}
