// Package protocol implements the per-engine protocol state machine.
//
// An Engine wraps one engine process (via link.Link) and one dialect
// (WinBoard or UCI). Callers never talk to the process directly:
//
//   - NewGame, Go and GoPonder enqueue a SyncTask and return at once.
//   - Stop, OppositeMadeMove and ReportResult act immediately when the
//     engine is in a state that accepts them, otherwise they are queued or
//     deferred.
//   - Tick, driven by a ticker.Scheduler, drains engine output, runs the head
//     of the SyncTaskQueue when its readiness predicate holds and enforces
//     every deadline (negotiation, move, ping silence).
//
// Results come back as Events through the EventHandler passed at
// construction, never as return values: the engine's answer may arrive many
// ticks later or never.
//
// # Locking
//
// Four lock domains are involved, always acquired in this order:
//
//  1. the tick guard (ticker.Guard), taken with TryLock; overlapping ticks
//     are dropped
//  2. the engine state mutex, held by tick processing and by the direct
//     command handlers so that lines reach the process in a consistent order
//  3. the SyncTaskQueue mutex, taken by NewGame/Go from caller goroutines
//  4. the console lock inside logging.Console, one line at a time
//
// Events collected during a tick are dispatched after the state mutex is
// released, so handlers may call back into any engine, including the one
// that produced the event.
//
// # Deadlines
//
// Every wait is measured in ticks: negotiation (falls back to default
// features, never fatal), move (reported as a timeout), and ping silence
// (reported as a crash). None is retried past its deadline.
package protocol
