// Package store provides SQLite-backed storage for played games.
//
// Three tables:
//   - games: one row per game, written when it starts and finished when
//     the result is known
//   - moves: one row per ply, with the search info the mover reported
//   - transcript: every protocol line exchanged during the game
//
// # Ordering
//
// Moves are keyed by ply and transcript lines by a per-game sequence
// number assigned by the writer. Queries order by those, never by
// timestamps, so two reads of the same game are identical.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Concurrent games share one Store. database/sql serializes access through
// the single connection the pool is limited to.
package store
