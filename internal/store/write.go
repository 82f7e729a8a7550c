package store

import (
	"context"
	"fmt"
	"time"
)

// WriteGame inserts a game row when the game starts.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteGame(ctx context.Context, g Game) error {
	result := g.Result
	if result == "" {
		result = "*"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games
		(id, number, white, black, time_control, started_at, finished_at, result, reason, plies)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		g.ID,
		g.Number,
		g.White,
		g.Black,
		g.TimeControl,
		formatTime(g.StartedAt),
		formatTime(g.FinishedAt),
		result,
		g.Reason,
		g.Plies,
	)
	if err != nil {
		return fmt.Errorf("write game: %w", err)
	}
	return nil
}

// FinishGame records the outcome of a game written by WriteGame.
// Returns ErrNotFound if the game does not exist.
func (s *Store) FinishGame(ctx context.Context, id, result, reason string, plies int, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE games
		SET result = ?, reason = ?, plies = ?, finished_at = ?
		WHERE id = ?
	`, result, reason, plies, formatTime(finishedAt), id)
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish game %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteMove inserts one ply. Replaying the same ply is a no-op.
//
// Note: The game referenced by GameID must exist (foreign key constraint).
func (s *Store) WriteMove(ctx context.Context, m Move) error {
	infoJSON, err := marshalInfo(m.Info)
	if err != nil {
		return fmt.Errorf("write move: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO moves
		(game_id, ply, side, move, elapsed_ms, info)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, ply) DO NOTHING
	`, m.GameID, m.Ply, m.Side, m.Move, m.ElapsedMs, infoJSON)
	if err != nil {
		return fmt.Errorf("write move: %w", err)
	}
	return nil
}

// WriteTranscript appends lines for one game in a single transaction.
// Lines keep their Seq; a repeated (game, seq) pair is ignored.
func (s *Store) WriteTranscript(ctx context.Context, gameID string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write transcript: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript (game_id, seq, engine, direction, line)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(game_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write transcript: prepare: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, gameID, l.Seq, l.Engine, l.Direction, normalizeText(l.Text)); err != nil {
			return fmt.Errorf("write transcript line %d: %w", l.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write transcript: commit: %w", err)
	}
	return nil
}
