package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a game id does not exist.
var ErrNotFound = errors.New("game not found")

// ListGames returns every game ordered by start time, then id.
//
// Returns an empty slice (not nil) if there are no games.
func (s *Store) ListGames(ctx context.Context) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, white, black, time_control, started_at, finished_at, result, reason, plies
		FROM games
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

// ReadGame returns one game with its moves ordered by ply.
// Returns ErrNotFound if the id is unknown.
func (s *Store) ReadGame(ctx context.Context, id string) (Game, []Move, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, white, black, time_control, started_at, finished_at, result, reason, plies
		FROM games
		WHERE id = ?
	`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, nil, fmt.Errorf("read game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Game{}, nil, err
	}

	moves, err := s.readMoves(ctx, id)
	if err != nil {
		return Game{}, nil, err
	}
	return g, moves, nil
}

func (s *Store) readMoves(ctx context.Context, gameID string) ([]Move, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, ply, side, move, elapsed_ms, info
		FROM moves
		WHERE game_id = ?
		ORDER BY ply ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	moves := []Move{}
	for rows.Next() {
		var m Move
		var infoJSON string
		if err := rows.Scan(&m.GameID, &m.Ply, &m.Side, &m.Move, &m.ElapsedMs, &infoJSON); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		if m.Info, err = unmarshalInfo(infoJSON); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

// ReadTranscript returns the protocol lines of one game ordered by seq.
func (s *Store) ReadTranscript(ctx context.Context, gameID string) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, seq, engine, direction, line
		FROM transcript
		WHERE game_id = ?
		ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.GameID, &l.Seq, &l.Engine, &l.Direction, &l.Text); err != nil {
			return nil, fmt.Errorf("scan transcript line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return lines, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (Game, error) {
	var g Game
	var started, finished string
	if err := row.Scan(
		&g.ID, &g.Number, &g.White, &g.Black, &g.TimeControl,
		&started, &finished, &g.Result, &g.Reason, &g.Plies,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Game{}, err
		}
		return Game{}, fmt.Errorf("scan game: %w", err)
	}

	var err error
	if g.StartedAt, err = parseTime(started); err != nil {
		return Game{}, err
	}
	if g.FinishedAt, err = parseTime(finished); err != nil {
		return Game{}, err
	}
	return g, nil
}
