package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

// createTestGame writes a started game and returns it.
func createTestGame(t *testing.T, s *Store, id string, number int) Game {
	t.Helper()
	g := Game{
		ID:          id,
		Number:      number,
		White:       "crafty",
		Black:       "fish",
		TimeControl: "40/60+1",
		StartedAt:   testStart.Add(time.Duration(number) * time.Minute),
		Result:      "*",
	}
	if err := s.WriteGame(context.Background(), g); err != nil {
		t.Fatalf("WriteGame() failed: %v", err)
	}
	return g
}
