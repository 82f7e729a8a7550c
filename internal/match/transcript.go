package match

import (
	"sync"

	"github.com/roach88/wbarena/internal/logging"
	"github.com/roach88/wbarena/internal/store"
)

// Transcript buffers the protocol lines of one game for the store.
//
// It is registered as a protocol.LineObserver on both engines of a worker
// and only records between Begin and End, so handshakes and lines between
// games are not kept. Engines call Line from their tick goroutines.
type Transcript struct {
	mu     sync.Mutex
	gameID string
	seq    int64
	lines  []store.Line
}

// NewTranscript returns an idle transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Begin starts recording for gameID, discarding anything buffered.
func (t *Transcript) Begin(gameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gameID = gameID
	t.seq = 0
	t.lines = nil
}

// Line records one protocol line if a game is being recorded.
func (t *Transcript) Line(engine string, dir logging.Direction, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gameID == "" {
		return
	}
	t.seq++
	t.lines = append(t.lines, store.Line{
		GameID:    t.gameID,
		Seq:       t.seq,
		Engine:    engine,
		Direction: string(dir),
		Text:      text,
	})
}

// End stops recording and returns the buffered lines.
func (t *Transcript) End() []store.Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := t.lines
	t.gameID = ""
	t.lines = nil
	return lines
}
