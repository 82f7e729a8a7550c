package store

import "time"

// Game is one row of the games table. Result is the white-relative score
// token ("1-0", "0-1", "1/2-1/2" or "*").
type Game struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"`
	White       string    `json:"white"`
	Black       string    `json:"black"`
	TimeControl string    `json:"time_control"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	Result      string    `json:"result"`
	Reason      string    `json:"reason,omitempty"`
	Plies       int       `json:"plies"`
}

// Finished reports whether a result has been recorded.
func (g Game) Finished() bool {
	return !g.FinishedAt.IsZero()
}

// Move is one ply. Side is "w" or "b".
type Move struct {
	GameID    string   `json:"-"`
	Ply       int      `json:"ply"`
	Side      string   `json:"side"`
	Move      string   `json:"move"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Info      MoveInfo `json:"info"`
}

// MoveInfo is the last search output the mover sent before moving.
type MoveInfo struct {
	Depth  int    `json:"depth,omitempty"`
	Score  int    `json:"score,omitempty"`
	Mate   int    `json:"mate,omitempty"`
	Nodes  int64  `json:"nodes,omitempty"`
	TimeMs int64  `json:"time_ms,omitempty"`
	PV     string `json:"pv,omitempty"`
}

// Line is one protocol line of a game transcript. Direction is "->" for
// lines sent to the engine and "<-" for lines read from it.
type Line struct {
	GameID    string `json:"-"`
	Seq       int64  `json:"seq"`
	Engine    string `json:"engine"`
	Direction string `json:"direction"`
	Text      string `json:"text"`
}
