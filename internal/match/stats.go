package match

import (
	"fmt"
	"math"

	"github.com/roach88/wbarena/internal/chess"
)

// Stat summarises a match from the first engine's point of view.
// https://www.chessprogramming.org/Match_Statistics
type Stat struct {
	Score   float64 `json:"score"`
	EloDiff float64 `json:"elo_diff"`
	LOS     float64 `json:"los"`
}

// ComputeStat derives score, Elo difference and likelihood of superiority.
// A clean sweep gives an infinite Elo difference; callers rendering JSON
// should check math.IsInf.
func ComputeStat(wins, losses, draws int) Stat {
	games := wins + losses + draws
	if games == 0 {
		return Stat{Score: 0.5, LOS: 0.5}
	}
	score := (float64(wins) + 0.5*float64(draws)) / float64(games)
	elo := -math.Log(1/score-1) * 400 / math.Ln10

	los := 0.5
	if wins+losses > 0 {
		los = 0.5 + 0.5*math.Erf(float64(wins-losses)/math.Sqrt(2*float64(wins+losses)))
	}
	return Stat{Score: score, EloDiff: elo, LOS: los}
}

// Summary accumulates finished games. First is the engine configured as
// match.white; Wins, Losses and Draws count from its side.
type Summary struct {
	First      string    `json:"first"`
	Second     string    `json:"second"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Draws      int       `json:"draws"`
	Unfinished int       `json:"unfinished"`
	Outcomes   []Outcome `json:"games"`
}

// Games returns the number of outcomes recorded.
func (s *Summary) Games() int {
	return len(s.Outcomes)
}

// Add records o.
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)

	side := chess.Black
	if o.FirstWhite {
		side = chess.White
	}
	switch chess.ResultFromScore(o.Score(), side) {
	case chess.Win:
		s.Wins++
	case chess.Loss:
		s.Losses++
	case chess.Draw:
		s.Draws++
	default:
		s.Unfinished++
	}
}

// Stat computes statistics over the decided games.
func (s *Summary) Stat() Stat {
	return ComputeStat(s.Wins, s.Losses, s.Draws)
}

func (s *Summary) String() string {
	st := s.Stat()
	return fmt.Sprintf("%s vs %s: %d - %d - %d [%.3f] %d, Elo difference: %.1f, LOS: %.1f %%",
		s.First, s.Second, s.Wins, s.Losses, s.Draws, st.Score, s.Games(), st.EloDiff, st.LOS*100)
}
