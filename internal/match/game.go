package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/wbarena/internal/chess"
	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/protocol"
	"github.com/roach88/wbarena/internal/store"
)

// drawOfferWindow is how many plies apart two draw offers may be and still
// count as an agreed draw.
const drawOfferWindow = 2

// Player is one side of a game.
type Player struct {
	Engine protocol.Engine

	// Seat is the mailbox seat the engine posts its events under.
	Seat int

	// Ponder starts a ponder search on the engine's predicted reply after
	// each of its moves. Only UCI engines need this; WinBoard engines ponder
	// on their own in hard mode.
	Ponder bool
}

// Outcome is how a game ended. Result is white-relative.
type Outcome struct {
	GameID     string
	Number     int
	White      string
	Black      string
	FirstWhite bool
	Result     chess.Result
	Plies      int
	Duration   time.Duration
}

// Score returns the PGN result token.
func (o Outcome) Score() string {
	return o.Result.Score(chess.White)
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string `json:"id"`
		Number     int    `json:"number"`
		White      string `json:"white"`
		Black      string `json:"black"`
		Result     string `json:"result"`
		Reason     string `json:"reason"`
		Plies      int    `json:"plies"`
		DurationMs int64  `json:"duration_ms"`
	}{o.GameID, o.Number, o.White, o.Black, o.Score(), o.Result.Reason.String(), o.Plies, o.Duration.Milliseconds()})
}

// Game plays one game between two attached engines.
//
// Both engines must post their events into Mailbox under their Player.Seat.
// Store and Transcript are optional.
type Game struct {
	ID     string
	Number int
	White  Player
	Black  Player

	// FirstWhite is carried into the Outcome for match statistics.
	FirstWhite bool

	Match      config.Match
	Board      Board
	Mailbox    *Mailbox
	Transcript *Transcript
	Store      *store.Store
	Logger     *slog.Logger
	Now        func() time.Time
}

// play is the mutable state of one Play call.
type play struct {
	*Game
	players  [2]Player // indexed by chess.Side
	clock    *Clock
	turn     chess.Side
	plies    int
	lastInfo [2]*protocol.SearchInfo
	offered  [2]int // ply of the latest draw offer, -1 for none
	result   chess.Result
	over     bool
}

// Play runs the game to its end and returns the outcome.
//
// The returned error is non-nil only when ctx was cancelled or the store
// failed; engine failures are outcomes, not errors.
func (g *Game) Play(ctx context.Context) (Outcome, error) {
	if err := g.validate(); err != nil {
		return Outcome{}, err
	}
	if g.Logger == nil {
		g.Logger = slog.Default()
	}
	if g.Now == nil {
		g.Now = time.Now
	}
	if g.Board == nil {
		g.Board = NewRulesBoard()
	}

	p := &play{
		Game:    g,
		clock:   NewClock(g.Match.TimeControl, g.Now),
		turn:    chess.White,
		offered: [2]int{-1, -1},
	}
	p.players[chess.White] = g.White
	p.players[chess.Black] = g.Black
	return p.run(ctx)
}

func (g *Game) validate() error {
	switch {
	case g.White.Engine == nil || g.Black.Engine == nil:
		return errors.New("game needs two engines")
	case g.White.Seat == g.Black.Seat:
		return fmt.Errorf("white and black share mailbox seat %d", g.White.Seat)
	case g.Mailbox == nil:
		return errors.New("game needs a mailbox")
	}
	return nil
}

func (p *play) run(ctx context.Context) (Outcome, error) {
	if n := p.Mailbox.Drain(); n > 0 {
		p.Logger.Debug("dropped stale engine events", "game", p.ID, "count", n)
	}
	if p.Transcript != nil {
		p.Transcript.Begin(p.ID)
	}
	p.Board.Reset()
	started := p.Now()

	if p.Store != nil {
		err := p.Store.WriteGame(ctx, store.Game{
			ID:          p.ID,
			Number:      p.Number,
			White:       p.White.Engine.Name(),
			Black:       p.Black.Engine.Name(),
			TimeControl: DescribeTimeControl(p.Match.TimeControl),
			StartedAt:   started,
			Result:      chess.NoResult.String(),
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to record game %s: %w", p.ID, err)
		}
	}

	p.Logger.Info("game started", "game", p.ID, "number", p.Number,
		"white", p.White.Engine.Name(), "black", p.Black.Engine.Name())

	for _, side := range []chess.Side{chess.White, chess.Black} {
		if !p.players[side].Engine.NewGame() {
			p.Logger.Warn("engine not available for new game", "game", p.ID,
				"engine", p.players[side].Engine.Name(), "state", p.players[side].Engine.State())
			p.end(lossFor(side, chess.Crash))
		}
	}
	if !p.over {
		p.startTurn()
	}

	var runErr error
	for !p.over {
		e, err := p.Mailbox.Next(ctx)
		if err != nil {
			runErr = err
			p.end(chess.Result{})
			break
		}
		p.handle(ctx, e)
	}
	p.clock.Stop()

	out := Outcome{
		GameID:     p.ID,
		Number:     p.Number,
		White:      p.White.Engine.Name(),
		Black:      p.Black.Engine.Name(),
		FirstWhite: p.FirstWhite,
		Result:     p.result,
		Plies:      p.plies,
		Duration:   p.Now().Sub(started),
	}
	for _, side := range []chess.Side{chess.White, chess.Black} {
		p.players[side].Engine.ReportResult(viewOf(p.result, side), side)
	}
	p.Logger.Info("game finished", "game", p.ID, "number", p.Number,
		"result", out.Score(), "reason", out.Result.Reason, "plies", out.Plies)

	if err := p.record(ctx, out); err != nil {
		return out, errors.Join(runErr, err)
	}
	return out, runErr
}

// record persists the result and transcript. It runs even after ctx was
// cancelled so an interrupted game is closed out in the store.
func (p *play) record(ctx context.Context, out Outcome) error {
	var lines []store.Line
	if p.Transcript != nil {
		lines = p.Transcript.End()
	}
	if p.Store == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	if err := p.Store.WriteTranscript(ctx, p.ID, lines); err != nil {
		return fmt.Errorf("failed to record transcript of game %s: %w", p.ID, err)
	}
	if err := p.Store.FinishGame(ctx, p.ID, out.Score(), out.Result.Reason.String(), out.Plies, p.Now()); err != nil {
		return fmt.Errorf("failed to record result of game %s: %w", p.ID, err)
	}
	return nil
}

func (p *play) sideOf(seat int) (chess.Side, bool) {
	switch seat {
	case p.White.Seat:
		return chess.White, true
	case p.Black.Seat:
		return chess.Black, true
	}
	return chess.NoSide, false
}

// startTurn hands the move to p.turn. An engine already Thinking got a
// ponder hit and keeps searching.
func (p *play) startTurn() {
	eng := p.players[p.turn].Engine
	eng.SetClock(p.clock.For(p.turn))
	if eng.State() != protocol.StateThinking {
		if !eng.Go() {
			p.Logger.Debug("go not queued", "game", p.ID, "engine", eng.Name(), "state", eng.State())
		}
	}
	p.clock.Start(p.turn)
}

func (p *play) handle(ctx context.Context, e seatEvent) {
	side, ok := p.sideOf(e.seat)
	if !ok {
		return
	}
	ev := e.event

	switch ev.Kind {
	case protocol.EventMove:
		p.onMove(ctx, side, ev)
	case protocol.EventResult:
		p.Logger.Info("engine ended game", "game", p.ID, "engine", ev.Engine,
			"result", ev.Result, "error", ev.Err)
		p.end(viewOf(ev.Result, side))
	case protocol.EventClaim:
		p.onClaim(side, ev)
	case protocol.EventDrawOffer:
		p.offered[side] = p.plies
		if other := p.offered[side.Opposite()]; other >= 0 && p.plies-other <= drawOfferWindow {
			p.end(chess.Result{Type: chess.Draw, Reason: chess.Adjudication})
		}
	case protocol.EventInfo:
		p.lastInfo[side] = ev.Info
	case protocol.EventDiagnostic:
		p.Logger.Warn("engine diagnostic", "game", p.ID, "engine", ev.Engine, "line", ev.Comment, "error", ev.Err)
	case protocol.EventReady:
		p.Logger.Debug("engine ready", "game", p.ID, "engine", ev.Engine, "comment", ev.Comment)
	}
}

func (p *play) onMove(ctx context.Context, side chess.Side, ev protocol.Event) {
	if side != p.turn {
		p.Logger.Warn("ignoring move out of turn", "game", p.ID, "engine", ev.Engine, "move", ev.MoveText)
		return
	}
	elapsed := p.clock.Stop()
	if p.clock.Flagged(side) {
		p.end(lossFor(side, chess.Timeout))
		return
	}

	move, san, err := p.Board.Apply(ev.MoveText, side)
	if err != nil {
		p.Logger.Warn("illegal move", "game", p.ID, "engine", ev.Engine, "move", ev.MoveText, "error", err)
		p.end(lossFor(side, chess.IllegalMove))
		return
	}
	p.plies++
	p.recordMove(ctx, side, move, elapsed)

	mover := p.players[side]
	if mover.Ponder && ev.PonderText != "" {
		if guess, err := chess.ParseCoordinateMove(ev.PonderText); err == nil {
			mover.Engine.GoPonder(guess)
		}
	}

	next := side.Opposite()
	opp := p.players[next].Engine
	opp.SetClock(p.clock.For(next))
	opp.OppositeMadeMove(move, san)

	if result, reason, over := p.Board.Outcome(); over {
		p.end(chess.Result{Type: result, Reason: reason})
		return
	}
	if p.Match.MaxPlies > 0 && p.plies >= p.Match.MaxPlies {
		p.end(chess.Result{Type: chess.Draw, Reason: chess.Adjudication})
		return
	}
	p.turn = next
	p.startTurn()
}

func (p *play) recordMove(ctx context.Context, side chess.Side, move chess.Move, elapsed int64) {
	if p.Store == nil {
		return
	}
	m := store.Move{
		GameID:    p.ID,
		Ply:       p.plies,
		Side:      side.String(),
		Move:      move.String(),
		ElapsedMs: elapsed,
	}
	if info := p.lastInfo[side]; info != nil {
		m.Info = store.MoveInfo{
			Depth:  info.Depth,
			Score:  info.Score,
			Mate:   info.Mate,
			Nodes:  info.Nodes,
			TimeMs: info.TimeMs,
			PV:     info.PV,
		}
	}
	p.lastInfo[side] = nil
	if err := p.Store.WriteMove(ctx, m); err != nil {
		p.Logger.Error("failed to record move", "game", p.ID, "ply", p.plies, "error", err)
	}
}

func (p *play) onClaim(side chess.Side, ev protocol.Event) {
	if p.Match.IgnoreClaims {
		p.Logger.Info("ignoring result claim", "game", p.ID, "engine", ev.Engine, "claim", ev.Claim, "comment", ev.Comment)
		return
	}
	t := chess.ResultFromScore(ev.Claim, chess.White)
	if t == chess.NoResult {
		return
	}
	p.Logger.Info("result claimed", "game", p.ID, "engine", ev.Engine, "side", side.LongString(),
		"claim", ev.Claim, "comment", ev.Comment)
	p.end(chess.Result{Type: t, Reason: claimReason(ev.Comment)})
}

func (p *play) end(r chess.Result) {
	if p.over {
		return
	}
	p.over = true
	p.result = r
}

// lossFor returns the white-relative result of side losing.
func lossFor(side chess.Side, reason chess.ReasonType) chess.Result {
	if side == chess.White {
		return chess.Result{Type: chess.Loss, Reason: reason}
	}
	return chess.Result{Type: chess.Win, Reason: reason}
}

// viewOf converts between the white-relative view and side's view.
func viewOf(r chess.Result, side chess.Side) chess.Result {
	if side == chess.Black {
		return r.Flip()
	}
	return r
}

// claimReason reads the reason from a claim comment such as
// "{White mates}" or "{Draw by repetition}".
func claimReason(comment string) chess.ReasonType {
	c := strings.ToLower(comment)
	switch {
	case strings.Contains(c, "stalemate"):
		return chess.Stalemate
	case strings.Contains(c, "mate"):
		return chess.Mate
	case strings.Contains(c, "repetition"):
		return chess.Repetition
	case strings.Contains(c, "50"), strings.Contains(c, "fifty"):
		return chess.FiftyMoves
	case strings.Contains(c, "material"):
		return chess.InsufficientMaterial
	case strings.Contains(c, "resign"):
		return chess.Resign
	}
	return chess.Adjudication
}
