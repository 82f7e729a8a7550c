package match

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/logging"
	"github.com/roach88/wbarena/internal/protocol"
	"github.com/roach88/wbarena/internal/store"
	"github.com/roach88/wbarena/internal/testutil"
	"github.com/roach88/wbarena/internal/ticker"
)

const testTick = 5 * time.Millisecond

// winboardScript is a scripted WinBoard engine answering each "go" with
// the next of replies, cycling.
func winboardScript(replies ...[]string) *testutil.ScriptedLink {
	next := 0
	return testutil.NewScriptedLink().
		On("protover", "feature ping=1 usermove=1 done=1").
		EchoPing().
		OnFunc("go", func(string) []string {
			r := replies[next%len(replies)]
			next++
			return r
		})
}

// moves builds single-line "move X" replies.
func moves(ms ...string) [][]string {
	out := make([][]string, len(ms))
	for i, m := range ms {
		out[i] = []string{"move " + m}
	}
	return out
}

// playerScript is a WinBoard engine that answers each "go" from white's or
// black's line, judged by the plies seen since "new".
func playerScript(white, black []string) *testutil.ScriptedLink {
	plies := 0
	return testutil.NewScriptedLink().
		On("protover", "feature ping=1 usermove=1 done=1").
		EchoPing().
		OnFunc("new", func(string) []string {
			plies = 0
			return nil
		}).
		OnFunc("usermove", func(string) []string {
			plies++
			return nil
		}).
		OnFunc("go", func(string) []string {
			line := white
			if plies%2 == 1 {
				line = black
			}
			m := line[(plies/2)%len(line)]
			plies++
			return []string{"move " + m}
		})
}

func uciScript(bestmoves ...string) *testutil.ScriptedLink {
	next := 0
	return testutil.NewScriptedLink().
		On("uci", "id name Scripted", "uciok").
		On("isready", "readyok").
		OnFunc("go", func(string) []string {
			m := bestmoves[next%len(bestmoves)]
			next++
			return []string{"bestmove " + m}
		})
}

func engineConfig(name, protocolName string) config.Engine {
	return config.Engine{Name: name, Command: name, Protocol: protocolName}
}

// table runs two engines on a live scheduler, posting into one mailbox.
type table struct {
	mailbox    *Mailbox
	transcript *Transcript
	engines    [2]protocol.Engine
}

func newTable(t *testing.T, cfgs [2]config.Engine, links [2]*testutil.ScriptedLink, tc config.TimeControl) *table {
	t.Helper()
	tb := &table{mailbox: NewMailbox(), transcript: NewTranscript()}
	sched := ticker.NewScheduler(testTick)

	for seat := range tb.engines {
		eng, err := protocol.New(cfgs[seat],
			protocol.WithSpawner(links[seat].Spawner()),
			protocol.WithLogger(logging.Discard()),
			protocol.WithEventHandler(tb.mailbox.Handler(seat)),
			protocol.WithObserver(tb.transcript),
			protocol.WithTickInterval(testTick),
			protocol.WithTimeControl(tc),
		)
		require.NoError(t, err)
		require.NoError(t, eng.Attach(context.Background()))
		sched.Add(eng)
		tb.engines[seat] = eng
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sched.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		for _, eng := range tb.engines {
			eng.Detach()
		}
	})

	for _, eng := range tb.engines {
		require.Eventually(t, func() bool { return eng.State().IsIdle() }, 2*time.Second, testTick)
	}
	return tb
}

// game returns a game with seat 0 playing white.
func (tb *table) game(id string, m config.Match) *Game {
	return &Game{
		ID:         id,
		Number:     1,
		White:      Player{Engine: tb.engines[0], Seat: 0},
		Black:      Player{Engine: tb.engines[1], Seat: 1},
		FirstWhite: true,
		Match:      m,
		Mailbox:    tb.mailbox,
		Transcript: tb.transcript,
		Logger:     logging.Discard(),
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func containsLine(lines []string, want string) bool {
	return slices.Contains(lines, want)
}

func hasPrefixLine(lines []string, prefix string) bool {
	return slices.ContainsFunc(lines, func(l string) bool { return strings.HasPrefix(l, prefix) })
}

var fixedSecond = config.TimeControl{MoveTimeMs: 1000}
