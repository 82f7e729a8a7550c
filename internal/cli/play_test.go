package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wbarena/internal/match"
	"github.com/roach88/wbarena/internal/store"
	"github.com/roach88/wbarena/internal/testutil"
)

func playOptions(format string, sp *spawner) *PlayOptions {
	return &PlayOptions{
		RootOptions: &RootOptions{Format: format},
		Spawner:     sp.spawn,
		IDGenerator: match.NewSequenceGenerator("g"),
	}
}

func scriptedMatch() *spawner {
	sp := newSpawner()
	sp.make["alpha"] = func() *testutil.ScriptedLink { return winboardEngine("e2e4", "e7e5") }
	sp.make["beta"] = func() *testutil.ScriptedLink { return uciEngine("d7d5", "d2d4") }
	return sp
}

// playMatch plays two games into a fresh database and returns its path.
func playMatch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "match.yaml", matchYAML)
	db := filepath.Join(dir, "games.db")

	opts := playOptions("text", scriptedMatch())
	opts.Games = 2
	opts.Database = db
	require.NoError(t, runPlay(opts, path, testCommand(&bytes.Buffer{}, &bytes.Buffer{})))
	return db
}

func TestPlay_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "match.yaml", matchYAML)
	stdout := &bytes.Buffer{}
	opts := playOptions("json", scriptedMatch())
	opts.Games = 2

	require.NoError(t, runPlay(opts, path, testCommand(stdout, &bytes.Buffer{})))

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			First   string   `json:"first"`
			Second  string   `json:"second"`
			Draws   int      `json:"draws"`
			Score   float64  `json:"score"`
			EloDiff *float64 `json:"elo_diff"`
			Games   []struct {
				ID     string `json:"id"`
				White  string `json:"white"`
				Result string `json:"result"`
				Plies  int    `json:"plies"`
			} `json:"games"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "alpha", resp.Data.First)
	assert.Equal(t, "beta", resp.Data.Second)
	assert.Equal(t, 2, resp.Data.Draws)
	assert.InDelta(t, 0.5, resp.Data.Score, 1e-9)
	require.NotNil(t, resp.Data.EloDiff)
	assert.InDelta(t, 0, *resp.Data.EloDiff, 1e-9)

	require.Len(t, resp.Data.Games, 2)
	for _, g := range resp.Data.Games {
		assert.Equal(t, "1/2-1/2", g.Result)
		assert.Equal(t, 2, g.Plies)
	}
}

func TestPlay_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "match.yaml", matchYAML)
	stdout := &bytes.Buffer{}
	opts := playOptions("text", scriptedMatch())
	opts.Games = 2

	require.NoError(t, runPlay(opts, path, testCommand(stdout, &bytes.Buffer{})))
	assert.Contains(t, stdout.String(), "alpha - beta 1/2-1/2")
	assert.Contains(t, stdout.String(), "beta - alpha 1/2-1/2")
	assert.Contains(t, stdout.String(), "alpha vs beta: 0 - 0 - 2")
	assert.NotContains(t, stdout.String(), "match interrupted")
}

func TestPlay_Echo(t *testing.T) {
	path := writeFile(t, t.TempDir(), "match.yaml", matchYAML)
	stderr := &bytes.Buffer{}
	opts := playOptions("text", scriptedMatch())
	opts.Games = 1
	opts.Echo = true

	require.NoError(t, runPlay(opts, path, testCommand(&bytes.Buffer{}, stderr)))
	assert.Contains(t, stderr.String(), "alpha -> protover 2")
	assert.Contains(t, stderr.String(), "beta <- uciok")
}

func TestPlay_RecordsGames(t *testing.T) {
	db := playMatch(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	games, err := st.ListGames(t.Context())
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "g-1", games[0].ID)
	assert.Equal(t, "alpha", games[0].White)
	assert.Equal(t, "beta", games[1].White)
}

func TestPlay_MissingConfig(t *testing.T) {
	stdout := &bytes.Buffer{}
	opts := playOptions("text", scriptedMatch())

	err := runPlay(opts, filepath.Join(t.TempDir(), "nope.yaml"), testCommand(stdout, &bytes.Buffer{}))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout.String(), "Error [E_CONFIG]: config file not found")
}

func TestPlay_InvalidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "match.yaml", `
engines:
  - name: alpha
    command: alpha
match:
  white: gamma
`)
	err := runPlay(playOptions("text", scriptedMatch()), path, testCommand(&bytes.Buffer{}, &bytes.Buffer{}))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestNewPlayResult_OneSidedEloIsNull(t *testing.T) {
	s := &match.Summary{First: "alpha", Second: "beta", Wins: 3}
	res := newPlayResult(s, true)

	assert.Nil(t, res.EloDiff)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.True(t, res.Interrupted)
	assert.Contains(t, res.String(), "match interrupted")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"elo_diff":null`)
	assert.Contains(t, string(data), `"interrupted":true`)
}
