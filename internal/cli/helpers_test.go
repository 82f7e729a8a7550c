package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wbarena/internal/link"
	"github.com/roach88/wbarena/internal/testutil"
)

// spawner hands out scripted links by command.
type spawner struct {
	mu     sync.Mutex
	make   map[string]func() *testutil.ScriptedLink
	counts map[string]int
}

func newSpawner() *spawner {
	return &spawner{make: map[string]func() *testutil.ScriptedLink{}, counts: map[string]int{}}
}

func (s *spawner) spawn(_ context.Context, spec link.Spec) (link.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[spec.Command]++
	return s.make[spec.Command](), nil
}

// winboardEngine answers each "go" with the next move, cycling.
func winboardEngine(moves ...string) *testutil.ScriptedLink {
	next := 0
	return testutil.NewScriptedLink().
		On("protover", "feature ping=1 usermove=1 done=1").
		EchoPing().
		OnFunc("go", func(string) []string {
			m := moves[next%len(moves)]
			next++
			return []string{"move " + m}
		})
}

func uciEngine(bestmoves ...string) *testutil.ScriptedLink {
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

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(args ...string) (string, string, error) {
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testCommand returns a bare command writing into the given buffers, for
// calling run functions directly.
func testCommand(stdout, stderr *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetContext(context.Background())
	return cmd
}

const matchYAML = `tick_interval_ms: 5
engines:
  - name: alpha
    command: alpha
    timeouts:
      idle_ms: 100
      terminate_wait_ms: 50
  - name: beta
    command: beta
    protocol: uci
    timeouts:
      idle_ms: 100
      terminate_wait_ms: 50
match:
  white: alpha
  black: beta
  games: 4
  max_plies: 2
  time_control:
    move_time_ms: 1000
`
