package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/link"
	"github.com/roach88/wbarena/internal/logging"
	"github.com/roach88/wbarena/internal/match"
	"github.com/roach88/wbarena/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database    string
	Games       int
	Concurrency int
	Echo        bool

	// Spawner and IDGenerator override process spawning and game ids
	// (for testing). Nil means real processes and UUIDv7 ids.
	Spawner     link.Spawner
	IDGenerator match.IDGenerator
}

// PlayResult is the play command's output.
type PlayResult struct {
	*match.Summary
	Score float64 `json:"score"`
	// EloDiff is null when every decided game went one way.
	EloDiff     *float64 `json:"elo_diff"`
	LOS         float64  `json:"los"`
	Interrupted bool     `json:"interrupted,omitempty"`
}

func newPlayResult(s *match.Summary, interrupted bool) PlayResult {
	st := s.Stat()
	res := PlayResult{Summary: s, Score: st.Score, LOS: st.LOS, Interrupted: interrupted}
	if !math.IsInf(st.EloDiff, 0) && !math.IsNaN(st.EloDiff) {
		res.EloDiff = &st.EloDiff
	}
	return res
}

func (r PlayResult) String() string {
	var sb strings.Builder
	for _, o := range r.Outcomes {
		fmt.Fprintf(&sb, "game %d: %s - %s %s {%s} %d plies\n",
			o.Number, o.White, o.Black, o.Score(), o.Result.Reason, o.Plies)
	}
	if r.Interrupted {
		sb.WriteString("match interrupted\n")
	}
	sb.WriteString(r.Summary.String())
	return sb.String()
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <config>",
		Short: "Play the match described by a tournament file",
		Long: `Play a match between the two engines named in the tournament file.

The file is YAML (.yaml, .yml) or CUE (.cue). Colours alternate every
game; with concurrency above one, each worker runs its own pair of engine
processes. When a database is configured every game, move and protocol
line is recorded.

Ctrl-C ends the games in progress without a result and prints the
standing so far.

Examples:
  wbarena play match.yaml
  wbarena play match.cue --db games.db --games 100 --concurrency 4
  wbarena play match.yaml --echo --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for games (overrides the config)")
	cmd.Flags().IntVar(&opts.Games, "games", 0, "number of games (overrides the config)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "games played at once (overrides the config)")
	cmd.Flags().BoolVar(&opts.Echo, "echo", false, "echo every protocol line to stderr")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		return failConfig(formatter, err)
	}
	if opts.Games > 0 {
		cfg.Match.Games = opts.Games
	}
	if opts.Concurrency > 0 {
		cfg.Match.Concurrency = opts.Concurrency
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	runnerOpts := []match.Option{match.WithLogger(logger)}
	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runnerOpts = append(runnerOpts, match.WithStore(st))
	}
	if opts.Echo {
		runnerOpts = append(runnerOpts, match.WithConsole(logging.NewConsole(cmd.ErrOrStderr())))
	}
	if opts.Spawner != nil {
		runnerOpts = append(runnerOpts, match.WithSpawner(opts.Spawner))
	}
	if opts.IDGenerator != nil {
		runnerOpts = append(runnerOpts, match.WithIDGenerator(opts.IDGenerator))
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping match", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := match.NewRunner(cfg, runnerOpts...).Run(ctx)
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		return formatter.Fail(ExitFailure, ErrCodeMatch, "match failed", err)
	}
	return formatter.Success(newPlayResult(summary, interrupted))
}

// failConfig reports a config load error. Missing files are command
// errors; invalid contents are failures.
func failConfig(f *OutputFormatter, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeConfig, "config file not found", err)
	}
	var ve *config.ValidationError
	if errors.As(err, &ve) {
		return f.Fail(ExitFailure, ErrCodeConfig, "invalid config", err)
	}
	return f.Fail(ExitFailure, ErrCodeConfig, "failed to load config", err)
}
