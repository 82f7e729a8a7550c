package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wbarena/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	DatabaseOptions
	Transcript bool
}

// GameDetail is the show command's output.
type GameDetail struct {
	Game       store.Game   `json:"game"`
	Moves      []store.Move `json:"moves"`
	Transcript []store.Line `json:"transcript,omitempty"`
}

func (d GameDetail) String() string {
	var sb strings.Builder
	g := d.Game
	fmt.Fprintf(&sb, "Game %s (#%d)\n", g.ID, g.Number)
	fmt.Fprintf(&sb, "White: %s\nBlack: %s\n", g.White, g.Black)
	fmt.Fprintf(&sb, "Time control: %s\n", g.TimeControl)
	fmt.Fprintf(&sb, "Started: %s\n", g.StartedAt.Format("2006-01-02 15:04:05"))
	result := g.Result
	if g.Reason != "" {
		result += " {" + g.Reason + "}"
	}
	fmt.Fprintf(&sb, "Result: %s, %d plies\n", result, g.Plies)

	if len(d.Moves) > 0 {
		sb.WriteString("\nMoves:\n")
	}
	for _, m := range d.Moves {
		fmt.Fprintf(&sb, "  %3d %s %-6s %6dms", m.Ply, m.Side, m.Move, m.ElapsedMs)
		if m.Info.Depth > 0 {
			fmt.Fprintf(&sb, "  depth %d score %d", m.Info.Depth, m.Info.Score)
		}
		if m.Info.PV != "" {
			fmt.Fprintf(&sb, "  pv %s", m.Info.PV)
		}
		sb.WriteByte('\n')
	}

	if len(d.Transcript) > 0 {
		sb.WriteString("\nTranscript:\n")
	}
	for _, l := range d.Transcript {
		fmt.Fprintf(&sb, "  %5d %s %s %s\n", l.Seq, l.Engine, l.Direction, l.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{DatabaseOptions: DatabaseOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "show <game-id>",
		Short: "Show one recorded game",
		Long: `Show a game's header and moves, with the last search output each
engine sent before moving. --transcript adds every protocol line both
engines exchanged during the game.

Examples:
  wbarena show 0192f0c4-5b1e-7a8c-9d2e-3f4a5b6c7d8e --db games.db
  wbarena show game-1 --db games.db --transcript --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Transcript, "transcript", false, "include the protocol transcript")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	game, moves, err := st.ReadGame(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("game not found: %s", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to read game", err)
	}

	detail := GameDetail{Game: game, Moves: moves}
	if opts.Transcript {
		if detail.Transcript, err = st.ReadTranscript(ctx, id); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to read transcript", err)
		}
	}
	return formatter.Success(detail)
}
