package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wbarena/internal/store"
)

// DatabaseOptions holds the flag shared by the commands that read games.
type DatabaseOptions struct {
	*RootOptions
	Database string
}

// GameList is the games command's output.
type GameList struct {
	Games []store.Game `json:"games"`
}

func (l GameList) String() string {
	if len(l.Games) == 0 {
		return "No games recorded."
	}
	var sb strings.Builder
	for i, g := range l.Games {
		if i > 0 {
			sb.WriteByte('\n')
		}
		reason := ""
		if g.Reason != "" {
			reason = " {" + g.Reason + "}"
		}
		fmt.Fprintf(&sb, "%s  #%d  %s - %s  %s%s  %d plies  %s",
			g.ID, g.Number, g.White, g.Black, g.Result, reason, g.Plies, g.TimeControl)
	}
	return sb.String()
}

// NewGamesCommand creates the games command.
func NewGamesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatabaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "games",
		Short: "List recorded games",
		Long: `List every game in a match database, oldest first.

Games interrupted before a result show "*".

Examples:
  wbarena games --db games.db
  wbarena games --db games.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGames(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runGames(opts *DatabaseOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	games, err := st.ListGames(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to list games", err)
	}
	formatter.VerboseLog("Read %d game(s) from %s", len(games), opts.Database)
	return formatter.Success(GameList{Games: games})
}

// openExisting opens a database that must already exist; store.Open would
// otherwise create an empty one.
func openExisting(f *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, f.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("database not found: %s", path), nil)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	return st, nil
}
