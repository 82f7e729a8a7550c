package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wbarena/internal/config"
	"github.com/roach88/wbarena/internal/match"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool          `json:"valid"`
	Engines     []EngineEntry `json:"engines"`
	White       string        `json:"white"`
	Black       string        `json:"black"`
	Games       int           `json:"games"`
	Concurrency int           `json:"concurrency"`
	TimeControl string        `json:"time_control"`
	Database    string        `json:"database,omitempty"`
}

// EngineEntry summarizes one engine of a validated config.
type EngineEntry struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Command  string `json:"command"`
}

func (r ValidationResult) String() string {
	var sb strings.Builder
	sb.WriteString("✓ config valid\n")
	for _, e := range r.Engines {
		fmt.Fprintf(&sb, "  engine %s (%s): %s\n", e.Name, e.Protocol, e.Command)
	}
	fmt.Fprintf(&sb, "  match: %s vs %s, %d games, concurrency %d, %s",
		r.White, r.Black, r.Games, r.Concurrency, r.TimeControl)
	if r.Database != "" {
		fmt.Fprintf(&sb, "\n  database: %s", r.Database)
	}
	return sb.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a tournament file without starting engines",
		Long: `Validate a YAML or CUE tournament file.

CUE files are checked against the built-in schema first; both formats
then go through the same defaulting and validation the play command uses.
Nothing is executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		return failConfig(formatter, err)
	}
	formatter.VerboseLog("Loaded %d engine(s) from %s", len(cfg.Engines), path)

	result := ValidationResult{
		Valid:       true,
		White:       cfg.Match.White,
		Black:       cfg.Match.Black,
		Games:       cfg.Match.Games,
		Concurrency: cfg.Match.Concurrency,
		TimeControl: match.DescribeTimeControl(cfg.Match.TimeControl),
		Database:    cfg.Database,
	}
	for _, e := range cfg.Engines {
		result.Engines = append(result.Engines, EngineEntry{Name: e.Name, Protocol: e.Protocol, Command: e.Command})
	}
	return formatter.Success(result)
}
