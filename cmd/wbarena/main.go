// Command wbarena plays matches between WinBoard and UCI chess engines.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/wbarena/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands that already reported through their formatter return an
		// ExitError; anything else (usage, flag parsing) is printed here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
