// Command doxnav inspects, validates and converts the navigation scripts of
// generated documentation.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// errProblems makes the process exit non-zero without printing usage.
var errProblems = errors.New("problems found")

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "doxnav",
		Short: "Work with navtreedata.js navigation scripts",
		Long: `doxnav reads the navigation scripts written next to generated HTML
documentation (navtreedata.js, its part scripts and navtreeindexN.js).

Commands that take a PATH accept either a documentation directory, which is
loaded with every part and sub-index script, or a single navigation file in
any supported format (.js, .json, .yaml, .md).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log loading details to stderr")

	root.AddCommand(
		newValidateCmd(),
		newFmtCmd(),
		newExportCmd(),
		newImportCmd(),
		newTreeCmd(),
		newLocateCmd(),
		newCheckCmd(),
		newQueryCmd(),
		newRemoteCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
