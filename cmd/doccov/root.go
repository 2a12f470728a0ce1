package main

import (
	"doccov/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag overrides project root discovery
	rootFlag string
	// verbosity is the number of -v flags
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "doccov",
	Short: "doccov - Python docstring coverage",
	Long: `doccov scans Python sources, reports which functions carry docstrings,
and can generate and insert the missing ones.

The project root is the nearest directory above the working directory holding
.doccov, pyproject.toml or .git. Settings come from [tool.doccov] in
pyproject.toml, .doccov/config.toml and DOCCOV_* environment variables.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("doccov version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (default: discovered from the working directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}
