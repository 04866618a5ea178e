package main

import (
	"repowatch/internal/version"

	"github.com/spf13/cobra"
)

var (
	// verbosity is the count of -v flags
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "repowatch",
	Short: "repowatch - incremental repository analysis",
	Long: `repowatch watches registered git repositories and re-analyzes only the
files that changed since the last scan. Results are kept in a
content-addressed cache, so unchanged content is never analyzed twice.

Data lives in ~/.repowatch unless REPOWATCH_HOME is set.`,
	Version:       version.Current().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("repowatch version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}
