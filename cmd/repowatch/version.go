package main

import (
	"fmt"

	"repowatch/internal/complexity"
	"repowatch/internal/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
		providers := "heuristic"
		if complexity.IsAvailable() {
			providers += ", complexity"
		}
		fmt.Println("analyzers: " + providers)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
