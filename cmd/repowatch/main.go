package main

import (
	"fmt"
	"os"

	"repowatch/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if remedy := errors.GetRemedy(err); remedy != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", remedy)
		}
		os.Exit(1)
	}
}
