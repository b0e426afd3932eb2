package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set by the build.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wizardctl version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("wizardctl", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
