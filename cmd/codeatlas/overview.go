package main

import (
	"github.com/spf13/cobra"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Repository totals, language breakdown, and largest files",
	Run:   runOverview,
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}

func runOverview(cmd *cobra.Command, args []string) {
	printJSON(openEngine().Overview())
}
