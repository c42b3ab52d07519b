package main

import (
	"github.com/spf13/cobra"
)

var functionsFilter string

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List functions and methods across the repository",
	Run:   runFunctions,
}

func init() {
	functionsCmd.Flags().StringVar(&functionsFilter, "filter", "", "Case-insensitive substring filter on function name")
	rootCmd.AddCommand(functionsCmd)
}

func runFunctions(cmd *cobra.Command, args []string) {
	printJSON(openEngine().Functions(functionsFilter))
}
