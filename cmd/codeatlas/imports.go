package main

import (
	"github.com/spf13/cobra"
)

var importsCmd = &cobra.Command{
	Use:   "imports [file]",
	Short: "Show one file's imports, or the repo-wide import histogram",
	Args:  cobra.MaximumNArgs(1),
	Run:   runImports,
}

func init() {
	rootCmd.AddCommand(importsCmd)
}

func runImports(cmd *cobra.Command, args []string) {
	file := ""
	if len(args) > 0 {
		file = args[0]
	}
	report, err := openEngine().Imports(file)
	if err != nil {
		fail(err)
	}
	printJSON(report)
}
