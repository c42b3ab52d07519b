package main

import (
	"github.com/spf13/cobra"
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Full structural summary of one file, including its graph edges",
	Long: `Shows everything the index knows about one file: imports, classes,
functions, and the dependency-graph edges touching it. The path may be a
glob pattern as long as it matches exactly one indexed file.`,
	Args: cobra.ExactArgs(1),
	Run:  runFile,
}

func init() {
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) {
	detail, err := openEngine().FileSummary(args[0])
	if err != nil {
		fail(err)
	}
	printJSON(detail)
}
