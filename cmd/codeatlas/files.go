package main

import (
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files [pattern]",
	Short: "List indexed files, optionally filtered by glob pattern",
	Args:  cobra.MaximumNArgs(1),
	Run:   runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) {
	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	entries, err := openEngine().ListFiles(pattern)
	if err != nil {
		fail(err)
	}
	printJSON(entries)
}
