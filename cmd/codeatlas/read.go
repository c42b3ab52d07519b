package main

import (
	"github.com/spf13/cobra"
)

var (
	readStart int
	readEnd   int
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a file from the repo with line numbers",
	Long: `Reads an indexed file from the working tree, optionally sliced to a
1-based inclusive line range. Output is capped at 30000 characters.`,
	Args: cobra.ExactArgs(1),
	Run:  runRead,
}

func init() {
	readCmd.Flags().IntVar(&readStart, "start", 0, "First line (1-based, 0 = start of file)")
	readCmd.Flags().IntVar(&readEnd, "end", 0, "Last line (1-based inclusive, 0 = end of file)")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) {
	content, err := openEngine().ReadFile(args[0], readStart, readEnd)
	if err != nil {
		fail(err)
	}
	printJSON(content)
}
