package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/query"
)

var (
	grepPath string
	grepMax  int
)

var grepCmd = &cobra.Command{
	Use:   "grep <pattern>",
	Short: "Regex search over the indexed files",
	Long: `Case-insensitive regex scan over every indexed file's working-tree
content, with two lines of context around each hit.

Examples:
  codeatlas grep "def handle_"
  codeatlas grep "TODO" --path "src/*.py"`,
	Args: cobra.ExactArgs(1),
	Run:  runGrep,
}

func init() {
	grepCmd.Flags().StringVar(&grepPath, "path", "", "Glob pattern restricting which files are scanned")
	grepCmd.Flags().IntVar(&grepMax, "max", 0, "Match cap (default 50)")
	rootCmd.AddCommand(grepCmd)
}

func runGrep(cmd *cobra.Command, args []string) {
	report, err := openEngine().SearchCode(args[0], query.SearchOptions{
		Glob:       grepPath,
		MaxResults: grepMax,
	})
	if err != nil {
		fail(err)
	}
	printJSON(report)
}
