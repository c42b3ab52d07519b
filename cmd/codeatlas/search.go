package main

import (
	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the embedded chunks",
	Long: `Embeds the query with the configured provider and ranks every indexed
chunk by cosine similarity. Requires an analysis run with embeddings.`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "Number of results to return")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	hits, err := openEngine().Search(ctx, args[0], searchTopK)
	if err != nil {
		fail(err)
	}
	printJSON(hits)
}
