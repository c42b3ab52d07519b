package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/storage"
)

var reposHistoryLimit int

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories known to the user catalog",
	Run:   runRepos,
}

var reposHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Past analysis runs for the target repository",
	Run:   runReposHistory,
}

var reposPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop catalog entries whose repository root no longer exists",
	Run:   runReposPrune,
}

func init() {
	reposHistoryCmd.Flags().IntVar(&reposHistoryLimit, "limit", 10, "Maximum runs to return")
	reposCmd.AddCommand(reposHistoryCmd, reposPruneCmd)
	rootCmd.AddCommand(reposCmd)
}

func openCatalog() *storage.Catalog {
	_, _, logger := setup()
	catalog, err := storage.Open(logger)
	if err != nil {
		fail(err)
	}
	return catalog
}

func runRepos(cmd *cobra.Command, args []string) {
	catalog := openCatalog()
	defer catalog.Close()

	repos, err := catalog.ListRepositories()
	if err != nil {
		fail(err)
	}
	printJSON(repos)
}

func runReposHistory(cmd *cobra.Command, args []string) {
	catalog := openCatalog()
	defer catalog.Close()

	runs, err := catalog.History(repoRoot(), reposHistoryLimit)
	if err != nil {
		fail(err)
	}
	printJSON(runs)
}

func runReposPrune(cmd *cobra.Command, args []string) {
	catalog := openCatalog()
	defer catalog.Close()

	removed, err := catalog.Prune()
	if err != nil {
		fail(err)
	}
	printJSON(map[string]int{"removed": removed})
}
