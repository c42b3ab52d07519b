package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/gitinfo"
)

var gitLimit int

var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Git metadata for the repository",
}

var gitCommitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Recent commits",
	Run:   runGitCommits,
}

var gitContributorsCmd = &cobra.Command{
	Use:   "contributors",
	Short: "Contributors ranked by commit count",
	Run:   runGitContributors,
}

var gitBranchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "Local branches",
	Run:   runGitBranches,
}

var gitHistoryCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Commits touching one file",
	Args:  cobra.ExactArgs(1),
	Run:   runGitHistory,
}

func init() {
	gitCmd.PersistentFlags().IntVar(&gitLimit, "limit", 20, "Maximum entries to return")
	gitCmd.AddCommand(gitCommitsCmd, gitContributorsCmd, gitBranchesCmd, gitHistoryCmd)
	rootCmd.AddCommand(gitCmd)
}

func runGitCommits(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	commits, err := gitinfo.NewClient(repoRoot()).Commits(ctx, gitLimit)
	if err != nil {
		fail(err)
	}
	printJSON(commits)
}

func runGitContributors(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	contributors, err := gitinfo.NewClient(repoRoot()).Contributors(ctx, gitLimit)
	if err != nil {
		fail(err)
	}
	printJSON(contributors)
}

func runGitBranches(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	branches, err := gitinfo.NewClient(repoRoot()).Branches(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(branches)
}

func runGitHistory(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	commits, err := gitinfo.NewClient(repoRoot()).FileHistory(ctx, args[0], gitLimit)
	if err != nil {
		fail(err)
	}
	printJSON(commits)
}
