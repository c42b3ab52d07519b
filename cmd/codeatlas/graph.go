package main

import (
	"github.com/spf13/cobra"
)

var graphRankTopK int

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Query the dependency graph",
	Long: `Graph queries accept a node ID (file:<path>, class:<path>:<Name>,
func:<path>:<name>, method:<path>:<Class.method>) or any unambiguous
shorthand: a bare symbol name, a path:name pair, or an ID fragment.`,
}

var graphDepsCmd = &cobra.Command{
	Use:   "deps <node>",
	Short: "Nodes this node depends on (outgoing edges)",
	Args:  cobra.ExactArgs(1),
	Run:   runGraphDeps,
}

var graphDependentsCmd = &cobra.Command{
	Use:   "dependents <node>",
	Short: "Nodes depending on this node (incoming edges)",
	Args:  cobra.ExactArgs(1),
	Run:   runGraphDependents,
}

var graphPathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Shortest connection between two nodes (undirected BFS)",
	Args:  cobra.ExactArgs(2),
	Run:   runGraphPath,
}

var graphSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Node and edge counts by kind",
	Run:   runGraphSummary,
}

var graphRankCmd = &cobra.Command{
	Use:   "rank [seed...]",
	Short: "Most central nodes by weighted PageRank, optionally seed-biased",
	Run:   runGraphRank,
}

func init() {
	graphRankCmd.Flags().IntVar(&graphRankTopK, "top-k", 0, "Number of ranked nodes to return")
	graphCmd.AddCommand(graphDepsCmd, graphDependentsCmd, graphPathCmd, graphSummaryCmd, graphRankCmd)
	rootCmd.AddCommand(graphCmd)
}

func runGraphDeps(cmd *cobra.Command, args []string) {
	report, err := openEngine().Dependencies(args[0])
	if err != nil {
		fail(err)
	}
	printJSON(report)
}

func runGraphDependents(cmd *cobra.Command, args []string) {
	report, err := openEngine().Dependents(args[0])
	if err != nil {
		fail(err)
	}
	printJSON(report)
}

func runGraphPath(cmd *cobra.Command, args []string) {
	report, err := openEngine().Path(args[0], args[1])
	if err != nil {
		fail(err)
	}
	printJSON(report)
}

func runGraphSummary(cmd *cobra.Command, args []string) {
	printJSON(openEngine().GraphSummary())
}

func runGraphRank(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	out, err := openEngine().Rank(ctx, args, graphRankTopK)
	if err != nil {
		fail(err)
	}
	printJSON(out)
}
