package main

import (
	"github.com/spf13/cobra"
)

var classesFilter string

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List classes across the repository",
	Run:   runClasses,
}

func init() {
	classesCmd.Flags().StringVar(&classesFilter, "filter", "", "Case-insensitive substring filter on class name")
	rootCmd.AddCommand(classesCmd)
}

func runClasses(cmd *cobra.Command, args []string) {
	printJSON(openEngine().Classes(classesFilter))
}
