package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Logistics cost intelligence engine",
	Long: `Loads the operational entity tables, runs the analytics pipeline, and
reports carrier value scores, cost leakage, and savings recommendations.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newAnalyzeCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
