// Package main implements the workflowd daemon and its one-shot commands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "workflowd",
	Short: "Multi-agent workflow orchestration runtime",
	Long: `workflowd coordinates specialized agents through the phases of a
software-change pipeline (spec, tests, impl, qa, sec, docs, release),
each invoked against an external language model under schema contracts,
context budgets, quality gates, and cross-run learning persistence.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: ~/.config/workflowd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recommendCmd)
}
