package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/workflowd/internal/memory"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

var (
	recommendID     int
	recommendLabels []string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <title>",
	Short: "Print memory recommendations for a new change request",
	Long: `Query the persistent memory for similar execution patterns,
high-confidence learnings, and best practices.

Examples:
  workflowd recommend "Add CSV export to invoice list" --labels feature,priority:high`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().IntVar(&recommendID, "id", 0, "issue number")
	recommendCmd.Flags().StringSliceVar(&recommendLabels, "labels", nil, "issue labels")
}

// runRecommend only needs the memory stores, so it skips the LLM client and
// does not require credentials.
func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadBase()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	storage, err := memory.NewFileStorage(cfg.Memory.Dir)
	if err != nil {
		return err
	}
	mem, err := memory.NewService(storage, cfg.Memory.MaxLearnings, logger)
	if err != nil {
		return err
	}

	w := workflow.New(recommendID, args[0], recommendLabels)
	return printJSON(mem.Recommendations(cmd.Context(), w))
}
