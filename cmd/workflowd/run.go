package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/workflowd/internal/executor"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

var (
	runTimeout time.Duration
	runRetries int
)

var runCmd = &cobra.Command{
	Use:   "run <agent> <input.json>",
	Short: "Execute one agent invocation from a JSON input file",
	Long: `Execute a single agent against the external model and print the result.

Examples:
  workflowd run spec issue-42.json
  workflowd run qa gate-input.json --retries 1`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-attempt timeout (default from config)")
	runCmd.Flags().IntVar(&runRetries, "retries", -1, "retry budget (default from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	agent := workflow.Agent(args[0])
	if !agent.Valid() {
		return fmt.Errorf("unknown agent %q (valid: %v)", args[0], workflow.AllAgents())
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	result := rt.exec.Execute(cmd.Context(), executor.Request{
		Agent:   agent,
		Input:   input,
		Timeout: runTimeout,
		Retries: runRetries,
	})
	return printJSON(result)
}
