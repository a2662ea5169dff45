package main

import (
	"github.com/spf13/cobra"

	"github.com/agentmentor/agentqa-go/pkg/core"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <trace.json>",
	Short: "Evaluate a single conversation trace",
	Long: `Runs the full pipeline on one trace file: structural inspection,
rubric judgment, memory retrieval, prompt rewrite and memory write-back.
The resulting report is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		trace, err := core.LoadTraceFile(args[0])
		if err != nil {
			return err
		}

		pipeline, cleanup, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := pipeline.Evaluate(cmd.Context(), trace)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
