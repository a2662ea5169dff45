package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmentor/agentqa-go/pkg/gate"
)

var gateCmd = &cobra.Command{
	Use:   "gate <labeled-set.json>",
	Short: "Run the quality gate over a labeled trace set",
	Long: `Evaluates every trace of a labeled set and checks the detection rate
per label class against the configured thresholds. Exits non-zero when any
class falls below its threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		set, err := gate.LoadLabeledSet(args[0])
		if err != nil {
			return err
		}

		pipeline, cleanup, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		g := gate.New(pipeline,
			gate.WithThresholds(cfg.Gate.Thresholds),
			gate.WithWorkers(cfg.Gate.Workers),
		)
		result, err := g.Run(cmd.Context(), set)
		if err != nil {
			return err
		}
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Passed {
			return fmt.Errorf("quality gate failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gateCmd)
}
