package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentmentor/agentqa-go/pkg/llms"
	"github.com/agentmentor/agentqa-go/pkg/redteam"
)

var redteamNumTests int

var redteamCmd = &cobra.Command{
	Use:   "redteam <system-prompt.txt>",
	Short: "Probe a system prompt for injection resilience",
	Long: `Generates adversarial user messages against the given system prompt,
simulates a deliberately weak agent responding to them, and evaluates each
resulting trace with the pipeline. The per-probe results are printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		promptData, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		pipeline, cleanup, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		llm, err := llms.New(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.APIKey)
		if err != nil {
			return err
		}

		runner := redteam.NewRunner(llm, pipeline)
		results, err := runner.Run(cmd.Context(), string(promptData), redteamNumTests)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func init() {
	redteamCmd.Flags().IntVarP(&redteamNumTests, "num-tests", "n", redteam.DefaultNumTests,
		"number of adversarial prompts to generate")
	rootCmd.AddCommand(redteamCmd)
}
