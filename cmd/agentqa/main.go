package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentmentor/agentqa-go/pkg/config"
	"github.com/agentmentor/agentqa-go/pkg/inspector"
	"github.com/agentmentor/agentqa-go/pkg/judge"
	"github.com/agentmentor/agentqa-go/pkg/llms"
	"github.com/agentmentor/agentqa-go/pkg/logging"
	"github.com/agentmentor/agentqa-go/pkg/memory"
	"github.com/agentmentor/agentqa-go/pkg/orchestrator"
	"github.com/agentmentor/agentqa-go/pkg/rewriter"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentqa",
	Short: "QA evaluation pipeline for agent conversation traces",
	Long: `agentqa evaluates recorded agent conversation traces: a structural
inspection of the trajectory, a five-dimension rubric judgment, a rewritten
system prompt addressing the found issues, and a cross-run memory of
corrective snippets that proved useful before.`,
	Version: "0.1.0",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration and installs the logger.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.Logging.File != "" {
		fileOut, err := logging.NewFileOutput(cfg.Logging.File)
		if err != nil {
			return config.Config{}, fmt.Errorf("open log file %s: %w", cfg.Logging.File, err)
		}
		outputs = append(outputs, fileOut)
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Logging.Level),
		Outputs:  outputs,
	}))
	return cfg, nil
}

// buildPipeline assembles the orchestrator from configuration. The returned
// cleanup closes the memory store.
func buildPipeline(cfg config.Config) (*orchestrator.Orchestrator, func(), error) {
	llm, err := llms.New(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, err
	}

	var store memory.Store
	cleanup := func() {}
	if cfg.Memory.Path != "" {
		sqlStore, err := memory.NewSQLiteStore(cfg.Memory.Path)
		if err != nil {
			return nil, nil, err
		}
		store = sqlStore
		cleanup = func() { _ = sqlStore.Close() }
	} else {
		store = memory.NewInMemoryStore()
	}

	o := orchestrator.New(llm, store,
		orchestrator.WithInspector(inspector.New(inspector.Config{
			MinMissingTerms: cfg.Inspector.MinMissingTerms,
			MinAnswerChars:  cfg.Inspector.MinAnswerChars,
			OffTopicOverlap: cfg.Inspector.OffTopicOverlap,
		})),
		orchestrator.WithJudge(judge.New(llm, judge.WithTimeout(cfg.Judge.Timeout))),
		orchestrator.WithRewriter(rewriter.New(llm, rewriter.WithTimeout(cfg.Rewriter.Timeout))),
		orchestrator.WithRetrievalLimit(cfg.Memory.RetrievalLimit),
	)
	return o, cleanup, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
