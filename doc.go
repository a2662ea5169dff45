// Package agentqa evaluates recorded agent conversation traces and turns
// the findings into better system prompts.
//
// A trace (user turns, assistant turns, tool calls and their results) flows
// through a fixed pipeline: a deterministic structural inspection, a
// five-dimension rubric judgment by an LLM capability, a memory-backed
// rewrite of the agent's system prompt, and a write-back of the corrective
// snippets that worked, so future rewrites can reuse them.
//
// Key packages:
//
//   - core: the shared vocabulary - ConversationTrace, the issue taxonomy,
//     Finding, Judgment, DimensionScores and the QaReport.
//
//   - inspector: deterministic structural checks for mechanical trajectory
//     defects (repeated tool calls, empty arguments, off-topic or evasive
//     final answers).
//
//   - judge: the rubric-scoring contract around the LLM capability,
//     including response validation, the retry-then-degrade policy and the
//     taxonomy escape hatch for unrecognized issue codes.
//
//   - memory: the append-only store of (issue codes, snippets) pairs with
//     deterministic ranked retrieval; in-memory and SQLite backends.
//
//   - rewriter: the prompt-rewriting policy - a strict no-op on clean runs,
//     mechanically enforced fix categories per issue code, and verbatim
//     snippet reuse.
//
//   - orchestrator: the state machine tying the steps into one idempotent
//     Evaluate operation that always returns a complete report for a valid
//     trace.
//
//   - gate: batch evaluation of labeled trace sets against per-class
//     detection thresholds.
//
//   - redteam: adversarial prompt generation and a deliberately weak agent
//     simulator for injection-resilience testing.
//
// Minimal usage:
//
//	llm, err := llms.New("anthropic", "claude-sonnet-4-5-20250929", apiKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := memory.NewSQLiteStore("qa-memory.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	pipeline := orchestrator.New(llm, store)
//	report, err := pipeline.Evaluate(ctx, trace)
//	if err != nil {
//	    log.Fatal(err) // only a malformed trace gets here
//	}
//	fmt.Printf("overall %.2f, %d finding(s)\n", report.Overall, len(report.Findings))
//
// The cmd/agentqa CLI wraps the same pipeline with evaluate, gate and
// redteam commands.
package agentqa
