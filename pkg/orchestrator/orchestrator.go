// Package orchestrator sequences one trace evaluation: structural
// inspection, rubric judging, memory retrieval, prompt rewriting and the
// memory write-back, assembled into a single immutable QaReport.
package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentmentor/agentqa-go/pkg/core"
	"github.com/agentmentor/agentqa-go/pkg/errors"
	"github.com/agentmentor/agentqa-go/pkg/inspector"
	"github.com/agentmentor/agentqa-go/pkg/judge"
	"github.com/agentmentor/agentqa-go/pkg/logging"
	"github.com/agentmentor/agentqa-go/pkg/memory"
	"github.com/agentmentor/agentqa-go/pkg/rewriter"
)

// Stage names one step of the evaluation state machine. Stages advance
// strictly in order; failed is terminal and reachable only from a
// malformed trace, every other error degrades into report findings.
type Stage string

const (
	StageReceived        Stage = "received"
	StageInspected       Stage = "inspected"
	StageJudged          Stage = "judged"
	StageMemoryRetrieved Stage = "memory_retrieved"
	StageRewritten       Stage = "rewritten"
	StageMemoryAppended  Stage = "memory_appended"
	StageComplete        Stage = "complete"
	StageFailed          Stage = "failed"
)

// Orchestrator runs the evaluation pipeline. Safe for concurrent Evaluate
// calls against a shared memory store.
type Orchestrator struct {
	inspector      *inspector.Inspector
	judge          *judge.Judge
	rewriter       *rewriter.Rewriter
	store          memory.Store
	retrievalLimit int
}

type Option func(*Orchestrator)

// WithInspector replaces the default-config inspector.
func WithInspector(i *inspector.Inspector) Option {
	return func(o *Orchestrator) { o.inspector = i }
}

// WithJudge replaces the default judge.
func WithJudge(j *judge.Judge) Option {
	return func(o *Orchestrator) { o.judge = j }
}

// WithRewriter replaces the default rewriter.
func WithRewriter(r *rewriter.Rewriter) Option {
	return func(o *Orchestrator) { o.rewriter = r }
}

// WithRetrievalLimit caps how many memory snippets feed the rewriter.
func WithRetrievalLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.retrievalLimit = n
		}
	}
}

func New(llm core.LLM, store memory.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inspector:      inspector.New(inspector.DefaultConfig()),
		judge:          judge.New(llm),
		rewriter:       rewriter.New(llm),
		store:          store,
		retrievalLimit: memory.DefaultRetrievalLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Evaluate runs the full pipeline on one trace. A malformed trace is the
// only fatal error; for any syntactically valid trace the caller receives
// a complete QaReport, with capability and storage failures surfaced as
// findings rather than errors. Scoring is idempotent across calls on the
// same trace; each call appends its own memory record.
func (o *Orchestrator) Evaluate(ctx context.Context, trace *core.ConversationTrace) (*core.QaReport, error) {
	logger := logging.GetLogger()
	if trace == nil {
		return nil, errors.New(errors.InvalidTrace, "trace is nil")
	}
	ctx = logging.WithSessionID(ctx, trace.SessionID)

	o.logStage(ctx, StageReceived)
	if err := trace.Validate(); err != nil {
		o.logStage(ctx, StageFailed)
		return nil, errors.Wrap(err, errors.InvalidTrace, "trace validation failed")
	}

	structural := o.inspector.Inspect(trace)
	o.logStage(ctx, StageInspected)
	logger.Debug(ctx, "structural inspection found %d issue(s)", len(structural))

	judgment := o.judge.Judge(ctx, trace, structural)
	o.logStage(ctx, StageJudged)

	// Judgment stays the judge's own output; the merged view lives only
	// in the report findings.
	structural = filterFalsePositives(structural, judgment.Scores)
	merged := core.MergeFindings(structural, judgment.Findings)

	actionable := actionableCodes(merged)

	snippets := o.retrieve(ctx, actionable)
	o.logStage(ctx, StageMemoryRetrieved)

	revision, rewriteFindings := o.rewriter.Rewrite(ctx, trace.SystemPrompt, merged, judgment.Rationale, snippets)
	merged = core.MergeFindings(merged, rewriteFindings)
	o.logStage(ctx, StageRewritten)

	report := &core.QaReport{
		ID:        uuid.New().String(),
		SessionID: trace.SessionID,
		Judgment:  judgment,
		Overall:   judgment.Scores.Overall(),
		Revision:  revision,
	}

	if len(actionable) > 0 {
		rec, err := o.store.Append(ctx, core.MemoryRecord{
			IssueCodes: actionable,
			Snippets:   rewriter.Distill(revision.Revised),
			SessionID:  trace.SessionID,
		})
		if err != nil {
			logger.Warn(ctx, "memory append failed: %v", err)
			report.MemoryWriteError = err.Error()
			merged = core.MergeFindings(merged, []core.Finding{core.NewFinding(core.IssueMemoryWriteFailed)})
		} else {
			report.Memory = &rec
		}
	}
	o.logStage(ctx, StageMemoryAppended)

	report.Findings = merged
	o.logStage(ctx, StageComplete)

	logger.Info(ctx, "evaluation complete: overall=%.2f findings=%d", core.Round2(report.Overall), len(report.Findings))
	return report, nil
}

func (o *Orchestrator) logStage(ctx context.Context, s Stage) {
	logging.GetLogger().Debug(logging.WithStep(ctx, string(s)), "stage %s", s)
}

// retrieve fetches rewriter guidance for the present issue codes, falling
// back to the most recent snippets when nothing overlaps. Storage read
// failures are non-fatal: the rewrite proceeds without memory.
func (o *Orchestrator) retrieve(ctx context.Context, codes []core.IssueCode) []string {
	if len(codes) == 0 {
		return nil
	}
	snippets, err := o.store.Retrieve(ctx, codes, o.retrievalLimit)
	if err != nil {
		logging.GetLogger().Warn(ctx, "memory retrieval failed: %v", err)
		return nil
	}
	if len(snippets) > 0 {
		return snippets
	}
	recent, err := o.store.Recent(ctx, o.retrievalLimit)
	if err != nil {
		logging.GetLogger().Warn(ctx, "recent-snippet fallback failed: %v", err)
		return nil
	}
	return recent
}

// filterFalsePositives drops the missing_key_terms inspector finding when
// the judge scored both task success and correctness at the maximum: a
// fully correct answer that rephrases the question is not a defect.
func filterFalsePositives(structural []core.Finding, scores core.DimensionScores) []core.Finding {
	if scores.TaskSuccess < 5 || scores.Correctness < 5 {
		return structural
	}
	var out []core.Finding
	for _, f := range structural {
		if f.Code == core.IssueMissingKeyTerms {
			continue
		}
		out = append(out, f)
	}
	return out
}

// actionableCodes extracts the issue codes worth remembering and fixing,
// excluding systemic pipeline codes and unrecognized-code markers.
func actionableCodes(findings []core.Finding) []core.IssueCode {
	var codes []core.IssueCode
	for _, f := range findings {
		if f.Unrecognized {
			continue
		}
		switch f.Code {
		case core.IssueJudgeFailure, core.IssueRewriteFailure,
			core.IssueMemoryWriteFailed, core.IssueUnrecognizedCode:
			continue
		}
		codes = append(codes, f.Code)
	}
	return codes
}
