// Package judge wraps the external scoring capability behind the contract
// the pipeline relies on: five dimension scores in range, issue codes from
// the taxonomy, and a free-text rationale. The capability itself is opaque;
// this package owns the validation and repair of whatever it returns.
package judge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentmentor/agentqa-go/pkg/core"
	"github.com/agentmentor/agentqa-go/pkg/errors"
	"github.com/agentmentor/agentqa-go/pkg/logging"
)

const defaultTimeout = 60 * time.Second

// Judge scores a conversation trace through an injected LLM capability.
type Judge struct {
	llm     core.LLM
	timeout time.Duration
}

type Option func(*Judge)

// WithTimeout bounds each capability call. After two timed-out attempts the
// judgment degrades to a judge_failure finding instead of hanging.
func WithTimeout(d time.Duration) Option {
	return func(j *Judge) {
		if d > 0 {
			j.timeout = d
		}
	}
}

func New(llm core.LLM, opts ...Option) *Judge {
	j := &Judge{
		llm:     llm,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Judge evaluates the trace and returns a validated Judgment. It never
// fails: capability errors are retried once and then degraded to zero
// scores plus a judge_failure finding, so the caller always gets a result.
func (j *Judge) Judge(ctx context.Context, trace *core.ConversationTrace, structural []core.Finding) core.Judgment {
	logger := logging.GetLogger()
	prompt := j.buildPrompt(trace, structural)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		judgment, err := j.callOnce(ctx, prompt)
		if err == nil {
			return judgment
		}
		lastErr = err
		logger.Warn(ctx, "judge attempt %d failed: %v", attempt+1, err)
	}

	logger.Error(ctx, "judge capability failed twice, degrading to zero scores: %v", lastErr)
	return core.Judgment{
		Scores:    core.DimensionScores{},
		Findings:  []core.Finding{core.NewFinding(core.IssueJudgeFailure)},
		Rationale: fmt.Sprintf("judge capability unavailable: %v", lastErr),
	}
}

func (j *Judge) callOnce(ctx context.Context, prompt string) (core.Judgment, error) {
	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	raw, err := j.llm.GenerateWithJSON(callCtx, prompt,
		core.WithSystemPrompt(systemPrompt),
		core.WithTemperature(0.0),
	)
	if err != nil {
		if cerr := errors.CheckContext(callCtx, "judge call"); cerr != nil {
			return core.Judgment{}, cerr
		}
		return core.Judgment{}, errors.Wrap(err, errors.JudgeFailed, "judge capability call failed")
	}
	return parseResponse(raw)
}

// parseResponse validates the raw capability output against the contract.
// Missing or non-numeric scores reject the response (triggering the retry);
// out-of-range numeric values are clamped into [0,5].
func parseResponse(raw map[string]interface{}) (core.Judgment, error) {
	scoresRaw, ok := raw["scores"].(map[string]interface{})
	if !ok {
		return core.Judgment{}, errors.New(errors.InvalidResponse, "judge response missing scores object")
	}

	read := func(name string) (float64, error) {
		v, ok := scoresRaw[name]
		if !ok {
			return 0, errors.WithFields(
				errors.New(errors.InvalidResponse, "judge response missing dimension"),
				errors.Fields{"dimension": name},
			)
		}
		f, ok := toFloat(v)
		if !ok {
			return 0, errors.WithFields(
				errors.New(errors.InvalidResponse, "judge dimension is not a number"),
				errors.Fields{"dimension": name, "value": v},
			)
		}
		return f, nil
	}

	var scores core.DimensionScores
	var err error
	if scores.TaskSuccess, err = read("task_success"); err != nil {
		return core.Judgment{}, err
	}
	if scores.Correctness, err = read("correctness"); err != nil {
		return core.Judgment{}, err
	}
	if scores.Helpfulness, err = read("helpfulness"); err != nil {
		return core.Judgment{}, err
	}
	if scores.Safety, err = read("safety"); err != nil {
		return core.Judgment{}, err
	}
	if scores.Efficiency, err = read("efficiency"); err != nil {
		return core.Judgment{}, err
	}
	scores = scores.Clamp()

	findings := parseIssues(raw["issues"])

	rationale, _ := raw["rationale"].(string)

	return core.Judgment{
		Scores:    scores,
		Findings:  findings,
		Rationale: rationale,
	}, nil
}

// parseIssues maps the returned issue codes into findings. Codes outside
// the taxonomy are preserved but flagged with unrecognized_issue_code so
// new codes surface deliberately instead of being dropped.
func parseIssues(v interface{}) []core.Finding {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}

	var findings []core.Finding
	var unknown []string
	seen := make(map[core.IssueCode]bool)
	for _, item := range items {
		s, ok := item.(string)
		if !ok || s == "" {
			continue
		}
		code := core.IssueCode(strings.ToLower(strings.TrimSpace(s)))
		if seen[code] {
			continue
		}
		seen[code] = true
		if code.Known() {
			findings = append(findings, core.NewFinding(code))
		} else {
			findings = append(findings, core.Finding{
				Code:         code,
				Description:  "code outside taxonomy, preserved verbatim",
				Unrecognized: true,
			})
			unknown = append(unknown, string(code))
		}
	}
	if len(unknown) > 0 {
		findings = append(findings, core.Finding{
			Code:        core.IssueUnrecognizedCode,
			Description: "judge returned codes outside the taxonomy: " + strings.Join(unknown, ", "),
		})
	}
	return findings
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
