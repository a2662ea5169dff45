// Package testutil provides deterministic stand-ins for the external
// reasoning capability so the pipeline is fully testable offline.
package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/agentmentor/agentqa-go/pkg/core"
)

// MockLLM is a testify mock implementation of core.LLM for fine-grained
// expectation tests.
type MockLLM struct {
	mock.Mock
}

var _ core.LLM = (*MockLLM)(nil)

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if resp, ok := args.Get(0).(*core.LLMResponse); ok {
		return resp, args.Error(1)
	}
	return &core.LLMResponse{Content: args.String(0)}, args.Error(1)
}

func (m *MockLLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockLLM) ProviderName() string { return "mock" }
func (m *MockLLM) ModelID() string      { return "mock-model" }

// ScriptedLLM replays a fixed sequence of JSON responses (or errors), one
// per call, in order. Simpler than MockLLM when a test just needs the
// capability to "answer like this, then like that".
type ScriptedLLM struct {
	mu    sync.Mutex
	steps []ScriptStep
	calls int

	// Prompts records every prompt received, for assertions.
	Prompts []string
}

// ScriptStep is one canned capability response.
type ScriptStep struct {
	JSON map[string]interface{}
	Err  error
	// Block, when set, waits for context cancellation and returns
	// ctx.Err(), simulating a hung capability for timeout tests.
	Block bool
}

var _ core.LLM = (*ScriptedLLM)(nil)

func NewScriptedLLM(steps ...ScriptStep) *ScriptedLLM {
	return &ScriptedLLM{steps: steps}
}

// JudgeResponse builds a well-formed judge JSON payload.
func JudgeResponse(scores core.DimensionScores, issues []string, rationale string) map[string]interface{} {
	issueList := make([]interface{}, len(issues))
	for i, s := range issues {
		issueList[i] = s
	}
	return map[string]interface{}{
		"scores": map[string]interface{}{
			"task_success": scores.TaskSuccess,
			"correctness":  scores.Correctness,
			"helpfulness":  scores.Helpfulness,
			"safety":       scores.Safety,
			"efficiency":   scores.Efficiency,
		},
		"issues":    issueList,
		"rationale": rationale,
	}
}

// RewriteResponse builds a well-formed rewriter JSON payload.
func RewriteResponse(improvedPrompt string, changes []string) map[string]interface{} {
	changeList := make([]interface{}, len(changes))
	for i, c := range changes {
		changeList[i] = c
	}
	return map[string]interface{}{
		"improved_prompt":   improvedPrompt,
		"changes_explained": changeList,
	}
}

func (s *ScriptedLLM) next(ctx context.Context, prompt string) (map[string]interface{}, error) {
	s.mu.Lock()
	s.Prompts = append(s.Prompts, prompt)
	idx := s.calls
	s.calls++
	var step ScriptStep
	if idx < len(s.steps) {
		step = s.steps[idx]
	} else if len(s.steps) > 0 {
		// Past the script: repeat the last step.
		step = s.steps[len(s.steps)-1]
	}
	s.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return step.JSON, nil
}

func (s *ScriptedLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	_, err := s.next(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &core.LLMResponse{Content: "{}"}, nil
}

func (s *ScriptedLLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return s.next(ctx, prompt)
}

func (s *ScriptedLLM) ProviderName() string { return "scripted" }
func (s *ScriptedLLM) ModelID() string      { return "scripted-stub" }

// Calls reports how many capability calls were made.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
