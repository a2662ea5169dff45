package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmentor/agentqa-go/pkg/core"
)

func newTrace(events ...core.TraceEvent) *core.ConversationTrace {
	return &core.ConversationTrace{
		SessionID:    "sess-test",
		SystemPrompt: "You are a helpful assistant.",
		Events:       events,
	}
}

func TestInspectDeterminism(t *testing.T) {
	trace := newTrace(
		core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "Find the population of Lisbon"},
		core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "search", Args: map[string]interface{}{"q": "lisbon population"}},
		core.TraceEvent{Kind: core.EventToolCall, Ordinal: 2, ToolName: "search", Args: map[string]interface{}{"q": "lisbon population"}},
		core.TraceEvent{Kind: core.EventToolCall, Ordinal: 3, ToolName: "search", Args: map[string]interface{}{}},
		core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 4, Content: "I like turtles and other reptiles generally speaking."},
	)
	insp := New(DefaultConfig())

	first := insp.Inspect(trace)
	second := insp.Inspect(trace)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestRepeatedToolCalls(t *testing.T) {
	insp := New(DefaultConfig())

	t.Run("IdenticalArgsDetected", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "weather in Paris and exchange rate"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "get_weather", Args: map[string]interface{}{"city": "Paris", "unit": "c"}},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 2, ToolName: "get_weather", Args: map[string]interface{}{"unit": "c", "city": "Paris"}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 3, Content: "The weather in Paris is mild."},
		)
		findings := insp.Inspect(trace)
		require.True(t, core.HasCode(findings, core.IssueRepeatedToolCalls))
		for _, f := range findings {
			if f.Code == core.IssueRepeatedToolCalls {
				assert.Equal(t, []int{1, 2}, f.Evidence)
			}
		}
	})

	t.Run("EachRepeatPairsWithFirstCall", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "weather in Paris right now"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "get_weather", Args: map[string]interface{}{"city": "Paris"}},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 2, ToolName: "get_weather", Args: map[string]interface{}{"city": "Paris"}},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 3, ToolName: "get_weather", Args: map[string]interface{}{"city": "Paris"}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 4, Content: "The weather in Paris is mild."},
		)
		findings := insp.Inspect(trace)
		require.True(t, core.HasCode(findings, core.IssueRepeatedToolCalls))
		for _, f := range findings {
			if f.Code == core.IssueRepeatedToolCalls {
				assert.Equal(t, []int{1, 2, 1, 3}, f.Evidence)
			}
		}
	})

	t.Run("DifferentArgsNotDetected", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "weather in Paris and Rome"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "get_weather", Args: map[string]interface{}{"city": "Paris"}},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 2, ToolName: "get_weather", Args: map[string]interface{}{"city": "Rome"}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 3, Content: "Paris is mild, Rome is warm, nice weather in both."},
		)
		findings := insp.Inspect(trace)
		assert.False(t, core.HasCode(findings, core.IssueRepeatedToolCalls))
	})

	t.Run("NestedArgsOrderInsensitive", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "book a flight to Tokyo with a window seat"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "book", Args: map[string]interface{}{
				"dest": "Tokyo", "prefs": map[string]interface{}{"seat": "window", "meal": "veg"},
			}},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 2, ToolName: "book", Args: map[string]interface{}{
				"prefs": map[string]interface{}{"meal": "veg", "seat": "window"}, "dest": "Tokyo",
			}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 3, Content: "Booked your flight to Tokyo with a window seat."},
		)
		findings := insp.Inspect(trace)
		assert.True(t, core.HasCode(findings, core.IssueRepeatedToolCalls))
	})
}

func TestEmptyToolArgs(t *testing.T) {
	insp := New(DefaultConfig())

	t.Run("EmptyMapping", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "search something for me"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "search", Args: map[string]interface{}{}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 2, Content: "I searched for something as you asked."},
		)
		findings := insp.Inspect(trace)
		require.True(t, core.HasCode(findings, core.IssueEmptyToolArgs))
	})

	t.Run("AllValuesEmpty", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "search the web for gophers"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "search", Args: map[string]interface{}{"q": "", "lang": nil}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 2, Content: "Gophers are burrowing rodents found in the web of life."},
		)
		findings := insp.Inspect(trace)
		assert.True(t, core.HasCode(findings, core.IssueEmptyToolArgs))
	})

	t.Run("PopulatedArgsPass", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "search the web for gophers"},
			core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "search", Args: map[string]interface{}{"q": "gophers"}},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 2, Content: "Gophers are burrowing rodents, here is what the web says."},
		)
		findings := insp.Inspect(trace)
		assert.False(t, core.HasCode(findings, core.IssueEmptyToolArgs))
	})
}

func TestMissingKeyTerms(t *testing.T) {
	t.Run("ExpectedTermsAbsent", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ExpectedTerms = []string{"temp_c", "condition"}
		insp := New(cfg)
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "What is the weather?"},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 1, Content: "Everything looks fine today."},
		)
		findings := insp.Inspect(trace)
		assert.True(t, core.HasCode(findings, core.IssueMissingKeyTerms))
	})

	t.Run("ExpectedTermPresent", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ExpectedTerms = []string{"temp_c"}
		insp := New(cfg)
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "What is the weather?"},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 1, Content: "The reading shows temp_c of 18."},
		)
		findings := insp.Inspect(trace)
		assert.False(t, core.HasCode(findings, core.IssueMissingKeyTerms))
	})

	t.Run("HeuristicFlagsUnresponsiveAnswer", func(t *testing.T) {
		insp := New(DefaultConfig())
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "Summarize the quarterly revenue figures for Acme"},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 1, Content: "Certainly! Here is a poem about springtime flowers blooming in the meadow."},
		)
		findings := insp.Inspect(trace)
		assert.True(t, core.HasCode(findings, core.IssueMissingKeyTerms))
	})
}

func TestOffTopic(t *testing.T) {
	insp := New(DefaultConfig())

	t.Run("UnrelatedAnswerFlagged", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "Explain the quarterly revenue numbers"},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 1, Content: "Bananas ripen faster inside paper bags during summer."},
		)
		findings := insp.Inspect(trace)
		assert.True(t, core.HasCode(findings, core.IssueOffTopic))
	})

	t.Run("RelatedAnswerPasses", func(t *testing.T) {
		trace := newTrace(
			core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "Explain the quarterly revenue numbers"},
			core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 1, Content: "The quarterly revenue numbers grew by twelve percent."},
		)
		findings := insp.Inspect(trace)
		assert.False(t, core.HasCode(findings, core.IssueOffTopic))
	})
}

func TestCleanTraceYieldsNoFindings(t *testing.T) {
	insp := New(DefaultConfig())
	trace := newTrace(
		core.TraceEvent{Kind: core.EventUserMessage, Ordinal: 0, Content: "What is the weather in Paris?"},
		core.TraceEvent{Kind: core.EventToolCall, Ordinal: 1, ToolName: "get_weather", Args: map[string]interface{}{"city": "Paris"}},
		core.TraceEvent{Kind: core.EventToolResult, Ordinal: 2, ToolName: "get_weather", CallOrdinal: 1, Result: "18C cloudy"},
		core.TraceEvent{Kind: core.EventAssistantMessage, Ordinal: 3, Content: "The weather in Paris is cloudy at around 18 degrees."},
	)
	assert.Empty(t, insp.Inspect(trace))
}
