package core

import (
	"strings"

	"github.com/agentmentor/agentqa-go/pkg/errors"
)

// EventKind enumerates the tagged variants of a TraceEvent.
type EventKind string

const (
	EventUserMessage      EventKind = "user_message"
	EventAssistantMessage EventKind = "assistant_message"
	EventToolCall         EventKind = "tool_call"
	EventToolResult       EventKind = "tool_result"
)

func (k EventKind) valid() bool {
	switch k {
	case EventUserMessage, EventAssistantMessage, EventToolCall, EventToolResult:
		return true
	}
	return false
}

// TraceEvent is one recorded step of an agent run. Which fields are
// meaningful depends on Kind:
//
//   - user_message / assistant_message: Content
//   - tool_call: ToolName, Args
//   - tool_result: ToolName, CallOrdinal, Result or Error
//
// Events are immutable once ingested.
type TraceEvent struct {
	Kind    EventKind `json:"kind"`
	Ordinal int       `json:"ordinal"`

	Content string `json:"content,omitempty"`

	ToolName    string                 `json:"tool_name,omitempty"`
	Args        map[string]interface{} `json:"args,omitempty"`
	CallOrdinal int                    `json:"call_ordinal,omitempty"`
	Result      string                 `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// ConversationTrace is the full recorded interaction for one agent session,
// plus the system prompt that was in effect.
type ConversationTrace struct {
	SessionID    string            `json:"session_id"`
	SystemPrompt string            `json:"system_prompt"`
	Events       []TraceEvent      `json:"events"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate rejects malformed traces before they reach the inspector.
// Events must carry strictly increasing ordinals and every tool_result
// must reference exactly one preceding tool_call.
func (t *ConversationTrace) Validate() error {
	if t == nil {
		return errors.New(errors.InvalidTrace, "trace is nil")
	}
	if len(t.Events) == 0 {
		return errors.New(errors.InvalidTrace, "trace has no events")
	}

	callOrdinals := make(map[int]bool)
	prev := -1
	for i, ev := range t.Events {
		if !ev.Kind.valid() {
			return errors.WithFields(
				errors.New(errors.InvalidTrace, "unknown event kind"),
				errors.Fields{"index": i, "kind": string(ev.Kind)},
			)
		}
		if ev.Ordinal <= prev {
			return errors.WithFields(
				errors.New(errors.InvalidTrace, "event ordinals must be strictly increasing"),
				errors.Fields{"index": i, "ordinal": ev.Ordinal},
			)
		}
		prev = ev.Ordinal

		switch ev.Kind {
		case EventToolCall:
			if ev.ToolName == "" {
				return errors.WithFields(
					errors.New(errors.InvalidTrace, "tool_call without tool name"),
					errors.Fields{"ordinal": ev.Ordinal},
				)
			}
			callOrdinals[ev.Ordinal] = true
		case EventToolResult:
			if !callOrdinals[ev.CallOrdinal] {
				return errors.WithFields(
					errors.New(errors.InvalidTrace, "tool_result without matching preceding tool_call"),
					errors.Fields{"ordinal": ev.Ordinal, "call_ordinal": ev.CallOrdinal},
				)
			}
		}
	}
	return nil
}

// FirstUserMessage returns the first user_message with content, or nil.
func (t *ConversationTrace) FirstUserMessage() *TraceEvent {
	for i := range t.Events {
		ev := &t.Events[i]
		if ev.Kind == EventUserMessage && strings.TrimSpace(ev.Content) != "" {
			return ev
		}
	}
	return nil
}

// LastUserMessage returns the last user_message with content, or nil.
func (t *ConversationTrace) LastUserMessage() *TraceEvent {
	for i := len(t.Events) - 1; i >= 0; i-- {
		ev := &t.Events[i]
		if ev.Kind == EventUserMessage && strings.TrimSpace(ev.Content) != "" {
			return ev
		}
	}
	return nil
}

// FinalAssistantMessage returns the last assistant_message with content
// that follows the last user message, or the last assistant message overall
// when the conversation does not end with a user turn.
func (t *ConversationTrace) FinalAssistantMessage() *TraceEvent {
	var last *TraceEvent
	lastUser := -1
	for i := range t.Events {
		ev := &t.Events[i]
		switch ev.Kind {
		case EventUserMessage:
			lastUser = i
		case EventAssistantMessage:
			if strings.TrimSpace(ev.Content) != "" {
				last = ev
			}
		}
	}
	if last == nil {
		return nil
	}
	// Prefer an assistant message after the last user turn.
	for i := len(t.Events) - 1; i > lastUser; i-- {
		ev := &t.Events[i]
		if ev.Kind == EventAssistantMessage && strings.TrimSpace(ev.Content) != "" {
			return ev
		}
	}
	return last
}

// EventByOrdinal returns the event with the given ordinal, or nil.
func (t *ConversationTrace) EventByOrdinal(ordinal int) *TraceEvent {
	for i := range t.Events {
		if t.Events[i].Ordinal == ordinal {
			return &t.Events[i]
		}
	}
	return nil
}
