package core

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/agentmentor/agentqa-go/pkg/errors"
)

// ParseTrace decodes a ConversationTrace from JSON and validates it.
// Traces that omit explicit ordinals get them assigned from event order.
func ParseTrace(data []byte) (*ConversationTrace, error) {
	var trace ConversationTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to decode trace JSON")
	}

	// A trace serialized without ordinals has every event at zero;
	// in that case ordinals follow slice order.
	allZero := true
	for _, ev := range trace.Events {
		if ev.Ordinal != 0 {
			allZero = false
			break
		}
	}
	if allZero && len(trace.Events) > 1 {
		for i := range trace.Events {
			trace.Events[i].Ordinal = i
			if trace.Events[i].Kind == EventToolResult && trace.Events[i].CallOrdinal == 0 {
				// Point at the nearest preceding tool_call with the same tool.
				for j := i - 1; j >= 0; j-- {
					if trace.Events[j].Kind == EventToolCall &&
						strings.EqualFold(trace.Events[j].ToolName, trace.Events[i].ToolName) {
						trace.Events[i].CallOrdinal = j
						break
					}
				}
			}
		}
	}

	if err := trace.Validate(); err != nil {
		return nil, err
	}
	return &trace, nil
}

// LoadTraceFile reads and validates a trace from a JSON file.
func LoadTraceFile(path string) (*ConversationTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read trace file"),
			errors.Fields{"path": path},
		)
	}
	return ParseTrace(data)
}
