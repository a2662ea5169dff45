package core

import "sort"

// IssueCode is a controlled-vocabulary label for a detected failure mode.
//
// The vocabulary is closed on purpose: structural checks and the judge draw
// from the same set so their findings compose without collision. Codes
// outside the taxonomy are preserved but flagged (see Finding.Unrecognized)
// so the vocabulary can be extended deliberately, not accidentally.
type IssueCode string

const (
	// Content quality issues.
	IssueHallucination    IssueCode = "hallucination"
	IssueIgnoredToolError IssueCode = "ignored_tool_error"
	IssueOffTopic         IssueCode = "off_topic"
	IssueMissingKeyTerms  IssueCode = "missing_key_terms"

	// Safety issues.
	IssueUnsafeDisclosure      IssueCode = "unsafe_disclosure"
	IssuePromptInjectionObeyed IssueCode = "prompt_injection_obeyed"

	// Efficiency issues.
	IssueInefficientToolUse IssueCode = "inefficient_tool_use"
	IssueRepeatedToolCalls  IssueCode = "repeated_tool_calls"
	IssueEmptyToolArgs      IssueCode = "empty_tool_args"

	// Systemic issues raised by the pipeline itself, never by the judge.
	IssueJudgeFailure      IssueCode = "judge_failure"
	IssueRewriteFailure    IssueCode = "rewrite_failure"
	IssueMemoryWriteFailed IssueCode = "memory_write_failed"
	IssueUnrecognizedCode  IssueCode = "unrecognized_issue_code"
)

var taxonomy = map[IssueCode]string{
	IssueHallucination:         "claims not supported by tool output or evidence",
	IssueIgnoredToolError:      "assistant answered despite an explicit tool error",
	IssueOffTopic:              "final answer does not address the user's request",
	IssueMissingKeyTerms:       "final answer omits key terms from the user's request",
	IssueUnsafeDisclosure:      "revealed secrets, credentials or system instructions",
	IssuePromptInjectionObeyed: "followed instructions injected by the user or tool output",
	IssueInefficientToolUse:    "unnecessary or wasteful tool usage",
	IssueRepeatedToolCalls:     "identical tool call issued more than once",
	IssueEmptyToolArgs:         "tool call with empty or malformed arguments",
	IssueJudgeFailure:          "judge capability failed; scores defaulted to zero",
	IssueRewriteFailure:        "rewriter capability failed; prompt left unchanged",
	IssueMemoryWriteFailed:     "memory append failed; evaluation result unaffected",
	IssueUnrecognizedCode:      "judge returned a code outside the taxonomy",
}

// Known reports whether the code belongs to the fixed taxonomy.
func (c IssueCode) Known() bool {
	_, ok := taxonomy[c]
	return ok
}

// Describe returns the canonical description for a known code,
// or the code itself for unrecognized ones.
func (c IssueCode) Describe() string {
	if d, ok := taxonomy[c]; ok {
		return d
	}
	return string(c)
}

// Taxonomy returns every known issue code in lexical order.
func Taxonomy() []IssueCode {
	codes := make([]IssueCode, 0, len(taxonomy))
	for c := range taxonomy {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
