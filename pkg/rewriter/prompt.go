package rewriter

import (
	"fmt"
	"strings"

	"github.com/agentmentor/agentqa-go/pkg/core"
)

const rewriterSystemPrompt = `You are a prompt engineer. You improve the system prompt of an AI agent
based on QA findings from its past conversations. Keep the original intent
and tone of the prompt; add or tighten rules only where the findings show
they are needed. Rules must be general, never tied to one conversation.

Respond with a single JSON object:
{
  "improved_prompt": "<the full revised system prompt>",
  "changes_explained": ["<one line per change>"]
}`

func buildRewritePrompt(currentPrompt string, findings []core.Finding, rationale string, issues []core.IssueCode, snippets []string) string {
	var b strings.Builder

	b.WriteString("## Current system prompt\n")
	if currentPrompt == "" {
		b.WriteString("(empty)\n")
	} else {
		b.WriteString(currentPrompt + "\n")
	}

	b.WriteString("\n## Issues found in the agent's conversations\n")
	for _, f := range findings {
		if !containsCode(issues, f.Code) {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Code, f.Description)
	}
	if rationale != "" {
		b.WriteString("\n## Judge rationale\n")
		b.WriteString(rationale + "\n")
	}

	if len(snippets) > 0 {
		b.WriteString("\n## Proven guidance from past fixes\n")
		b.WriteString("Incorporate these lines verbatim where they fit:\n")
		for _, s := range snippets {
			b.WriteString("- " + s + "\n")
		}
	}

	b.WriteString("\nRewrite the system prompt so these issues do not recur.")
	return b.String()
}

func containsCode(codes []core.IssueCode, code core.IssueCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
