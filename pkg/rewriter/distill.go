package rewriter

import "strings"

const maxSnippets = 2

// strongRuleMarkers mark prompt lines that carry a hard behavioral rule
// worth reusing on future rewrites.
var strongRuleMarkers = []string{
	"must",
	"never",
	"always",
	"refuse",
	"do not",
	"don't",
	"ignore any",
}

// Distill extracts up to two reusable rule snippets from a revised prompt.
// A snippet is a single line containing a strong rule marker, long enough
// to be meaningful and short enough to merge into future prompts verbatim.
func Distill(revisedPrompt string) []string {
	var snippets []string
	for _, line := range strings.Split(revisedPrompt, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if len(line) < 20 || len(line) > 200 {
			continue
		}
		if !hasStrongRule(line) {
			continue
		}
		if containsSnippet(snippets, line) {
			continue
		}
		snippets = append(snippets, line)
		if len(snippets) == maxSnippets {
			break
		}
	}
	return snippets
}

func hasStrongRule(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range strongRuleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func containsSnippet(snippets []string, line string) bool {
	for _, s := range snippets {
		if s == line {
			return true
		}
	}
	return false
}
