// Package inspector implements the deterministic structural pre-check that
// runs before the judge. It flags mechanical trajectory defects so they are
// never missed even when the judge is inconsistent. All checks are pure
// functions of the trace; no external calls.
package inspector

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agentmentor/agentqa-go/pkg/core"
)

// Config carries the heuristic thresholds. The literal values are tuning
// knobs, not load-bearing correctness requirements.
type Config struct {
	// MinMissingTerms is the minimum number of absent key terms before a
	// missing_key_terms finding is raised.
	MinMissingTerms int `yaml:"min_missing_terms" validate:"min=1"`

	// MinAnswerChars guards against flagging very short answers.
	MinAnswerChars int `yaml:"min_answer_chars" validate:"min=0"`

	// OffTopicOverlap is the token-overlap ratio below which the final
	// answer is considered off topic. Low-confidence heuristic.
	OffTopicOverlap float64 `yaml:"off_topic_overlap" validate:"min=0,max=1"`

	// ExpectedTerms, when set, overrides the key-term heuristic: the
	// final answer must contain at least one of these terms.
	ExpectedTerms []string `yaml:"expected_terms,omitempty"`
}

// DefaultConfig returns thresholds matching observed agent traces.
func DefaultConfig() Config {
	return Config{
		MinMissingTerms: 2,
		MinAnswerChars:  40,
		OffTopicOverlap: 0.1,
	}
}

// Inspector analyzes conversation traces for structural defects.
type Inspector struct {
	cfg Config
}

func New(cfg Config) *Inspector {
	if cfg.MinMissingTerms <= 0 {
		cfg.MinMissingTerms = DefaultConfig().MinMissingTerms
	}
	return &Inspector{cfg: cfg}
}

// Inspect runs every check against the trace and returns the findings in a
// fixed order: repeated calls, empty args, missing key terms, off topic.
// Calling Inspect twice on the same trace yields identical findings.
func (i *Inspector) Inspect(trace *core.ConversationTrace) []core.Finding {
	var findings []core.Finding
	findings = append(findings, i.detectRepeatedToolCalls(trace.Events)...)
	findings = append(findings, i.detectEmptyToolArgs(trace.Events)...)
	findings = append(findings, i.detectMissingKeyTerms(trace)...)
	findings = append(findings, i.detectOffTopic(trace)...)
	return findings
}

// callSignature canonicalizes a tool call so argument key order does not
// matter. encoding/json sorts map keys, which makes nested maps canonical too.
func callSignature(name string, args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", args))
	}
	return name + "|" + string(data)
}

func (i *Inspector) detectRepeatedToolCalls(events []core.TraceEvent) []core.Finding {
	var findings []core.Finding
	seen := make(map[string][]int) // signature -> ordinals

	for _, ev := range events {
		if ev.Kind != core.EventToolCall || ev.ToolName == "" {
			continue
		}
		sig := callSignature(ev.ToolName, ev.Args)
		seen[sig] = append(seen[sig], ev.Ordinal)
	}

	// Deterministic order over the signatures.
	sigs := make([]string, 0, len(seen))
	for sig, ordinals := range seen {
		if len(ordinals) > 1 {
			sigs = append(sigs, sig)
		}
	}
	sort.Strings(sigs)

	for _, sig := range sigs {
		ordinals := seen[sig]
		name := strings.SplitN(sig, "|", 2)[0]
		// Evidence pairs the first occurrence with each repeat.
		first := ordinals[0]
		evidence := make([]int, 0, 2*(len(ordinals)-1))
		for _, repeat := range ordinals[1:] {
			evidence = append(evidence, first, repeat)
		}
		findings = append(findings, core.Finding{
			Code: core.IssueRepeatedToolCalls,
			Description: fmt.Sprintf("tool %q called %d times with identical arguments",
				name, len(ordinals)),
			Evidence: evidence,
		})
	}
	return findings
}

func (i *Inspector) detectEmptyToolArgs(events []core.TraceEvent) []core.Finding {
	var findings []core.Finding
	for _, ev := range events {
		if ev.Kind != core.EventToolCall {
			continue
		}
		if emptyArgs(ev.Args) {
			findings = append(findings, core.Finding{
				Code: core.IssueEmptyToolArgs,
				Description: fmt.Sprintf("tool %q called with empty or malformed arguments",
					nonEmpty(ev.ToolName, "unknown")),
				Evidence: []int{ev.Ordinal},
			})
		}
	}
	return findings
}

// emptyArgs reports whether the argument mapping is empty or every value is
// an empty string or nil.
func emptyArgs(args map[string]interface{}) bool {
	if len(args) == 0 {
		return true
	}
	for _, v := range args {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(t) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (i *Inspector) detectMissingKeyTerms(trace *core.ConversationTrace) []core.Finding {
	final := trace.FinalAssistantMessage()
	if final == nil {
		return nil
	}
	answer := strings.ToLower(final.Content)

	// Configured expected terms take precedence over the heuristic.
	if len(i.cfg.ExpectedTerms) > 0 {
		for _, term := range i.cfg.ExpectedTerms {
			if term != "" && strings.Contains(answer, strings.ToLower(term)) {
				return nil
			}
		}
		return []core.Finding{{
			Code: core.IssueMissingKeyTerms,
			Description: fmt.Sprintf("final answer contains none of the expected terms: %s",
				strings.Join(i.cfg.ExpectedTerms, ", ")),
			Evidence: []int{final.Ordinal},
		}}
	}

	user := trace.LastUserMessage()
	if user == nil || len(final.Content) <= i.cfg.MinAnswerChars {
		return nil
	}

	userTerms := keyTerms(user.Content)
	answerTerms := toSet(tokenize(answer))

	var missing []string
	for _, term := range userTerms {
		if !answerTerms[term] {
			missing = append(missing, term)
		}
	}
	sort.Strings(missing)

	if len(missing) < i.cfg.MinMissingTerms {
		return nil
	}
	return []core.Finding{{
		Code: core.IssueMissingKeyTerms,
		Description: fmt.Sprintf("final answer is missing key terms from the user request: %s",
			strings.Join(missing, ", ")),
		Evidence: []int{final.Ordinal},
	}}
}

func (i *Inspector) detectOffTopic(trace *core.ConversationTrace) []core.Finding {
	user := trace.FirstUserMessage()
	final := trace.FinalAssistantMessage()
	if user == nil || final == nil {
		return nil
	}

	userTerms := keyTerms(user.Content)
	if len(userTerms) == 0 {
		return nil
	}
	answerTerms := toSet(keyTerms(final.Content))

	shared := 0
	for _, term := range userTerms {
		if answerTerms[term] {
			shared++
		}
	}
	ratio := float64(shared) / float64(len(userTerms))
	if ratio > i.cfg.OffTopicOverlap {
		return nil
	}
	return []core.Finding{{
		Code: core.IssueOffTopic,
		Description: fmt.Sprintf("final answer shares %d of %d significant terms with the initiating request",
			shared, len(userTerms)),
		Evidence: []int{user.Ordinal, final.Ordinal},
	}}
}

var wordRe = regexp.MustCompile(`\w+`)

func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// keyTerms returns the significant tokens of the text: stopwords and tokens
// shorter than three characters are dropped, order preserved, duplicates removed.
func keyTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tok := range tokenize(text) {
		if len(tok) <= 2 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "should": true, "could": true, "may": true,
	"might": true, "can": true, "what": true, "where": true, "when": true,
	"who": true, "why": true, "how": true, "which": true, "this": true,
	"that": true, "these": true, "those": true, "it": true, "its": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "and": true,
	"or": true, "but": true, "if": true, "then": true, "please": true,
	"you": true, "your": true, "me": true, "my": true,
}
