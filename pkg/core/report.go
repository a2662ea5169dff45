package core

// Judgment is the validated output of the judge step: the five dimension
// scores, the issues it observed, and a free-text rationale.
//
// The rationale is informational only and is never parsed for control
// decisions; downstream logic keys exclusively on codes and scores.
type Judgment struct {
	Scores    DimensionScores `json:"scores"`
	Findings  []Finding       `json:"findings"`
	Rationale string          `json:"rationale"`
}

// PromptRevision records one rewrite of the system prompt. Created once per
// evaluation and immutable afterwards. An unchanged prompt carries an empty
// change list.
type PromptRevision struct {
	Previous string   `json:"previous"`
	Revised  string   `json:"revised"`
	Changes  []string `json:"changes"`
}

// Changed reports whether the revision altered the prompt.
func (r PromptRevision) Changed() bool {
	return r.Revised != r.Previous
}

// MemoryRecord is one append-only entry of the cross-run memory: the issue
// codes observed in an evaluation and the corrective snippets distilled from
// the rewritten prompt. Sequence is assigned by the store on append.
type MemoryRecord struct {
	IssueCodes []IssueCode `json:"issue_codes"`
	Snippets   []string    `json:"snippets"`
	SessionID  string      `json:"session_id,omitempty"`
	Sequence   int64       `json:"sequence"`
}

// QaReport is the aggregate result of one evaluation. Fully immutable after
// the orchestrator returns it; corrections require a new evaluation.
type QaReport struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	// Findings merges structural and judged findings, de-duplicated by
	// issue code, plus any systemic findings raised by the pipeline.
	Findings []Finding `json:"findings"`

	// Judgment is the judge's own validated output, untouched after the
	// judging step; pipeline findings live only in Findings.
	Judgment Judgment `json:"judgment"`

	// Overall is kept at full precision for aggregation; round with
	// Round2 when reporting.
	Overall float64 `json:"overall"`

	Revision PromptRevision `json:"revision"`

	// Memory is the record written back to the store, nil when the
	// append failed. MemoryWriteError carries the failure detail; a
	// memory_write_failed finding is attached in that case.
	Memory           *MemoryRecord `json:"memory,omitempty"`
	MemoryWriteError string        `json:"memory_write_error,omitempty"`
}
