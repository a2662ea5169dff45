package core

// Finding is a flagged issue with supporting evidence. Both the structural
// inspector and the judge produce findings from the same taxonomy.
type Finding struct {
	Code        IssueCode `json:"code"`
	Description string    `json:"description,omitempty"`
	// Evidence holds the ordinals of the offending events, if any.
	Evidence []int `json:"evidence,omitempty"`
	// Unrecognized marks a judge-returned code outside the taxonomy.
	// The code is preserved so no signal is lost when the taxonomy evolves.
	Unrecognized bool `json:"unrecognized,omitempty"`
}

// NewFinding builds a finding with the canonical description for its code.
func NewFinding(code IssueCode, evidence ...int) Finding {
	return Finding{
		Code:        code,
		Description: code.Describe(),
		Evidence:    evidence,
	}
}

// MergeFindings combines structural and judged findings, de-duplicated by
// issue code. Structural findings come first and are kept verbatim; the
// judge may corroborate or add codes but never removes an inspector finding.
func MergeFindings(structural, judged []Finding) []Finding {
	merged := make([]Finding, 0, len(structural)+len(judged))
	seen := make(map[IssueCode]bool)

	for _, f := range structural {
		if !seen[f.Code] {
			seen[f.Code] = true
			merged = append(merged, f)
		}
	}
	for _, f := range judged {
		if !seen[f.Code] {
			seen[f.Code] = true
			merged = append(merged, f)
		}
	}
	return merged
}

// HasCode reports whether any finding carries the given code.
func HasCode(findings []Finding, code IssueCode) bool {
	for _, f := range findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the issue codes of the findings, in order, without duplicates.
func Codes(findings []Finding) []IssueCode {
	seen := make(map[IssueCode]bool, len(findings))
	codes := make([]IssueCode, 0, len(findings))
	for _, f := range findings {
		if !seen[f.Code] {
			seen[f.Code] = true
			codes = append(codes, f.Code)
		}
	}
	return codes
}
