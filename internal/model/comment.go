package model

import (
	"fmt"
	"strings"
)

// Side is the diff side an inline comment is anchored to
type Side string

const (
	SideRight Side = "RIGHT"
	SideLeft  Side = "LEFT"
)

// Severity of an AI review comment
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeverityInfo       Severity = "info"
	SeveritySuggestion Severity = "suggestion"
)

// Severities lists comment severities in reporting order.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo, SeveritySuggestion}

// ParseSeverity maps free-form model output to a known severity, defaulting to info.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "critical", "high", "bug":
		return SeverityError
	case "warning", "warn", "medium":
		return SeverityWarning
	case "suggestion", "refactor", "idea", "nit":
		return SeveritySuggestion
	default:
		return SeverityInfo
	}
}

// ParseSide maps model output to a side, defaulting to right.
func ParseSide(s string) Side {
	if strings.EqualFold(strings.TrimSpace(s), string(SideLeft)) {
		return SideLeft
	}
	return SideRight
}

// LineComment is a candidate review comment produced by the AI for a new-file line.
type LineComment struct {
	Line        int      `json:"line"`
	Side        Side     `json:"side"`
	Severity    Severity `json:"severity"`
	Issue       string   `json:"issue"`
	CodeError   string   `json:"code_error,omitempty"`
	CodeSuggest string   `json:"code_suggest,omitempty"`
	Body        string   `json:"body"`

	// Symbol is the enclosing function or type, filled in after reconciliation.
	Symbol string `json:"symbol,omitempty"`
}

// ReviewResult is the outcome of reviewing a single file.
type ReviewResult struct {
	Summary         string        `json:"summary"`
	LineComments    []LineComment `json:"line_comments"`
	OverallFeedback string        `json:"overall_feedback"`
	Findings        []Finding     `json:"findings,omitempty"`
	FallbackMode    bool          `json:"fallback_mode,omitempty"`

	Cached bool `json:"-"`
}

// HasIssues reports if the result carries anything worth posting.
func (r *ReviewResult) HasIssues() bool {
	return len(r.LineComments) > 0 || (r.FallbackMode && strings.TrimSpace(r.OverallFeedback) != "")
}

// InlineComment is the provider payload for a positioned comment.
type InlineComment struct {
	Path    string
	OldPath string
	Line    int
	Side    Side
	Body    string
	Refs    CommitRefs
}

// GeneralComment is a non-positional merge request comment.
// FilePath and Line are rendered as a prefix when set.
type GeneralComment struct {
	Body     string
	FilePath string
	Line     int
}

// Text renders the comment body with its optional file prefix.
func (c GeneralComment) Text() string {
	switch {
	case c.FilePath == "":
		return c.Body
	case c.Line > 0:
		return fmt.Sprintf("**`%s:%d`**\n\n%s", c.FilePath, c.Line, c.Body)
	default:
		return fmt.Sprintf("**`%s`**\n\n%s", c.FilePath, c.Body)
	}
}
