package model

// FindingSeverity is the severity of a security scanner finding
type FindingSeverity string

const (
	FindingCritical FindingSeverity = "critical"
	FindingHigh     FindingSeverity = "high"
	FindingMedium   FindingSeverity = "medium"
	FindingLow      FindingSeverity = "low"
)

// IsSevere reports if the finding must appear in the security report.
func (s FindingSeverity) IsSevere() bool {
	return s == FindingCritical || s == FindingHigh
}

// Finding is a single security scanner match
type Finding struct {
	RuleID         string          `json:"rule_id"`
	Filename       string          `json:"filename"`
	Line           int             `json:"line"`
	Severity       FindingSeverity `json:"severity"`
	Category       string          `json:"category"`
	Message        string          `json:"message"`
	Recommendation string          `json:"recommendation"`
	Snippet        string          `json:"snippet,omitempty"`
}
