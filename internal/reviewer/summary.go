package reviewer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maxbolgarin/revline/internal/agent/prompts"
	"github.com/maxbolgarin/revline/internal/model"
)

// fileReport is the per-file outcome collected during a review run
type fileReport struct {
	Filename string
	Category FileCategory
	Counts   map[model.Severity]int
	Accepted int
	Rejected int
	Posted   int
	Failed   int
	Cached   bool
	Fallback bool
	AIFailed bool
	Findings []model.Finding
}

func newFileReport(file *model.FileChange) *fileReport {
	return &fileReport{
		Filename: file.Filename,
		Category: Categorize(file.Filename),
		Counts:   make(map[model.Severity]int, len(model.Severities)),
	}
}

func (r *fileReport) hasIssues() bool {
	return r.Accepted > 0 || r.Fallback
}

// severityCounts sums accepted comments of all files by severity
func severityCounts(reports []*fileReport) map[model.Severity]int {
	out := make(map[model.Severity]int, len(model.Severities))
	for _, r := range reports {
		for s, n := range r.Counts {
			out[s] += n
		}
	}
	return out
}

func severeFindings(reports []*fileReport) []model.Finding {
	var out []model.Finding
	for _, r := range reports {
		for _, f := range r.Findings {
			if f.Severity.IsSevere() {
				out = append(out, f)
			}
		}
	}
	return out
}

// buildSummary renders the review summary comment
func buildSummary(h prompts.Headers, reports []*fileReport) string {
	var (
		b        strings.Builder
		cached   int
		rejected int
		failed   int
		clean    []string
		issues   int
	)
	counts := severityCounts(reports)
	for _, s := range model.Severities {
		issues += counts[s]
	}
	for _, r := range reports {
		rejected += r.Rejected
		if r.Cached {
			cached++
		}
		if r.AIFailed {
			failed++
		}
		if !r.hasIssues() && !r.AIFailed {
			clean = append(clean, r.Filename)
		}
	}

	b.WriteString(startMarkerSummary)
	b.WriteString("\n## ")
	b.WriteString(h.SummaryTitle)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Reviewed **%d** files", len(reports))
	if cached > 0 {
		fmt.Fprintf(&b, " (%d unchanged, reused from cache)", cached)
	}
	fmt.Fprintf(&b, ", found **%d** issues.\n\n", issues)

	headers := make([]string, 0, len(model.Severities))
	values := make([]string, 0, len(model.Severities))
	for _, s := range model.Severities {
		headers = append(headers, h.Severity(s))
		values = append(values, strconv.Itoa(counts[s]))
	}
	writeRow(&b, headers...)
	b.WriteString(strings.Repeat("|---", len(headers)) + "|\n")
	writeRow(&b, values...)

	var withIssues []*fileReport
	for _, r := range reports {
		if r.hasIssues() {
			withIssues = append(withIssues, r)
		}
	}
	if len(withIssues) > 0 {
		b.WriteString("\n### ")
		b.WriteString(h.FilesHeader)
		b.WriteString("\n\n")
		writeRow(&b, "File", "Issues", "Notes")
		b.WriteString("|---|---|---|\n")
		for _, r := range withIssues {
			writeRow(&b, "`"+r.Filename+"`", strconv.Itoa(r.Accepted), fileNotes(r))
		}
	}

	if len(clean) > 0 {
		b.WriteString("\n### ")
		b.WriteString(h.NoIssuesHeader)
		b.WriteString("\n\n")
		for _, f := range clean {
			b.WriteString("- `")
			b.WriteString(f)
			b.WriteString("`\n")
		}
	}

	if rejected > 0 {
		fmt.Fprintf(&b, "\n_%d comments pointed outside the changed lines and were dropped._\n", rejected)
	}
	if failed > 0 {
		fmt.Fprintf(&b, "\n_AI review failed for %d files, they will be retried on the next push._\n", failed)
	}

	b.WriteString("\n")
	b.WriteString(endMarkerSummary)
	return b.String()
}

// buildSecurityReport renders critical and high findings, empty when there are none
func buildSecurityReport(h prompts.Headers, findings []model.Finding) string {
	if len(findings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(startMarkerSecurity)
	b.WriteString("\n## ")
	b.WriteString(h.SecurityTitle)
	b.WriteString("\n\n")
	writeRow(&b, "Severity", "File", "Line", "Category", "Finding", "Recommendation")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, f := range findings {
		writeRow(&b,
			strings.ToUpper(string(f.Severity)),
			"`"+f.Filename+"`",
			strconv.Itoa(f.Line),
			f.Category,
			f.Message,
			f.Recommendation,
		)
	}
	b.WriteString("\n")
	b.WriteString(endMarkerSecurity)
	return b.String()
}

func fileNotes(r *fileReport) string {
	var notes []string
	for _, s := range model.Severities {
		if n := r.Counts[s]; n > 0 {
			notes = append(notes, fmt.Sprintf("%d %s", n, s))
		}
	}
	if r.Fallback {
		notes = append(notes, "full file review")
	}
	if r.Cached {
		notes = append(notes, "cached")
	}
	if r.Failed > 0 {
		notes = append(notes, fmt.Sprintf("%d not posted", r.Failed))
	}
	return strings.Join(notes, ", ")
}

func writeRow(b *strings.Builder, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", "\\|"))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
