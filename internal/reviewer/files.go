package reviewer

import (
	"context"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"github.com/maxbolgarin/revline/internal/reviewer/diffparser"
	"github.com/maxbolgarin/revline/internal/reviewer/symbols"
)

// reviewFile reviews, reconciles and posts one file. Failures are logged and never stop the run.
func (s *Reviewer) reviewFile(ctx context.Context, run *reviewRun, file *model.FileChange) {
	log := run.log.WithFields("file", file.Filename)
	report := newFileReport(file)
	run.reports = append(run.reports, report)

	content := s.fileContent(ctx, run, file, log)

	// patch keeps the cache usable when content cannot be fetched
	cacheContent := lang.Check(content, file.Patch)

	result, cached := s.cache.Lookup(ctx, run.target.ProjectID, file.Filename, cacheContent)
	if cached {
		log.DebugIf(s.cfg.Verbose, "using cached review")
		report.Cached = true
	} else {
		var ok bool
		result, ok = s.analyzeFile(ctx, run, file, content, log)
		if !ok {
			report.AIFailed = true
		} else if err := s.cache.Store(ctx, run.target.ProjectID, file.Filename, cacheContent, result); err != nil {
			log.Err(err, "failed to cache review")
		}
	}
	report.Findings = result.Findings

	if result.FallbackMode {
		s.postFallback(ctx, run, report, file, result.OverallFeedback, log)
		return
	}

	diff := diffparser.Parse(file.Patch)
	accepted, rejected := Reconcile(result.LineComments, diff)
	report.Rejected = len(rejected)
	logRejections(log, file.Filename, rejected, diff)

	if len(accepted) == 0 {
		return
	}
	annotateSymbols(ctx, file.Filename, content, accepted, log)

	for _, c := range accepted {
		c.Body = formatLineComment(s.headers, file.Filename, c)

		posted, err := s.poster.PostLineComment(ctx, run.target, file, c)
		if err != nil {
			report.Failed++
			run.failed++
			log.Err(err, "failed to post comment", "line", c.Line)
			continue
		}

		report.Accepted++
		report.Counts[c.Severity]++
		report.Posted++
		run.posted++
		s.saveComment(ctx, run, posted)
	}

	log.InfoIf(s.cfg.Verbose, "file reviewed",
		"accepted", len(accepted), "rejected", len(rejected), "posted", report.Posted, "cached", report.Cached)
}

// fileContent returns the new-side content, empty when it cannot be fetched
func (s *Reviewer) fileContent(ctx context.Context, run *reviewRun, file *model.FileChange, log logze.Logger) string {
	if file.Content != "" {
		return file.Content
	}
	ref := lang.Check(file.ContentRef, run.mr.SHA)
	content, err := s.provider.GetFileContent(ctx, run.target.ProjectID, file.Filename, ref)
	if err != nil {
		log.Warn("cannot fetch file content, using patch", "ref", lang.TruncateString(ref, 8), "error", err)
		return ""
	}
	return content
}

// analyzeFile runs the scanner and the AI. The bool is false when the AI call failed,
// such a result carries findings only and must not be cached.
func (s *Reviewer) analyzeFile(ctx context.Context, run *reviewRun, file *model.FileChange, content string, log logze.Logger) (*model.ReviewResult, bool) {
	result := &model.ReviewResult{}
	if content != "" {
		result.Findings = s.scanner.Scan(file.Filename, content)
	} else {
		result.Findings = scanPatch(s.scanner, file.Filename, file.Patch)
	}
	if len(result.Findings) > 0 {
		log.Warn("security findings", "count", len(result.Findings))
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
	defer cancel()

	req := model.FileReviewRequest{
		Filename:    file.Filename,
		Content:     s.redact(content),
		Title:       run.mr.Title,
		Description: s.redact(run.mr.Description),
	}

	if file.Patch == "" {
		if content == "" {
			log.Warn("no patch and no content, nothing to review")
			return result, false
		}
		text, err := s.agent.ReviewFileContent(aiCtx, req)
		if err != nil {
			log.Err(err, "AI content review failed")
			return result, false
		}
		result.FallbackMode = true
		result.OverallFeedback = text
		return result, true
	}

	diff := diffparser.Parse(file.Patch)
	req.NumberedDiff = s.redact(diff.Numbered())
	req.Symbols = symbolNames(ctx, file.Filename, content, diff.AddedLines())

	ai, err := s.agent.ReviewFile(aiCtx, req)
	if err != nil {
		log.Err(err, "AI review failed")
		return result, false
	}

	ai.Findings = result.Findings
	return ai, true
}

func (s *Reviewer) postFallback(ctx context.Context, run *reviewRun, report *fileReport, file *model.FileChange, text string, log logze.Logger) {
	report.Fallback = true
	if text == "" {
		return
	}
	posted, err := s.poster.PostGeneral(ctx, run.target, model.CommentKindGeneral, model.GeneralComment{
		Body:     formatFallbackReview(s.headers, text),
		FilePath: file.Filename,
	})
	if err != nil {
		report.Failed++
		run.failed++
		log.Err(err, "failed to post file review")
		return
	}
	report.Posted++
	run.posted++
	s.saveComment(ctx, run, posted)
}

func (s *Reviewer) redact(text string) string {
	if !s.cfg.RedactSecrets || text == "" {
		return text
	}
	return s.scanner.Redact(text)
}

// annotateSymbols sets the enclosing declaration of every comment when the language is known
func annotateSymbols(ctx context.Context, filename, content string, comments []model.LineComment, log logze.Logger) {
	if content == "" {
		return
	}
	ix, err := symbols.Parse(ctx, filename, content)
	if err != nil {
		if !errm.Is(err, symbols.ErrUnsupportedLanguage) {
			log.Debug("cannot parse symbols", "error", err)
		}
		return
	}
	for i := range comments {
		if sym, ok := ix.Enclosing(comments[i].Line); ok {
			comments[i].Symbol = sym.String()
		}
	}
}

func symbolNames(ctx context.Context, filename, content string, lines []int) []string {
	if content == "" || len(lines) == 0 {
		return nil
	}
	ix, err := symbols.Parse(ctx, filename, content)
	if err != nil {
		return nil
	}
	var out []string
	for _, sym := range ix.ForLines(lines) {
		out = append(out, sym.String())
	}
	return out
}

// scanPatch scans only the added lines of a patch, findings are mapped back
// to new-file line numbers.
func scanPatch(scanner interfaces.SecurityScanner, filename, patch string) []model.Finding {
	diff := diffparser.Parse(patch)
	added := diff.AddedLines()
	if len(added) == 0 {
		return nil
	}
	lines := make([]string, len(added))
	for i, n := range added {
		lines[i], _ = diff.LineContent(n)
	}

	findings := scanner.Scan(filename, strings.Join(lines, "\n"))
	for i := range findings {
		if idx := findings[i].Line - 1; idx >= 0 && idx < len(added) {
			findings[i].Line = added[idx]
		}
	}
	return findings
}
