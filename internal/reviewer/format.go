package reviewer

import (
	"strings"

	"github.com/maxbolgarin/revline/internal/agent/prompts"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/reviewer/symbols"
)

// formatLineComment renders the markdown body of an inline comment
func formatLineComment(h prompts.Headers, filename string, c model.LineComment) string {
	var b strings.Builder

	b.WriteString("**")
	b.WriteString(h.Severity(c.Severity))
	b.WriteString("**")
	if c.Symbol != "" {
		b.WriteString(" · `")
		b.WriteString(c.Symbol)
		b.WriteString("`")
	}
	b.WriteString("\n\n")
	b.WriteString(c.Issue)

	if c.CodeError != "" {
		b.WriteString("\n\n**")
		b.WriteString(h.ProblemHeader)
		b.WriteString("**\n")
		writeCode(&b, filename, c.CodeError)
	}
	if c.CodeSuggest != "" {
		b.WriteString("\n\n### ")
		b.WriteString(h.SuggestionHeader)
		b.WriteString("\n\n")
		writeCode(&b, filename, c.CodeSuggest)
	}

	return b.String()
}

// formatFallbackReview renders a freeform whole-file review
func formatFallbackReview(h prompts.Headers, text string) string {
	return "### " + h.FallbackTitle + "\n\n" + text
}

func writeCode(b *strings.Builder, filename, code string) {
	if strings.HasPrefix(code, "```") {
		b.WriteString(code)
		return
	}
	lang, _ := symbols.Detect(filename)
	b.WriteString("```")
	b.WriteString(string(lang))
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(code, "\n"))
	b.WriteString("\n```")
}
