// Package security finds hard-coded secrets and a few insecure code patterns
// with line-based regex rules. It runs independently of the AI review.
package security

import (
	"regexp"
	"strings"

	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
)

const (
	placeholder     = "[REDACTED]"
	maxSnippetRunes = 120
)

var _ interfaces.SecurityScanner = (*Scanner)(nil)

// Rule is a single line pattern
type Rule struct {
	ID             string
	Pattern        *regexp.Regexp
	Severity       model.FindingSeverity
	Category       string
	Message        string
	Recommendation string
	// Secret marks rules whose matches must never be echoed back.
	Secret bool
}

// Scanner applies rules to every line of a file
type Scanner struct {
	rules []Rule
}

// NewScanner returns a scanner with DefaultRules followed by extra rules.
func NewScanner(extra ...Rule) *Scanner {
	return &Scanner{rules: append(DefaultRules(), extra...)}
}

// Scan reports at most one finding per rule per line, in line order.
func (s *Scanner) Scan(filename, content string) []model.Finding {
	var out []model.Finding

	for i, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		for _, rule := range s.rules {
			if !rule.Pattern.MatchString(line) {
				continue
			}
			snippet := strings.TrimSpace(line)
			if rule.Secret {
				snippet = rule.Pattern.ReplaceAllString(snippet, placeholder)
			}
			out = append(out, model.Finding{
				RuleID:         rule.ID,
				Filename:       filename,
				Line:           i + 1,
				Severity:       rule.Severity,
				Category:       rule.Category,
				Message:        rule.Message,
				Recommendation: rule.Recommendation,
				Snippet:        lang.TruncateString(snippet, maxSnippetRunes),
			})
		}
	}

	return out
}

// Redact replaces every secret match with a placeholder. Line structure is kept.
func (s *Scanner) Redact(text string) string {
	for _, rule := range s.rules {
		if rule.Secret {
			text = rule.Pattern.ReplaceAllString(text, placeholder)
		}
	}
	return text
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID: "private-key", Severity: model.FindingCritical, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+|DSA\s+)?PRIVATE KEY-----`),
			Message:        "Private key committed to the repository",
			Recommendation: "Remove the key, rotate it and load it from a secret store",
		},
		{
			ID: "aws-access-key", Severity: model.FindingCritical, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
			Message:        "AWS access key id",
			Recommendation: "Revoke the key in IAM and use role based credentials",
		},
		{
			ID: "aws-secret-key", Severity: model.FindingCritical, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}["']?`),
			Message:        "AWS secret access key",
			Recommendation: "Revoke the key in IAM and use role based credentials",
		},
		{
			ID: "github-token", Severity: model.FindingCritical, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
			Message:        "GitHub token",
			Recommendation: "Revoke the token and inject it through CI secrets",
		},
		{
			ID: "slack-token", Severity: model.FindingHigh, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
			Message:        "Slack token",
			Recommendation: "Revoke the token and inject it through environment",
		},
		{
			ID: "anthropic-key", Severity: model.FindingCritical, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
			Message:        "Anthropic API key",
			Recommendation: "Revoke the key and inject it through environment",
		},
		{
			ID: "openai-key", Severity: model.FindingCritical, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}`),
			Message:        "OpenAI API key",
			Recommendation: "Revoke the key and inject it through environment",
		},
		{
			ID: "jwt", Severity: model.FindingHigh, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
			Message:        "JSON Web Token",
			Recommendation: "Do not commit tokens, generate them at runtime",
		},
		{
			ID: "bearer-token", Severity: model.FindingHigh, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
			Message:        "Hard-coded bearer token",
			Recommendation: "Load the token from configuration",
		},
		{
			ID: "generic-api-key", Severity: model.FindingHigh, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?[A-Za-z0-9/+=_-]{20,}["']?`),
			Message:        "Hard-coded API key",
			Recommendation: "Load the key from environment or a secret store",
		},
		{
			ID: "hardcoded-password", Severity: model.FindingHigh, Category: "secret", Secret: true,
			Pattern:        regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["'][^"']{8,}["']`),
			Message:        "Hard-coded credential",
			Recommendation: "Load credentials from environment or a secret store",
		},
		{
			ID: "tls-insecure-skip-verify", Severity: model.FindingHigh, Category: "transport",
			Pattern:        regexp.MustCompile(`InsecureSkipVerify\s*:\s*true|verify\s*=\s*False|rejectUnauthorized\s*:\s*false`),
			Message:        "TLS certificate verification disabled",
			Recommendation: "Keep verification on and trust the proper CA instead",
		},
		{
			ID: "sql-concat", Severity: model.FindingMedium, Category: "injection",
			Pattern:        regexp.MustCompile(`(?i)\b(select|insert|update|delete)\b[^"'\x60]*\bfrom\b.*["'\x60]\s*\+\s*\w+|(Exec|Query|QueryRow)(Context)?\(\s*(ctx,\s*)?fmt\.Sprintf\(`),
			Message:        "SQL built from string concatenation",
			Recommendation: "Use parameterized queries",
		},
		{
			ID: "weak-hash", Severity: model.FindingLow, Category: "crypto",
			Pattern:        regexp.MustCompile(`\b(md5|sha1)\.(New|Sum)\b|hashlib\.(md5|sha1)\(`),
			Message:        "Weak hash function",
			Recommendation: "Use sha256 or a password hashing function where security matters",
		},
		{
			ID: "eval", Severity: model.FindingMedium, Category: "injection",
			Pattern:        regexp.MustCompile(`\beval\s*\(`),
			Message:        "Dynamic code evaluation",
			Recommendation: "Avoid eval on data that can be influenced by users",
		},
	}
}
