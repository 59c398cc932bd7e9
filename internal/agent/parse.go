package agent

import (
	"strings"

	"github.com/maxbolgarin/revline/internal/model"
	"github.com/tidwall/gjson"
)

// PlaceholderSummary is used when the model output carries no usable JSON.
const PlaceholderSummary = "The AI response could not be parsed, no comments were produced for this file."

// parseReviewResult reads a review from model output. Every field is optional.
// Unparseable output yields an empty result with a placeholder summary.
func parseReviewResult(response string) (*model.ReviewResult, bool) {
	raw, ok := extractJSON(response)
	if !ok {
		return &model.ReviewResult{Summary: PlaceholderSummary}, false
	}
	root := gjson.Parse(raw)

	result := &model.ReviewResult{
		Summary:         strings.TrimSpace(firstOf(root, "summary", "overview").String()),
		OverallFeedback: strings.TrimSpace(firstOf(root, "overall_feedback", "feedback").String()),
	}

	firstOf(root, "comments", "line_comments", "issues").ForEach(func(_, c gjson.Result) bool {
		if !c.IsObject() {
			return true
		}
		issue := strings.TrimSpace(firstOf(c, "issue", "message", "description", "comment", "body", "title").String())
		if issue == "" {
			return true
		}
		result.LineComments = append(result.LineComments, model.LineComment{
			Line:        int(firstOf(c, "line", "line_number", "start_line").Int()),
			Side:        model.ParseSide(c.Get("side").String()),
			Severity:    model.ParseSeverity(firstOf(c, "severity", "priority", "issue_type").String()),
			Issue:       issue,
			CodeError:   strings.TrimSpace(firstOf(c, "code_error", "problem_code").String()),
			CodeSuggest: strings.TrimSpace(firstOf(c, "code_suggestion", "code_suggest", "code_snippet", "suggestion").String()),
		})
		return true
	})

	return result, true
}

func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// extractJSON strips markdown fences and surrounding prose around the outermost object.
func extractJSON(response string) (string, bool) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return "", false
	}

	raw := response[start : end+1]
	if !gjson.Valid(raw) {
		return "", false
	}
	return raw, true
}
