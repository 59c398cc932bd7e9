package prompts

import (
	"fmt"
	"strings"

	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/model"
)

const maxDescriptionRunes = 2000

// Builder renders prompts in the configured language
type Builder struct {
	language LanguageConfig
	rules    string
}

// NewBuilder creates a prompt builder. Rules is an optional JSON object with project review rules.
func NewBuilder(language model.Language, rules string) *Builder {
	return &Builder{
		language: Language(language),
		rules:    rules,
	}
}

// Headers returns the comment headers of the configured language.
func (tb *Builder) Headers() Headers {
	return tb.language.Headers
}

// BuildReviewPrompt creates a prompt for structured review of a numbered diff
func (tb *Builder) BuildReviewPrompt(req model.FileReviewRequest) model.Prompt {
	var description string
	if req.Description != "" {
		description = "Pull request description:\n" + lang.TruncateString(req.Description, maxDescriptionRunes) + "\n"
	}

	var symbols string
	if len(req.Symbols) > 0 {
		symbols = "Changed declarations: " + strings.Join(req.Symbols, ", ") + "\n"
	}

	var rules string
	if tb.rules != "" {
		rules = "PROJECT REVIEW RULES (JSON, follow them strictly):\n" + tb.rules + "\n"
	}

	return model.Prompt{
		SystemPrompt: fmt.Sprintf(reviewSystemPromptTemplate, tb.language.Instructions),
		UserPrompt: fmt.Sprintf(structuredReviewUserPromptTemplate,
			req.Title,
			description,
			req.Filename,
			symbols,
			rules,
			req.Content,
			req.NumberedDiff,
		),
		Language: tb.language.Language,
	}
}

// BuildContentReviewPrompt creates a prompt for freeform review of a whole file
func (tb *Builder) BuildContentReviewPrompt(req model.FileReviewRequest) model.Prompt {
	var rules string
	if tb.rules != "" {
		rules = "PROJECT REVIEW RULES (JSON):\n" + tb.rules + "\n"
	}

	return model.Prompt{
		SystemPrompt: fmt.Sprintf(reviewSystemPromptTemplate, tb.language.Instructions),
		UserPrompt:   fmt.Sprintf(contentReviewUserPromptTemplate, req.Title, req.Filename, rules, req.Content),
		Language:     tb.language.Language,
	}
}

// BuildReplyPrompt creates a prompt for answering a reply to a review comment
func (tb *Builder) BuildReplyPrompt(originalComment, reply string) model.Prompt {
	return model.Prompt{
		SystemPrompt: fmt.Sprintf(replySystemPromptTemplate, tb.language.Instructions),
		UserPrompt:   fmt.Sprintf(replyUserPromptTemplate, originalComment, reply),
		Language:     tb.language.Language,
	}
}
