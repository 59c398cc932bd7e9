package model

import (
	"time"
)

type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageRussian    Language = "ru"
	LanguageSpanish    Language = "es"
	LanguageFrench     Language = "fr"
	LanguageItalian    Language = "it"
	LanguageGerman     Language = "de"
	LanguagePortuguese Language = "pt"
	LanguageJapanese   Language = "ja"
	LanguageKorean     Language = "ko"
	LanguageChinese    Language = "zh"
)

// ModelConfig represents model-specific configuration
type ModelConfig struct {
	APIKey   string
	Model    string
	URL      string
	ProxyURL string
	Timeout  time.Duration
	IsTest   bool
}

// APIRequest represents a request to an LLM API
type APIRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	URL          string
	ResponseType string
}

const ResponseTypeJSON = "application/json"

// IsJSON reports whether the caller expects a single JSON object back.
func (r APIRequest) IsJSON() bool {
	return r.ResponseType == ResponseTypeJSON
}

// APIResponse represents a response from an LLM API
type APIResponse struct {
	CreateTime       time.Time
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Truncated is set when the model stopped on the output token limit.
	Truncated bool
}

// Prompt represents a structured prompt for LLM
type Prompt struct {
	SystemPrompt string
	UserPrompt   string
	Language     Language
}

// FileReviewRequest is the input for a single-file AI review
type FileReviewRequest struct {
	Filename string
	// NumberedDiff is the diff rendered with explicit new-file line numbers.
	NumberedDiff string
	// Content is the full new-side file, used for context or for fallback mode.
	Content string
	// Symbols are the enclosing declarations touched by the diff.
	Symbols []string
	Title   string
	// Description is the merge request description.
	Description string
}
