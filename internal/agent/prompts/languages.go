package prompts

import (
	"github.com/maxbolgarin/revline/internal/model"
)

// LanguageConfig defines the target language for AI responses and the headers of posted comments
type LanguageConfig struct {
	Language     model.Language `yaml:"language"`     // Language code (en, es, fr, de, ru, etc.)
	Instructions string         `yaml:"instructions"` // Language-specific instructions for the AI

	Headers Headers `yaml:"headers"`
}

// Headers are the fixed strings of summary, report and comment bodies
type Headers struct {
	SummaryTitle     string `yaml:"summary_title"`
	FilesHeader      string `yaml:"files_header"`
	NoIssuesHeader   string `yaml:"no_issues_header"`
	SecurityTitle    string `yaml:"security_title"`
	SuggestionHeader string `yaml:"suggestion_header"`
	ProblemHeader    string `yaml:"problem_header"`
	FallbackTitle    string `yaml:"fallback_title"`

	SeverityError      string `yaml:"severity_error"`
	SeverityWarning    string `yaml:"severity_warning"`
	SeverityInfo       string `yaml:"severity_info"`
	SeveritySuggestion string `yaml:"severity_suggestion"`
}

// Severity returns a decorated header for the severity.
func (h Headers) Severity(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return h.SeverityError
	case model.SeverityWarning:
		return h.SeverityWarning
	case model.SeveritySuggestion:
		return h.SeveritySuggestion
	}
	return h.SeverityInfo
}

var englishHeaders = Headers{
	SummaryTitle:     "🤖 Review Summary",
	FilesHeader:      "📝 Reviewed files",
	NoIssuesHeader:   "✅ Files without issues",
	SecurityTitle:    "🔒 Security report",
	SuggestionHeader: "💡 Suggestion",
	ProblemHeader:    "Problematic code",
	FallbackTitle:    "📄 File review",

	SeverityError:      "🔴 Error",
	SeverityWarning:    "🟡 Warning",
	SeverityInfo:       "🔵 Info",
	SeveritySuggestion: "⚪️ Suggestion",
}

// DefaultLanguages provides common language configurations
var DefaultLanguages = map[model.Language]LanguageConfig{
	model.LanguageEnglish: {
		Language:     model.LanguageEnglish,
		Instructions: "Respond in clear, professional English. Use technical terminology appropriately.",
		Headers:      englishHeaders,
	},
	model.LanguageSpanish: {
		Language:     model.LanguageSpanish,
		Instructions: "Responde en español claro y profesional. Usa terminología técnica apropiada.",
	},
	model.LanguageFrench: {
		Language:     model.LanguageFrench,
		Instructions: "Répondez en français clair et professionnel. Utilisez une terminologie technique appropriée.",
	},
	model.LanguageGerman: {
		Language:     model.LanguageGerman,
		Instructions: "Antworten Sie in klarem, professionellem Deutsch. Verwenden Sie angemessene technische Terminologie.",
	},
	model.LanguageRussian: {
		Language:     model.LanguageRussian,
		Instructions: "Отвечайте на русском языке четко и профессионально. Используйте соответствующую техническую терминологию.",
		Headers: Headers{
			SummaryTitle:     "🤖 Итоги ревью",
			FilesHeader:      "📝 Проверенные файлы",
			NoIssuesHeader:   "✅ Файлы без замечаний",
			SecurityTitle:    "🔒 Отчет по безопасности",
			SuggestionHeader: "💡 Предложение",
			ProblemHeader:    "Проблемный код",
			FallbackTitle:    "📄 Ревью файла",

			SeverityError:      "🔴 Ошибка",
			SeverityWarning:    "🟡 Предупреждение",
			SeverityInfo:       "🔵 Информация",
			SeveritySuggestion: "⚪️ Предложение",
		},
	},
	model.LanguagePortuguese: {
		Language:     model.LanguagePortuguese,
		Instructions: "Responda em português claro e profissional. Use terminologia técnica apropriada.",
	},
	model.LanguageItalian: {
		Language:     model.LanguageItalian,
		Instructions: "Rispondi in italiano chiaro e professionale. Usa una terminologia tecnica appropriata.",
	},
	model.LanguageJapanese: {
		Language:     model.LanguageJapanese,
		Instructions: "明確で専門的な日本語で回答してください。適切な技術用語を使用してください。",
	},
	model.LanguageKorean: {
		Language:     model.LanguageKorean,
		Instructions: "명확하고 전문적인 한국어로 답변해 주세요. 적절한 기술 용어를 사용해 주세요.",
	},
	model.LanguageChinese: {
		Language:     model.LanguageChinese,
		Instructions: "请用清晰、专业的中文回答。适当使用技术术语。",
	},
}

// Language returns the config for the code, English for unknown codes.
// Languages without translated headers use the English ones.
func Language(code model.Language) LanguageConfig {
	cfg, ok := DefaultLanguages[code]
	if !ok {
		return DefaultLanguages[model.LanguageEnglish]
	}
	if cfg.Headers.SummaryTitle == "" {
		cfg.Headers = englishHeaders
	}
	return cfg
}
