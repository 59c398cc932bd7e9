package agent

import (
	"slices"
	"strings"
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/tidwall/gjson"
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 8000
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = 2 * time.Second
	defaultUserAgent   = "revline/0.1.0 (https://github.com/maxbolgarin/revline)"
)

// AgentType represents the type of AI agent
type AgentType string

// SupportedAgentTypes defines the supported AI agent types
const (
	Gemini AgentType = "gemini"
	OpenAI AgentType = "openai"
	Claude AgentType = "claude"
)

var supportedAgentTypes = []AgentType{Gemini, OpenAI, Claude}

// Config represents AI agent configuration
type Config struct {
	Type        AgentType `yaml:"type" env:"AGENT_TYPE"` // gemini, openai, claude
	APIKey      string    `yaml:"api_key" env:"AGENT_API_KEY"`
	Model       string    `yaml:"model" env:"AGENT_MODEL"`
	Temperature float32   `yaml:"temperature" env:"AGENT_TEMPERATURE"`
	MaxTokens   int       `yaml:"max_tokens" env:"AGENT_MAX_TOKENS"`

	BaseURL    string        `yaml:"base_url" env:"AGENT_BASE_URL"` // Azure OpenAI, local models, etc.
	ProxyURL   string        `yaml:"proxy_url" env:"AGENT_PROXY_URL"`
	MaxRetries int           `yaml:"max_retries" env:"AGENT_MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"AGENT_RETRY_DELAY"`
	Timeout    time.Duration `yaml:"timeout" env:"AGENT_TIMEOUT"`
	UserAgent  string        `yaml:"user_agent" env:"AGENT_USER_AGENT"`
	IsTest     bool          `yaml:"is_test" env:"AGENT_IS_TEST"`

	Language model.Language `yaml:"language" env:"AGENT_LANGUAGE"`

	// Rules is an opaque JSON object with project review rules, passed to the model as is.
	Rules string `yaml:"rules" env:"AGENT_RULES"`
}

func (c *Config) PrepareAndValidate() error {
	if c.APIKey == "" {
		return erro.New("api key is required")
	}
	if c.Type == "" || !slices.Contains(supportedAgentTypes, c.Type) {
		return erro.New("invalid agent type: %s", c.Type)
	}
	return c.prepare()
}

func (c *Config) prepare() error {
	c.Temperature = lang.Check(c.Temperature, defaultTemperature)
	c.MaxTokens = lang.Check(c.MaxTokens, defaultMaxTokens)
	c.Timeout = lang.Check(c.Timeout, defaultTimeout)
	c.MaxRetries = lang.Check(c.MaxRetries, defaultMaxRetries)
	c.RetryDelay = lang.Check(c.RetryDelay, defaultRetryDelay)
	c.UserAgent = lang.Check(c.UserAgent, defaultUserAgent)
	c.Language = lang.Check(c.Language, model.LanguageEnglish)

	c.Rules = strings.TrimSpace(c.Rules)
	if c.Rules != "" && (!gjson.Valid(c.Rules) || !gjson.Parse(c.Rules).IsObject()) {
		return erro.New("rules must be a JSON object")
	}

	return nil
}
