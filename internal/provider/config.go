package provider

import (
	"slices"

	"github.com/maxbolgarin/errm"
)

type ProviderType string

// SupportedProviderTypes defines the supported VCS provider types
const (
	GitLab ProviderType = "gitlab"
	GitHub ProviderType = "github"
)

var supportedProviderTypes = []ProviderType{GitLab, GitHub}

// Config represents VCS provider configuration
type Config struct {
	Type          ProviderType `yaml:"type" env:"PROVIDER_TYPE"`
	BaseURL       string       `yaml:"base_url" env:"PROVIDER_BASE_URL"`
	Token         string       `yaml:"token" env:"PROVIDER_TOKEN"`
	WebhookSecret string       `yaml:"webhook_secret" env:"PROVIDER_WEBHOOK_SECRET"`
	BotUsername   string       `yaml:"bot_username" env:"PROVIDER_BOT_USERNAME"`
}

func (c *Config) PrepareAndValidate() error {
	if c.Token == "" {
		return errm.New("token is required")
	}

	if c.Type == "" || !slices.Contains(supportedProviderTypes, c.Type) {
		return errm.New("invalid provider type", "type", c.Type)
	}

	return nil
}

// SignatureHeader is the request header carrying the webhook secret or signature
func (c Config) SignatureHeader() string {
	if c.Type == GitHub {
		return "X-Hub-Signature-256"
	}
	return "X-Gitlab-Token"
}
