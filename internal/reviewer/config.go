package reviewer

import (
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/model"
)

const (
	startMarkerSummary  = "<!-- revline: summary-start -->"
	endMarkerSummary    = "<!-- revline: summary-end -->"
	startMarkerSecurity = "<!-- revline: security-start -->"
	endMarkerSecurity   = "<!-- revline: security-end -->"

	defaultPoolSize  = 10
	defaultAITimeout = 3 * time.Minute
	defaultPostRate  = 2.0
	defaultPostBurst = 5
	defaultMaxFiles  = 50
	defaultFileSize  = 100_000
)

type Config struct {
	Filter FilterOptions `yaml:"filter"`

	PoolSize  int           `yaml:"pool_size" env:"REVIEW_POOL_SIZE"`
	AITimeout time.Duration `yaml:"ai_timeout" env:"REVIEW_AI_TIMEOUT"`

	// PostRate is the number of comments per second sent to the provider.
	PostRate  float64 `yaml:"post_rate" env:"REVIEW_POST_RATE"`
	PostBurst int     `yaml:"post_burst" env:"REVIEW_POST_BURST"`

	BotUsername   string         `yaml:"bot_username" env:"REVIEW_BOT_USERNAME"`
	RedactSecrets bool           `yaml:"redact_secrets" env:"REVIEW_REDACT_SECRETS" env-default:"true"`
	Language      model.Language `yaml:"language" env:"REVIEW_LANGUAGE"`
	Verbose       bool           `yaml:"verbose" env:"REVIEW_VERBOSE"`
}

func (c *Config) PrepareAndValidate() error {
	if c.PoolSize < 0 {
		return erro.New("pool size must not be negative: %d", c.PoolSize)
	}
	if c.PostRate < 0 {
		return erro.New("post rate must not be negative: %f", c.PostRate)
	}

	c.PoolSize = lang.Check(c.PoolSize, defaultPoolSize)
	c.AITimeout = lang.Check(c.AITimeout, defaultAITimeout)
	c.PostRate = lang.Check(c.PostRate, defaultPostRate)
	c.PostBurst = lang.Check(c.PostBurst, defaultPostBurst)
	c.Language = lang.Check(c.Language, model.LanguageEnglish)

	c.Filter.MaxFiles = lang.Check(c.Filter.MaxFiles, defaultMaxFiles)
	c.Filter.MaxFileSize = lang.Check(c.Filter.MaxFileSize, defaultFileSize)

	return nil
}
