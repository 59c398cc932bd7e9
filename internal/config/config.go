// Package config loads the service configuration from a YAML file and the environment.
package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/agent"
	"github.com/maxbolgarin/revline/internal/cache"
	"github.com/maxbolgarin/revline/internal/notify"
	"github.com/maxbolgarin/revline/internal/provider"
	"github.com/maxbolgarin/revline/internal/reviewer"
	"github.com/maxbolgarin/revline/internal/server"
	"github.com/maxbolgarin/revline/internal/store/sqlite"
)

const defaultShutdownTimeout = 30 * time.Second

// Config represents the main application configuration
type Config struct {
	Provider provider.Config `yaml:"provider"`
	Agent    agent.Config    `yaml:"agent"`
	Reviewer reviewer.Config `yaml:"reviewer"`
	Server   server.Config   `yaml:"server"`
	Cache    cache.Config    `yaml:"cache"`
	Store    sqlite.Config   `yaml:"store"`
	Notify   notify.Config   `yaml:"notify"`
	Fetch    FetchConfig     `yaml:"fetch"`

	Debug           bool          `yaml:"debug" env:"DEBUG"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// FetchConfig limits which merge requests the batch mode reviews
type FetchConfig struct {
	TargetBranch string        `yaml:"target_branch" env:"FETCH_TARGET_BRANCH"`
	UpdatedSince time.Duration `yaml:"updated_since" env:"FETCH_UPDATED_SINCE"`
	Limit        int           `yaml:"limit" env:"FETCH_LIMIT"`
}

func (c FetchConfig) Options() provider.FetchOptions {
	return provider.FetchOptions{
		TargetBranch: c.TargetBranch,
		UpdatedSince: c.UpdatedSince,
		Limit:        c.Limit,
	}
}

// Load reads the config file if the path is set, then applies environment overrides.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, erro.Wrap(err, "read config file")
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, erro.Wrap(err, "read env")
		}
	}
	if err := cfg.PrepareAndValidate(); err != nil {
		return cfg, erro.Wrap(err, "validate config")
	}
	return cfg, nil
}

// PrepareAndValidate validates every section and shares the settings that appear in several of them.
func (c *Config) PrepareAndValidate() error {
	if err := c.Provider.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "provider")
	}
	if err := c.Agent.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "agent")
	}

	c.Reviewer.BotUsername = lang.Check(c.Reviewer.BotUsername, c.Provider.BotUsername)
	c.Reviewer.Language = lang.Check(c.Reviewer.Language, c.Agent.Language)
	if err := c.Reviewer.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "reviewer")
	}
	if err := c.Server.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "server")
	}
	if err := c.Cache.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "cache")
	}
	if err := c.Store.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "store")
	}
	if err := c.Notify.PrepareAndValidate(); err != nil {
		return erro.Wrap(err, "notify")
	}

	if c.Fetch.Limit < 0 {
		return erro.New("fetch limit must not be negative: %d", c.Fetch.Limit)
	}
	c.ShutdownTimeout = lang.Check(c.ShutdownTimeout, defaultShutdownTimeout)

	return nil
}
