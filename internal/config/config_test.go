package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxbolgarin/revline/internal/agent"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/notify"
	"github.com/maxbolgarin/revline/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
provider:
  type: gitlab
  base_url: https://gitlab.example.com
  token: glpat-test
  webhook_secret: s3cret
  bot_username: revline-bot
agent:
  type: gemini
  api_key: key
  language: ru
  rules: '{"focus": ["security"]}'
reviewer:
  pool_size: 4
  filter:
    max_files: 20
cache:
  ttl: 24h
store:
  path: /tmp/revline-test.db
fetch:
  target_branch: main
  updated_since: 48h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, provider.GitLab, cfg.Provider.Type)
	assert.Equal(t, agent.Gemini, cfg.Agent.Type)
	assert.Equal(t, 4, cfg.Reviewer.PoolSize)
	assert.Equal(t, 20, cfg.Reviewer.Filter.MaxFiles)
	assert.True(t, cfg.Reviewer.RedactSecrets)
	assert.True(t, cfg.Reviewer.Filter.SkipAutoGenerated)
	assert.True(t, cfg.Reviewer.Filter.SkipWhitespace)
	assert.False(t, cfg.Reviewer.Filter.SkipTests)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "/tmp/revline-test.db", cfg.Store.Path)
	assert.Equal(t, notify.Log, cfg.Notify.Type)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)

	assert.Equal(t, "revline-bot", cfg.Reviewer.BotUsername)
	assert.Equal(t, model.LanguageRussian, cfg.Reviewer.Language)

	opts := cfg.Fetch.Options()
	assert.Equal(t, "main", opts.TargetBranch)
	assert.Equal(t, 48*time.Hour, opts.UpdatedSince)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROVIDER_TYPE", "github")
	t.Setenv("REVIEW_POOL_SIZE", "8")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, provider.GitHub, cfg.Provider.Type)
	assert.Equal(t, 8, cfg.Reviewer.PoolSize)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "provider:\n  type: gitlab\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, testConfig+"notify:\n  type: discord\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, testConfig+"  limit: -1\n"))
	assert.Error(t, err)
}
