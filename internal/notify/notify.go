// Package notify reports failed reviews to operators.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
)

type NotifierType string

const (
	Log     NotifierType = "log"
	Discord NotifierType = "discord"
)

const (
	defaultTimeout = 10 * time.Second
	// discord rejects messages over 2000 characters
	maxDiscordContent = 1900
)

// Config selects where failure notifications go
type Config struct {
	Type       NotifierType  `yaml:"type" env:"NOTIFY_TYPE"`
	WebhookURL string        `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"NOTIFY_TIMEOUT"`
}

func (c *Config) PrepareAndValidate() error {
	c.Type = lang.Check(c.Type, Log)
	c.Timeout = lang.Check(c.Timeout, defaultTimeout)

	switch c.Type {
	case Log:
	case Discord:
		if c.WebhookURL == "" {
			return errm.New("webhook_url is required for discord notifier")
		}
	default:
		return errm.New("invalid notifier type", "type", c.Type)
	}
	return nil
}

// New creates a notifier from the configuration
func New(cfg Config) (interfaces.Notifier, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	if cfg.Type == Discord {
		return NewDiscord(cfg)
	}
	return NewLog(), nil
}

// LogNotifier writes failures to the error log
type LogNotifier struct {
	log logze.Logger
}

func NewLog() *LogNotifier {
	return &LogNotifier{log: logze.With("component", "notifier")}
}

func (n *LogNotifier) NotifyFailure(_ context.Context, review *model.Review, reason error) error {
	n.log.Err(reason, "review failed",
		"review_id", review.ID,
		"project_id", review.ProjectID,
		"mr_iid", review.PullRequestNumber,
		"head_sha", lang.TruncateString(review.HeadSHA, 8),
	)
	return nil
}

// DiscordNotifier posts failures to a Discord channel webhook
type DiscordNotifier struct {
	cli *cliex.HTTP
	url string
}

type discordMessage struct {
	Content string `json:"content"`
}

func NewDiscord(cfg Config) (*DiscordNotifier, error) {
	cli, err := cliex.NewWithConfig(cliex.Config{
		RequestTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}
	return &DiscordNotifier{cli: cli, url: cfg.WebhookURL}, nil
}

func (n *DiscordNotifier) NotifyFailure(ctx context.Context, review *model.Review, reason error) error {
	msg := discordMessage{Content: failureMessage(review, reason)}
	if _, err := n.cli.Post(ctx, n.url, msg); err != nil {
		return errm.Wrap(err, "failed to post discord message")
	}
	return nil
}

func failureMessage(review *model.Review, reason error) string {
	var b strings.Builder
	b.WriteString(":x: **Review failed**\n")
	fmt.Fprintf(&b, "Project: `%s`, merge request: !%d\n", review.ProjectID, review.PullRequestNumber)
	if review.HeadSHA != "" {
		fmt.Fprintf(&b, "Commit: `%s`\n", lang.TruncateString(review.HeadSHA, 8))
	}
	fmt.Fprintf(&b, "Review: `%s`\n", review.ID)
	if reason != nil {
		b.WriteString("```\n")
		b.WriteString(reason.Error())
		b.WriteString("\n```")
	}
	return lang.TruncateString(b.String(), maxDiscordContent)
}
