package agent

import (
	"context"
	"strings"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/agent/claude"
	"github.com/maxbolgarin/revline/internal/agent/gemini"
	"github.com/maxbolgarin/revline/internal/agent/openai"
	"github.com/maxbolgarin/revline/internal/agent/prompts"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
)

var _ interfaces.AIAgent = (*Agent)(nil)

type Agent struct {
	cfg Config
	log logze.Logger
	pb  *prompts.Builder
	api interfaces.AgentAPI
}

func New(ctx context.Context, cfg Config) (*Agent, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		ProxyAddress:   cfg.ProxyURL,
		RequestTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}

	modelCfg := model.ModelConfig{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		URL:      cfg.BaseURL,
		ProxyURL: cfg.ProxyURL,
		Timeout:  cfg.Timeout,
		IsTest:   cfg.IsTest,
	}

	var api interfaces.AgentAPI
	switch cfg.Type {
	case Gemini:
		api, err = gemini.New(ctx, modelCfg)
	case OpenAI:
		api, err = openai.New(ctx, cli, modelCfg)
	case Claude:
		api, err = claude.New(ctx, cli, modelCfg)
	default:
		return nil, errm.Errorf("unsupported agent type: %s", cfg.Type)
	}
	if err != nil {
		return nil, errm.Wrap(err, "failed to create agent")
	}

	return newAgent(cfg, api), nil
}

// NewWithAPI creates an agent on top of an existing model API.
func NewWithAPI(cfg Config, api interfaces.AgentAPI) (*Agent, error) {
	if err := cfg.prepare(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	return newAgent(cfg, api), nil
}

func newAgent(cfg Config, api interfaces.AgentAPI) *Agent {
	return &Agent{
		cfg: cfg,
		log: logze.With("component", "agent", "type", cfg.Type),
		pb:  prompts.NewBuilder(cfg.Language, cfg.Rules),
		api: api,
	}
}

// Headers returns the localized comment headers.
func (a *Agent) Headers() prompts.Headers {
	return a.pb.Headers()
}

// ReviewFile performs a structured review of a numbered diff.
// Malformed model output is not an error, it yields an empty result with a placeholder summary.
func (a *Agent) ReviewFile(ctx context.Context, req model.FileReviewRequest) (*model.ReviewResult, error) {
	if strings.TrimSpace(req.NumberedDiff) == "" {
		return nil, ErrEmptyDiff
	}

	response, err := a.apiCall(ctx, a.pb.BuildReviewPrompt(req), true)
	if err != nil {
		return nil, errm.Wrap(err, "failed to call API for review", "file", req.Filename)
	}

	result, ok := parseReviewResult(response)
	if !ok {
		a.log.Warn("cannot parse review response", "file", req.Filename, "response", lang.TruncateString(response, 300))
	}

	return result, nil
}

// ReviewFileContent reviews a whole file without a diff and returns freeform markdown.
func (a *Agent) ReviewFileContent(ctx context.Context, req model.FileReviewRequest) (string, error) {
	response, err := a.apiCall(ctx, a.pb.BuildContentReviewPrompt(req), false)
	if err != nil {
		return "", errm.Wrap(err, "failed to call API for content review", "file", req.Filename)
	}
	return strings.TrimSpace(response), nil
}

// GenerateCommentReply answers a developer reply to an AI comment.
func (a *Agent) GenerateCommentReply(ctx context.Context, originalComment, replyContext string) (string, error) {
	response, err := a.apiCall(ctx, a.pb.BuildReplyPrompt(originalComment, replyContext), false)
	if err != nil {
		return "", errm.Wrap(err, "failed to call API for reply")
	}
	return strings.TrimSpace(response), nil
}

func (a *Agent) apiCall(ctx context.Context, prompt model.Prompt, isJSON bool) (string, error) {
	req := model.APIRequest{
		Prompt:       prompt.UserPrompt,
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    a.cfg.MaxTokens,
		Temperature:  a.cfg.Temperature,
		ResponseType: lang.If(isJSON, model.ResponseTypeJSON, "text/plain"),
	}

	return retryWithBackoff(ctx, a.log, a.cfg.MaxRetries, a.cfg.RetryDelay, func() (string, error) {
		response, err := a.api.CallAPI(ctx, req)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(response.Content) == "" {
			return "", ErrEmptyResponse
		}
		if response.Truncated {
			a.log.Warn("response hit the token limit", "max_tokens", req.MaxTokens, "json", isJSON)
		}
		a.log.Debug("api call done", "prompt_tokens", response.PromptTokens, "completion_tokens", response.CompletionTokens)
		return response.Content, nil
	})
}
