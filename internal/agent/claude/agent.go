// Package claude is the Anthropic Messages API backend.
package claude

import (
	"context"
	"strings"
	"time"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
)

const (
	defaultModel   = "claude-3-5-haiku-20241022"
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	messagesPath   = "/v1/messages"

	stopMaxTokens = "max_tokens"
	// the Messages API has no JSON mode, an assistant turn opening the object keeps the reply parseable
	jsonPrefill = "{"
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent calls the Anthropic Messages API
type Agent struct {
	cfg model.ModelConfig
	cli *cliex.HTTP
	now func() time.Time
}

func New(ctx context.Context, cli *cliex.HTTP, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errm.New("Claude API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)
	cfg.URL = endpoint(lang.Check(cfg.URL, defaultBaseURL))

	cli.C().SetHeader("x-api-key", cfg.APIKey)
	cli.C().SetHeader("anthropic-version", apiVersion)

	agent := &Agent{
		cfg: cfg,
		cli: cli,
		now: time.Now,
	}

	if cfg.IsTest {
		if _, err := agent.CallAPI(ctx, model.APIRequest{Prompt: "Reply with OK.", MaxTokens: 10}); err != nil {
			return nil, errm.Wrap(err, "failed to connect to Claude API")
		}
	}

	return agent, nil
}

// CallAPI sends one user turn. JSON requests get the opening brace prefilled and restored in the output.
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	reqBody := messagesRequest{
		Model:       a.cfg.Model,
		System:      req.SystemPrompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}
	if req.IsJSON() {
		reqBody.Messages = append(reqBody.Messages, message{Role: "assistant", Content: jsonPrefill})
	}

	var respBody messagesResponse
	if _, err := a.cli.Post(ctx, lang.Check(req.URL, a.cfg.URL), reqBody, &respBody); err != nil {
		return model.APIResponse{}, errm.Wrap(err, "failed to make API request")
	}
	if respBody.Error != nil {
		// overloaded_error and rate_limit_error carry the words the retry classifier looks for
		return model.APIResponse{}, errm.Errorf("Claude API error: %s: %s",
			strings.ReplaceAll(respBody.Error.Type, "_", " "), respBody.Error.Message)
	}

	var text strings.Builder
	for _, c := range respBody.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out != "" && req.IsJSON() && !strings.HasPrefix(out, jsonPrefill) {
		out = jsonPrefill + out
	}

	return model.APIResponse{
		CreateTime:       a.now(),
		Content:          out,
		PromptTokens:     respBody.Usage.InputTokens,
		CompletionTokens: respBody.Usage.OutputTokens,
		TotalTokens:      respBody.Usage.InputTokens + respBody.Usage.OutputTokens,
		Truncated:        respBody.StopReason == stopMaxTokens,
	}, nil
}

func endpoint(base string) string {
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, messagesPath) {
		return base
	}
	return base + messagesPath
}
