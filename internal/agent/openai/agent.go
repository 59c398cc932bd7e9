// Package openai is the backend for OpenAI compatible chat completions APIs,
// including Azure deployments and local servers.
package openai

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
	defaultModel    = "gpt-4o-mini"
	defaultURL      = "https://api.openai.com/v1"
	completionsPath = "/chat/completions"

	finishLength = "length"
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent calls an OpenAI compatible chat completions API
type Agent struct {
	cli *cliex.HTTP
	cfg model.ModelConfig
}

func New(ctx context.Context, cli *cliex.HTTP, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errm.New("OpenAI API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)
	cfg.URL = endpoint(lang.Check(cfg.URL, defaultURL))

	cli.C().SetAuthToken(cfg.APIKey)

	agent := &Agent{
		cli: cli,
		cfg: cfg,
	}

	// may take tokens
	if cfg.IsTest {
		if _, err := agent.CallAPI(ctx, model.APIRequest{Prompt: "Reply with OK.", MaxTokens: 10}); err != nil {
			return nil, errm.Wrap(err, "failed to connect to OpenAI API")
		}
	}

	return agent, nil
}

// CallAPI makes a request to the chat completions endpoint
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	reqBody := chatRequest{
		Model:       a.cfg.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.SystemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, message{Role: "system", Content: req.SystemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, message{Role: "user", Content: req.Prompt})
	if req.IsJSON() {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var respBody chatResponse
	if _, err := a.cli.Post(ctx, lang.Check(req.URL, a.cfg.URL), reqBody, &respBody); err != nil {
		return model.APIResponse{}, errm.Wrap(err, "failed to make API request")
	}
	if respBody.Error != nil {
		return model.APIResponse{}, errm.Errorf("OpenAI API error: %s: %s", respBody.Error.Type, respBody.Error.Message)
	}
	if len(respBody.Choices) == 0 {
		return model.APIResponse{}, errm.New("no choices in response")
	}

	choice := respBody.Choices[0]
	if choice.Message.Refusal != "" {
		return model.APIResponse{}, errm.Errorf("model refused: %s", choice.Message.Refusal)
	}

	return model.APIResponse{
		CreateTime:       time.Unix(respBody.Created, 0),
		Content:          strings.TrimSpace(choice.Message.Content),
		PromptTokens:     respBody.Usage.PromptTokens,
		CompletionTokens: respBody.Usage.CompletionTokens,
		TotalTokens:      respBody.Usage.TotalTokens,
		Truncated:        choice.FinishReason == finishLength,
	}, nil
}

func endpoint(base string) string {
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, completionsPath) {
		return base
	}
	return base + completionsPath
}
