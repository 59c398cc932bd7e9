// Package gemini is the Google Gemini backend built on the genai SDK.
package gemini

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash"
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent calls Google Gemini through the genai SDK
type Agent struct {
	client *genai.Client
	config model.ModelConfig
}

func New(ctx context.Context, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, erro.New("Gemini API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, erro.Wrap(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
	if cfg.URL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.URL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create Gemini client")
	}

	agent := &Agent{
		client: client,
		config: cfg,
	}

	if cfg.IsTest {
		if _, err := agent.CallAPI(ctx, model.APIRequest{Prompt: "Reply with OK.", MaxTokens: 10}); err != nil {
			return nil, erro.Wrap(err, "failed to connect to Gemini API")
		}
	}

	return agent, nil
}

// CallAPI generates content with a single user turn
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: lang.Check(req.ResponseType, "text/plain"),
		Temperature:      &req.Temperature,
		MaxOutputTokens:  int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}

	result, err := a.client.Models.GenerateContent(ctx,
		a.config.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		config,
	)
	if err != nil {
		return model.APIResponse{}, classifyError(err)
	}

	out := model.APIResponse{CreateTime: result.CreateTime}
	if len(result.Candidates) > 0 {
		candidate := result.Candidates[0]
		out.Content = candidateText(candidate)
		out.Truncated = candidate.FinishReason == genai.FinishReasonMaxTokens
	}
	if result.UsageMetadata != nil {
		out.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int(result.UsageMetadata.TotalTokenCount)
	}

	return out, nil
}

// candidateText joins answer parts, thinking parts are skipped.
func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// classifyError maps SDK errors to messages the caller classifies for retries.
func classifyError(err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "location is not supported"):
		return erro.New("region not supported by Gemini API")
	case strings.Contains(errStr, "429"), strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return erro.Wrap(err, "rate limit exceeded")
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "403"):
		return erro.New("authentication failed")
	case strings.Contains(errStr, "400"):
		return erro.New("bad request to Gemini API: %s", errStr)
	case strings.Contains(errStr, "503"):
		return erro.Wrap(err, "Gemini API service unavailable")
	case strings.Contains(errStr, "500"), strings.Contains(errStr, "502"):
		return erro.Wrap(err, "Gemini API server error")
	default:
		return erro.Wrap(err, "Gemini API error")
	}
}
