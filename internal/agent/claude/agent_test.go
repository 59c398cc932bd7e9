package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T, handler http.HandlerFunc) *Agent {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cli, err := cliex.NewWithConfig(cliex.Config{})
	require.NoError(t, err)

	a, err := New(context.Background(), cli, model.ModelConfig{APIKey: "key", URL: server.URL})
	require.NoError(t, err)
	return a
}

func TestCallAPI_JSONPrefill(t *testing.T) {
	var got messagesRequest
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, messagesPath, r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"content": [{"type": "text", "text": "\"comments\": []}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	})

	resp, err := a.CallAPI(context.Background(), model.APIRequest{
		Prompt:       "review",
		SystemPrompt: "you are a reviewer",
		MaxTokens:    100,
		ResponseType: model.ResponseTypeJSON,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"comments": []}`, resp.Content)
	assert.Equal(t, 15, resp.TotalTokens)
	assert.False(t, resp.Truncated)

	assert.Equal(t, defaultModel, got.Model)
	assert.Equal(t, "you are a reviewer", got.System)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, jsonPrefill, got.Messages[1].Content)
}

func TestCallAPI_TextAndTruncation(t *testing.T) {
	var got messagesRequest
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"content": [{"type": "text", "text": "Looks "}, {"type": "text", "text": "good"}],
			"stop_reason": "max_tokens"
		}`)
	})

	resp, err := a.CallAPI(context.Background(), model.APIRequest{Prompt: "reply", MaxTokens: 5})
	require.NoError(t, err)

	assert.Equal(t, "Looks good", resp.Content)
	assert.True(t, resp.Truncated)
	assert.Len(t, got.Messages, 1)
}

func TestCallAPI_ErrorBody(t *testing.T) {
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`)
	})

	_, err := a.CallAPI(context.Background(), model.APIRequest{Prompt: "x", MaxTokens: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded error")
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.anthropic.com/v1/messages", endpoint("https://api.anthropic.com/"))
	assert.Equal(t, "http://proxy/v1/messages", endpoint("http://proxy/v1/messages"))
}

func TestNew_RequiresKey(t *testing.T) {
	cli, err := cliex.NewWithConfig(cliex.Config{})
	require.NoError(t, err)
	_, err = New(context.Background(), cli, model.ModelConfig{})
	assert.Error(t, err)
}
