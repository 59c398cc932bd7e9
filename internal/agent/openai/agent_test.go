package openai

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

	a, err := New(context.Background(), cli, model.ModelConfig{APIKey: "key", Model: "local-model", URL: server.URL + "/v1"})
	require.NoError(t, err)
	return a
}

func TestCallAPI_JSONMode(t *testing.T) {
	var got chatRequest
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1"+completionsPath, r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"created": 1700000000,
			"choices": [{"message": {"role": "assistant", "content": " {\"comments\": []} "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
		}`)
	})

	resp, err := a.CallAPI(context.Background(), model.APIRequest{
		Prompt:       "review",
		SystemPrompt: "system",
		ResponseType: model.ResponseTypeJSON,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"comments": []}`, resp.Content)
	assert.Equal(t, 10, resp.TotalTokens)
	assert.False(t, resp.Truncated)

	assert.Equal(t, "local-model", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestCallAPI_NoSystemPromptAndTruncated(t *testing.T) {
	var got chatRequest
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": [{"message": {"content": "partial"}, "finish_reason": "length"}]}`)
	})

	resp, err := a.CallAPI(context.Background(), model.APIRequest{Prompt: "reply"})
	require.NoError(t, err)

	assert.True(t, resp.Truncated)
	assert.Nil(t, got.ResponseFormat)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestCallAPI_Refusal(t *testing.T) {
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": [{"message": {"refusal": "cannot help"}, "finish_reason": "stop"}]}`)
	})

	_, err := a.CallAPI(context.Background(), model.APIRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "cannot help")
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", endpoint(defaultURL))
	assert.Equal(t, "http://llm/v1/chat/completions", endpoint("http://llm/v1/chat/completions/"))
}
