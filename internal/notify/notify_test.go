package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maxbolgarin/revline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReview() *model.Review {
	return &model.Review{
		ID:                "rev-1",
		ProjectID:         "group/app",
		PullRequestNumber: 7,
		HeadSHA:           "0123456789abcdef",
	}
}

func TestConfig_PrepareAndValidate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.PrepareAndValidate())
	assert.Equal(t, Log, cfg.Type)
	assert.Equal(t, defaultTimeout, cfg.Timeout)

	cfg = Config{Type: Discord}
	assert.Error(t, cfg.PrepareAndValidate())

	cfg = Config{Type: "slack"}
	assert.Error(t, cfg.PrepareAndValidate())
}

func TestNew(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)
	assert.NoError(t, n.NotifyFailure(context.Background(), testReview(), errors.New("boom")))

	n, err = New(Config{Type: Discord, WebhookURL: "http://localhost/hook"})
	require.NoError(t, err)
	assert.IsType(t, &DiscordNotifier{}, n)
}

func TestDiscordNotifier_NotifyFailure(t *testing.T) {
	var got discordMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	n, err := NewDiscord(Config{WebhookURL: server.URL + "/api/webhooks/1/abc", Timeout: defaultTimeout})
	require.NoError(t, err)

	err = n.NotifyFailure(context.Background(), testReview(), errors.New("list files: 403 forbidden"))
	require.NoError(t, err)

	assert.Contains(t, got.Content, "group/app")
	assert.Contains(t, got.Content, "!7")
	assert.Contains(t, got.Content, "01234567")
	assert.Contains(t, got.Content, "403 forbidden")
}

func TestFailureMessage_Truncated(t *testing.T) {
	msg := failureMessage(testReview(), errors.New(strings.Repeat("x", 5000)))
	assert.LessOrEqual(t, len(msg), maxDiscordContent+3)
}
