package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	interfaces.CodeProvider
	token string
	event *model.CodeEvent
}

func (p *stubProvider) ValidateWebhook(_ []byte, token string) error {
	if token != p.token {
		return errors.New("invalid token")
	}
	return nil
}

func (p *stubProvider) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	if !strings.HasPrefix(string(payload), "{") {
		return nil, errors.New("not json")
	}
	return p.event, nil
}

func (p *stubProvider) IsMergeRequestEvent(e *model.CodeEvent) bool {
	return e.Type == model.EventTypeMergeRequest
}

func (p *stubProvider) IsCommentEvent(e *model.CodeEvent) bool {
	return e.Type == model.EventTypeComment
}

type recordingHandler struct {
	events []*model.CodeEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *model.CodeEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func newTestServer(t *testing.T, event *model.CodeEvent) (*Server, *recordingHandler) {
	t.Helper()
	handler := &recordingHandler{}
	s, err := New(Config{}, &stubProvider{token: "s3cret", event: event}, handler)
	require.NoError(t, err)
	return s, handler
}

func post(s *Server, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if token != "" {
		req.Header.Set("X-Gitlab-Token", token)
	}
	rec := httptest.NewRecorder()
	s.handleWebhook(rec, req)
	return rec
}

func TestHandleWebhook_QueuesMergeRequestEvent(t *testing.T) {
	event := &model.CodeEvent{Type: model.EventTypeMergeRequest, Action: model.ActionOpened}
	s, handler := newTestServer(t, event)

	rec := post(s, `{}`, "s3cret")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, handler.events, 1)
	assert.Same(t, event, handler.events[0])
}

func TestHandleWebhook_Rejections(t *testing.T) {
	s, handler := newTestServer(t, &model.CodeEvent{Type: model.EventTypeMergeRequest})

	assert.Equal(t, http.StatusUnauthorized, post(s, `{}`, "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, post(s, `{}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(s, `garbage`, "s3cret").Code)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	s.handleWebhook(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Empty(t, handler.events)
}

func TestHandleWebhook_BodyTooLarge(t *testing.T) {
	handler := &recordingHandler{}
	s, err := New(Config{MaxBodySize: 8}, &stubProvider{token: "s3cret", event: &model.CodeEvent{Type: model.EventTypeMergeRequest}}, handler)
	require.NoError(t, err)

	rec := post(s, `{"payload": "too long"}`, "s3cret")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, handler.events)
}

func TestConfig_PrepareAndValidate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.PrepareAndValidate())
	assert.Equal(t, defaultAddress, cfg.Address)
	assert.Equal(t, defaultEndpoint, cfg.Endpoint)
	assert.Equal(t, int64(defaultMaxBodySize), cfg.MaxBodySize)

	cfg = Config{EnableHTTPS: true}
	assert.Error(t, cfg.PrepareAndValidate())

	cfg = Config{MaxBodySize: -1}
	assert.Error(t, cfg.PrepareAndValidate())
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	s, handler := newTestServer(t, &model.CodeEvent{Type: model.EventTypeOther})

	rec := post(s, `{}`, "s3cret")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, handler.events)
}

func TestHandleWebhook_HandlerError(t *testing.T) {
	s, handler := newTestServer(t, &model.CodeEvent{Type: model.EventTypeComment})
	handler.err = errors.New("pool closed")

	rec := post(s, `{}`, "s3cret")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, handler.events, 1)
}

func TestHandleWebhook_QueueFull(t *testing.T) {
	s, handler := newTestServer(t, &model.CodeEvent{Type: model.EventTypeMergeRequest})
	handler.err = errm.Wrap(model.ErrQueueFull, "submit review")

	rec := post(s, `{}`, "s3cret")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetAuthFromHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	assert.Empty(t, getAuthFromHeaders(req))

	req.Header.Set("X-Gitlab-Token", "gl")
	assert.Equal(t, "gl", getAuthFromHeaders(req))

	req.Header.Set("X-Hub-Signature-256", "sha256=abc")
	assert.Equal(t, "sha256=abc", getAuthFromHeaders(req))
}
