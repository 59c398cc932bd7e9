package server

import (
	"context"
	"net/http"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"github.com/maxbolgarin/servex/v2"
)

// header names carrying the webhook secret, GitHub first
var authHeaders = []string{"X-Hub-Signature-256", "X-Gitlab-Token"}

// EventHandler accepts normalized webhook events, it must not block on the review itself
type EventHandler interface {
	HandleEvent(ctx context.Context, event *model.CodeEvent) error
}

// Server handles webhook requests from VCS providers
type Server struct {
	provider interfaces.CodeProvider
	handler  EventHandler
	config   Config
	log      logze.Logger
	server   *servex.Server
}

// New creates a new webhook handler
func New(cfg Config, provider interfaces.CodeProvider, handler EventHandler) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	log := logze.With("component", "server")

	server, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	h := &Server{
		provider: provider,
		handler:  handler,
		config:   cfg,
		log:      log,
		server:   server,
	}

	server.HandleFunc(cfg.Endpoint, h.handleWebhook)

	return h, nil
}

// Start starts the webhook server
func (h *Server) Start(ctx context.Context) error {
	h.log.Info("webhook server starting", "address", h.config.Address, "endpoint", h.config.Endpoint)
	if h.config.EnableHTTPS {
		return h.server.StartHTTPS(h.config.Address)
	}
	return h.server.StartHTTP(h.config.Address)
}

// Stop stops the webhook server
func (h *Server) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// handleWebhook validates and parses a delivery and queues it. The review runs after the response is sent.
func (h *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodySize)
	ctx := servex.NewContext(w, r)

	body, err := ctx.Read()
	if err != nil {
		ctx.BadRequest(err, "failed to read webhook body")
		return
	}

	if err := h.provider.ValidateWebhook(body, getAuthFromHeaders(r)); err != nil {
		h.log.Warn("webhook validation failed", "error", err, "remote", r.RemoteAddr)
		ctx.Unauthorized(err, "webhook validation failed")
		return
	}

	event, err := h.provider.ParseWebhookEvent(body)
	if err != nil {
		ctx.BadRequest(err, "failed to parse webhook event")
		return
	}

	if !h.provider.IsMergeRequestEvent(event) && !h.provider.IsCommentEvent(event) {
		h.log.DebugIf(h.config.Verbose, "ignoring event", "event_type", event.Type, "action", event.RawAction)
		ctx.Response(http.StatusOK)
		return
	}

	if err := h.handler.HandleEvent(r.Context(), event); err != nil {
		if errm.Is(err, model.ErrQueueFull) {
			ctx.ServiceUnavailable(err, "all review workers are busy")
			return
		}
		ctx.InternalServerError(err, "failed to handle event")
		return
	}

	ctx.Response(http.StatusAccepted)
}

// getAuthFromHeaders extracts auth token from request headers
func getAuthFromHeaders(r *http.Request) string {
	for _, header := range authHeaders {
		if value := r.Header.Get(header); value != "" {
			return value
		}
	}
	return ""
}
