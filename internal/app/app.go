package app

import (
	"context"
	"time"

	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/agent"
	"github.com/maxbolgarin/revline/internal/cache"
	"github.com/maxbolgarin/revline/internal/config"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"github.com/maxbolgarin/revline/internal/notify"
	"github.com/maxbolgarin/revline/internal/provider"
	"github.com/maxbolgarin/revline/internal/reviewer"
	"github.com/maxbolgarin/revline/internal/security"
	"github.com/maxbolgarin/revline/internal/server"
	"github.com/maxbolgarin/revline/internal/store/sqlite"
)

// Revline is the main service that wires all components together
type Revline struct {
	db       *sqlite.DB
	cache    *cache.Cache
	provider interfaces.CodeProvider
	agent    interfaces.AIAgent
	reviewer *reviewer.Reviewer
	server   *server.Server
	fetcher  *provider.Fetcher

	cfg config.Config
	log logze.Logger
}

// New creates a new code review service
func New(ctx contem.Context, cfg config.Config) (*Revline, error) {
	service := &Revline{
		cfg: cfg,
		log: logze.With("component", "app"),
	}

	if err := service.init(ctx, cfg); err != nil {
		return nil, errm.Wrap(err, "failed to initialize service")
	}

	return service, nil
}

// StartWebhook starts the webhook server and the cache sweeper.
func (s *Revline) StartWebhook(ctx context.Context) error {
	go s.runCacheSweep(ctx)

	if err := s.server.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start webhook handler")
	}
	return nil
}

// RunReview reviews every open merge request of the project that matches the fetch options.
func (s *Revline) RunReview(ctx context.Context, projectID string) error {
	processed, err := s.fetcher.BatchProcessMRs(ctx, projectID, s.cfg.Fetch.Options(),
		func(ctx context.Context, mr *model.MergeRequest) error {
			_, err := s.reviewer.ReviewMergeRequest(ctx, projectID, mr)
			return err
		})

	s.log.Info("batch review finished", "project_id", projectID, "reviewed", processed)
	if err != nil {
		return errm.Wrap(err, "failed to review merge requests", "project_id", projectID)
	}
	return nil
}

func (s *Revline) runCacheSweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Cache.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.cache.Sweep(ctx); err != nil {
				s.log.Err(err, "failed to sweep review cache")
			}
		}
	}
}

func (s *Revline) init(ctx contem.Context, cfg config.Config) (err error) {
	s.db, err = sqlite.Open(ctx, cfg.Store)
	if err != nil {
		return errm.Wrap(err, "failed to open store")
	}
	ctx.Add(func(context.Context) error {
		return s.db.Close()
	})

	s.cache, err = cache.New(cfg.Cache, cache.WithDurable(sqlite.NewCacheRepo(s.db)))
	if err != nil {
		return errm.Wrap(err, "failed to create review cache")
	}

	s.provider, err = provider.NewProvider(cfg.Provider)
	if err != nil {
		return errm.Wrap(err, "failed to create VCS provider")
	}
	s.fetcher = provider.NewFetcher(s.provider)

	s.agent, err = agent.New(ctx, cfg.Agent)
	if err != nil {
		return errm.Wrap(err, "failed to create AI agent")
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		return errm.Wrap(err, "failed to create notifier")
	}

	reviews := sqlite.NewReviewRepo(s.db)
	s.reviewer, err = reviewer.New(cfg.Reviewer, reviewer.Deps{
		Provider: s.provider,
		Agent:    s.agent,
		Scanner:  security.NewScanner(),
		Cache:    s.cache,
		Store:    reviews,
		Usage:    reviews,
		Notifier: notifier,
	})
	if err != nil {
		return errm.Wrap(err, "failed to create review service")
	}
	ctx.Add(func(context.Context) error {
		return s.reviewer.Close(cfg.ShutdownTimeout)
	})

	s.server, err = server.New(cfg.Server, s.provider, s.reviewer)
	if err != nil {
		return errm.Wrap(err, "failed to create webhook handler")
	}
	ctx.Add(s.server.Stop)

	return nil
}
