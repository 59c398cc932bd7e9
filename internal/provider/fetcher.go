package provider

import (
	"context"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
)

// FetchOptions selects open merge requests for a batch review
type FetchOptions struct {
	TargetBranch string        `yaml:"target_branch" env:"FETCH_TARGET_BRANCH"`
	UpdatedSince time.Duration `yaml:"updated_since" env:"FETCH_UPDATED_SINCE"`
	Limit        int           `yaml:"limit" env:"FETCH_LIMIT"`
}

// SetDefaults sets default values for fetch options
func (o *FetchOptions) SetDefaults() {
	if o.Limit == 0 {
		o.Limit = 50
	}
}

// Fetcher selects merge requests of a project for review outside of webhooks
type Fetcher struct {
	provider interfaces.CodeProvider
	now      func() time.Time
	log      logze.Logger
}

// NewFetcher creates a new MR fetcher instance
func NewFetcher(provider interfaces.CodeProvider) *Fetcher {
	return &Fetcher{
		provider: provider,
		now:      time.Now,
		log:      logze.With("component", "fetcher"),
	}
}

// FetchMRsToReview retrieves open merge requests matching the options, at most Limit of them
func (f *Fetcher) FetchMRsToReview(ctx context.Context, projectID string, options FetchOptions) ([]*model.MergeRequest, error) {
	options.SetDefaults()

	mrs, err := f.provider.ListOpenMergeRequests(ctx, projectID)
	if err != nil {
		return nil, errm.Wrap(err, "failed to list open merge requests")
	}

	var since time.Time
	if options.UpdatedSince > 0 {
		since = f.now().Add(-options.UpdatedSince)
	}

	out := make([]*model.MergeRequest, 0, len(mrs))
	for _, mr := range mrs {
		if options.TargetBranch != "" && mr.TargetBranch != options.TargetBranch {
			continue
		}
		if !since.IsZero() && !mr.UpdatedAt.IsZero() && mr.UpdatedAt.Before(since) {
			continue
		}
		if len(out) >= options.Limit {
			f.log.Warn("reached merge requests limit", "limit", options.Limit)
			break
		}
		out = append(out, mr)
	}

	return out, nil
}

// BatchProcessMRs runs processor for every selected merge request.
// A failed merge request does not stop the batch, all errors are returned together.
func (f *Fetcher) BatchProcessMRs(ctx context.Context, projectID string, options FetchOptions, processor func(context.Context, *model.MergeRequest) error) (int, error) {
	mrs, err := f.FetchMRsToReview(ctx, projectID, options)
	if err != nil {
		return 0, err
	}

	f.log.Info("processing merge requests", "project_id", projectID, "count", len(mrs))

	errs := errm.NewList()
	processed := 0
	for _, mr := range mrs {
		if ctx.Err() != nil {
			errs.Wrap(ctx.Err(), "batch interrupted")
			break
		}
		if err := processor(ctx, mr); err != nil {
			errs.Wrap(err, "failed to process merge request", "mr_iid", mr.IID)
			continue
		}
		processed++
	}

	return processed, errs.Err()
}
