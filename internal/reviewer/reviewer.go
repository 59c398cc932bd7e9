package reviewer

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/agent/prompts"
	"github.com/maxbolgarin/revline/internal/cache"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"github.com/panjf2000/ants/v2"
)

// Deps are the collaborators of a reviewer. Store, Usage and Notifier are optional.
type Deps struct {
	Provider interfaces.CodeProvider
	Agent    interfaces.AIAgent
	Scanner  interfaces.SecurityScanner
	Cache    *cache.Cache
	Store    interfaces.ReviewStore
	Usage    interfaces.UsageCounter
	Notifier interfaces.Notifier
}

// Reviewer drives a merge request review from webhook event to summary
type Reviewer struct {
	provider interfaces.CodeProvider
	agent    interfaces.AIAgent
	scanner  interfaces.SecurityScanner
	cache    *cache.Cache
	store    interfaces.ReviewStore
	usage    interfaces.UsageCounter
	notifier interfaces.Notifier

	poster  *Poster
	pool    *ants.Pool
	headers prompts.Headers

	inflightMu sync.Mutex
	inflight   *abstract.SafeMap[string, time.Time]

	now func() time.Time
	cfg Config
	log logze.Logger
}

// New creates a new reviewer
func New(cfg Config, deps Deps) (*Reviewer, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "failed to prepare and validate config")
	}
	if deps.Provider == nil || deps.Agent == nil || deps.Scanner == nil || deps.Cache == nil {
		return nil, erro.New("provider, agent, scanner and cache are required")
	}

	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, erro.Wrap(err, "failed to create ants pool")
	}

	return &Reviewer{
		provider: deps.Provider,
		agent:    deps.Agent,
		scanner:  deps.Scanner,
		cache:    deps.Cache,
		store:    deps.Store,
		usage:    deps.Usage,
		notifier: deps.Notifier,
		poster:   NewPoster(deps.Provider, cfg.PostRate, cfg.PostBurst),
		pool:     pool,
		headers:  prompts.Language(cfg.Language).Headers,
		inflight: abstract.NewSafeMap[string, time.Time](),
		now:      time.Now,
		cfg:      cfg,
		log:      logze.With("component", "reviewer"),
	}, nil
}

// Close waits for running reviews up to the timeout and releases the pool.
func (s *Reviewer) Close(timeout time.Duration) error {
	return s.pool.ReleaseTimeout(timeout)
}

// HandleEvent routes a webhook event. Reviews and replies run in the pool,
// the call returns as soon as the task is queued. When every worker is busy
// the event is rejected with model.ErrQueueFull so the provider can redeliver it.
func (s *Reviewer) HandleEvent(ctx context.Context, event *model.CodeEvent) error {
	if event == nil {
		return nil
	}
	log := s.log.WithFields(
		"event_type", event.Type,
		"action", event.Action,
		"project_id", event.ProjectID,
		"user", event.User.Username,
	)

	// webhook request context ends with the response
	ctx = context.WithoutCancel(ctx)

	switch {
	case s.provider.IsMergeRequestEvent(event) && event.IsReviewTrigger():
		mr := event.MergeRequest
		key := inflightKey(event.ProjectID, mr)
		if !s.markInflight(key) {
			log.Info("review of this commit is already running, skipping", "mr_iid", mr.IID)
			return nil
		}

		log.Info("queueing review", "mr_iid", mr.IID, "commit_sha", lang.TruncateString(mr.SHA, 8))
		err := s.pool.Submit(func() {
			defer s.inflight.Delete(key)
			if _, err := s.ReviewMergeRequest(ctx, event.ProjectID, mr); err != nil {
				log.Err(err, "review failed", "mr_iid", mr.IID)
			}
		})
		if err != nil {
			s.inflight.Delete(key)
			return submitError(err, "submit review")
		}
		return nil

	case s.provider.IsCommentEvent(event):
		err := s.pool.Submit(func() {
			if err := s.handleCommentEvent(ctx, event); err != nil {
				log.Err(err, "failed to handle comment")
			}
		})
		if err != nil {
			return submitError(err, "submit reply")
		}
		return nil

	default:
		log.DebugIf(s.cfg.Verbose, "event ignored")
		return nil
	}
}

func submitError(err error, msg string) error {
	if errm.Is(err, ants.ErrPoolOverload) {
		return errm.Wrap(model.ErrQueueFull, msg)
	}
	return errm.Wrap(err, msg)
}

func inflightKey(projectID string, mr *model.MergeRequest) string {
	return projectID + ":" + strconv.Itoa(mr.IID) + ":" + mr.SHA
}

func (s *Reviewer) markInflight(key string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	if _, ok := s.inflight.Lookup(key); ok {
		return false
	}
	s.inflight.Set(key, s.now())
	return true
}

// reviewRun is the mutable state of one review
type reviewRun struct {
	review  *model.Review
	mr      *model.MergeRequest
	target  Target
	reports []*fileReport
	posted  int
	failed  int
	log     logze.Logger
}

// ReviewMergeRequest runs the review state machine synchronously.
// The returned review is in a terminal state. The error is set only when the review failed.
func (s *Reviewer) ReviewMergeRequest(ctx context.Context, projectID string, mr *model.MergeRequest) (*model.Review, error) {
	if mr == nil {
		return nil, ErrNilMergeRequest
	}
	timer := abstract.StartTimer()

	now := s.now()
	review := &model.Review{
		ID:                uuid.NewString(),
		ProjectID:         projectID,
		PullRequestNumber: mr.IID,
		HeadSHA:           mr.SHA,
		Status:            model.ReviewStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	log := s.log.WithFields(
		"review_id", review.ID,
		"project_id", projectID,
		"mr_iid", mr.IID,
		"branch_from", mr.SourceBranch,
		"branch_to", mr.TargetBranch,
	)
	log.Infof("starting merge request review: %s", mr.Title)

	if s.store != nil {
		if err := s.store.CreateReview(ctx, review); err != nil {
			log.Err(err, "failed to persist review")
		}
	}
	s.transition(ctx, review, model.ReviewStatusInProgress, log)

	mr, err := s.resolveCommitRefs(ctx, projectID, mr)
	if err != nil {
		return s.fail(ctx, review, errm.Wrap(err, "resolve commit refs"), log)
	}
	review.HeadSHA = mr.SHA

	files, err := s.provider.ListChangedFiles(ctx, projectID, mr.IID)
	if err != nil {
		return s.fail(ctx, review, errm.Wrap(err, "list changed files"), log)
	}
	review.FilesChanged = len(files)

	run := &reviewRun{
		review: review,
		mr:     mr,
		target: Target{ReviewID: review.ID, ProjectID: projectID, IID: mr.IID, Refs: mr.CommitRefs()},
		log:    log,
	}

	for _, file := range filterFiles(files, s.cfg.Filter, log, s.cfg.Verbose) {
		s.reviewFile(ctx, run, file)
	}

	if err := s.postReports(ctx, run); err != nil {
		return s.fail(ctx, review, errm.Wrap(err, "post summary"), log)
	}

	s.saveAnalysis(ctx, run, timer.ElapsedTime())
	s.transition(ctx, review, model.ReviewStatusCompleted, log)

	log.Info("review completed",
		"files_changed", review.FilesChanged,
		"files_reviewed", len(run.reports),
		"comments_posted", run.posted,
		"comments_failed", run.failed,
		"elapsed_time", timer.ElapsedTime().String(),
	)

	return review, nil
}

// resolveCommitRefs fetches the merge request again when webhook payload lacks commit SHAs.
// A review never starts without the full head, base and start triple.
func (s *Reviewer) resolveCommitRefs(ctx context.Context, projectID string, mr *model.MergeRequest) (*model.MergeRequest, error) {
	if mr.CommitRefs().IsComplete() {
		return mr, nil
	}

	fresh, err := s.provider.GetMergeRequest(ctx, projectID, mr.IID)
	if err != nil {
		return nil, errm.Wrap(err, "get merge request", "mr_iid", mr.IID)
	}

	merged := *mr
	merged.SHA = lang.Check(fresh.SHA, mr.SHA)
	merged.BaseSHA = lang.Check(fresh.BaseSHA, mr.BaseSHA)
	merged.StartSHA = lang.Check(fresh.StartSHA, mr.StartSHA)
	merged.Title = lang.Check(mr.Title, fresh.Title)
	merged.Description = lang.Check(mr.Description, fresh.Description)

	switch {
	case merged.SHA == "":
		return nil, ErrMissingHeadSHA
	case !merged.CommitRefs().IsComplete():
		return nil, errm.Wrap(ErrIncompleteCommitRefs, "after refetch",
			"base_sha", merged.BaseSHA, "start_sha", merged.StartSHA)
	}
	return &merged, nil
}

// postReports posts the summary and the security report. A panic while
// building either one fails the review before anything is posted.
func (s *Reviewer) postReports(ctx context.Context, run *reviewRun) (err error) {
	var summary, security string
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errm.Errorf("panic while building summary: %v", r)
			}
		}()
		summary = buildSummary(s.headers, run.reports)
		security = buildSecurityReport(s.headers, severeFindings(run.reports))
	}()
	if err != nil {
		return err
	}

	s.postGeneral(ctx, run, model.CommentKindSummary, summary)
	if security != "" {
		s.postGeneral(ctx, run, model.CommentKindSecurity, security)
	}
	return nil
}

func (s *Reviewer) postGeneral(ctx context.Context, run *reviewRun, kind model.CommentKind, body string) {
	posted, err := s.poster.PostGeneral(ctx, run.target, kind, model.GeneralComment{Body: body})
	if err != nil {
		run.failed++
		run.log.Err(err, "failed to post comment", "kind", kind)
		return
	}
	run.posted++
	s.saveComment(ctx, run, posted)
}

func (s *Reviewer) saveComment(ctx context.Context, run *reviewRun, posted model.PostedComment) {
	run.review.Comments = append(run.review.Comments, posted)
	if s.store == nil {
		return
	}
	if err := s.store.SaveComment(ctx, posted); err != nil {
		run.log.Err(err, "failed to persist comment", "external_id", posted.ExternalCommentID)
	}
}

func (s *Reviewer) saveAnalysis(ctx context.Context, run *reviewRun, elapsed time.Duration) {
	analysis := model.Analysis{
		ReviewID:          run.review.ID,
		ProjectID:         run.review.ProjectID,
		PullRequestNumber: run.review.PullRequestNumber,
		FilesReviewed:     len(run.reports),
		CommentsPosted:    run.posted,
		CommentsFailed:    run.failed,
		SeverityCounts:    severityCounts(run.reports),
		SecurityFindings:  len(severeFindings(run.reports)),
		Duration:          elapsed,
		CreatedAt:         s.now(),
	}
	for _, r := range run.reports {
		if r.Cached {
			analysis.FilesCached++
		}
		if r.hasIssues() {
			analysis.FilesWithIssues++
		}
		analysis.CommentsRejected += r.Rejected
	}

	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, analysis); err != nil {
			run.log.Err(err, "failed to persist analysis")
		}
	}
	if s.usage != nil {
		if err := s.usage.IncrementReviews(ctx, run.review.ProjectID, analysis.CreatedAt); err != nil {
			run.log.Err(err, "failed to increment usage")
		}
	}
}

func (s *Reviewer) transition(ctx context.Context, review *model.Review, to model.ReviewStatus, log logze.Logger) {
	if err := review.Transition(to, s.now()); err != nil {
		log.Err(err, "invalid status transition")
		return
	}
	if s.store == nil {
		return
	}
	if err := s.store.UpdateReviewStatus(ctx, review); err != nil {
		log.Err(err, "failed to persist review status", "status", to)
	}
}

func (s *Reviewer) fail(ctx context.Context, review *model.Review, reason error, log logze.Logger) (*model.Review, error) {
	review.Error = reason.Error()
	s.transition(ctx, review, model.ReviewStatusFailed, log)
	log.Err(reason, "review failed")

	if s.notifier != nil {
		if err := s.notifier.NotifyFailure(ctx, review, reason); err != nil {
			log.Err(err, "failed to send failure notification")
		}
	}
	return review, reason
}
