package reviewer

import (
	"context"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"golang.org/x/time/rate"
)

// Target is the merge request comments are posted to
type Target struct {
	ReviewID  string
	ProjectID string
	IID       int
	Refs      model.CommitRefs
}

// Poster posts comments with a general comment fallback for inline failures.
// Calls are paced so a large review does not trip provider abuse limits.
type Poster struct {
	provider interfaces.CodeProvider
	limiter  *rate.Limiter
	now      func() time.Time
	log      logze.Logger
}

// NewPoster creates a poster. A non-positive perSecond disables pacing.
func NewPoster(provider interfaces.CodeProvider, perSecond float64, burst int) *Poster {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Poster{
		provider: provider,
		limiter:  rate.NewLimiter(limit, max(burst, 1)),
		now:      time.Now,
		log:      logze.With("component", "poster"),
	}
}

// PostLineComment posts an accepted comment inline. If the provider refuses the
// position it posts a general comment prefixed with path:line instead.
func (p *Poster) PostLineComment(ctx context.Context, t Target, file *model.FileChange, c model.LineComment) (model.PostedComment, error) {
	posted := model.PostedComment{
		ReviewID:          t.ReviewID,
		ProjectID:         t.ProjectID,
		PullRequestNumber: t.IID,
		FilePath:          file.Filename,
		Line:              c.Line,
		Severity:          c.Severity,
		Body:              c.Body,
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return posted, errm.Wrap(err, "wait for rate limiter")
	}

	id, inlineErr := p.provider.PostInlineComment(ctx, t.ProjectID, t.IID, model.InlineComment{
		Path:    file.Filename,
		OldPath: file.OldFilename,
		Line:    c.Line,
		Side:    model.SideRight,
		Body:    c.Body,
		Refs:    t.Refs,
	})
	if inlineErr == nil {
		posted.ExternalCommentID = id
		posted.Kind = model.CommentKindInline
		posted.CreatedAt = p.now()
		return posted, nil
	}

	p.log.Warn("inline comment rejected, posting general comment",
		"file", file.Filename, "line", c.Line, "error", inlineErr)

	if err := p.limiter.Wait(ctx); err != nil {
		return posted, errm.Wrap(err, "wait for rate limiter")
	}

	id, err := p.provider.PostGeneralComment(ctx, t.ProjectID, t.IID, model.GeneralComment{
		Body:     c.Body,
		FilePath: file.Filename,
		Line:     c.Line,
	})
	if err != nil {
		return posted, errm.Wrap(ErrPostFailed, "post comment", "file", file.Filename, "line", c.Line,
			"inline_error", inlineErr, "general_error", err)
	}

	posted.ExternalCommentID = id
	posted.Kind = model.CommentKindFallback
	posted.CreatedAt = p.now()
	return posted, nil
}

// PostGeneral posts a non-positional comment such as the summary.
func (p *Poster) PostGeneral(ctx context.Context, t Target, kind model.CommentKind, comment model.GeneralComment) (model.PostedComment, error) {
	posted := model.PostedComment{
		ReviewID:          t.ReviewID,
		ProjectID:         t.ProjectID,
		PullRequestNumber: t.IID,
		Kind:              kind,
		FilePath:          comment.FilePath,
		Line:              comment.Line,
		Body:              comment.Body,
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return posted, errm.Wrap(err, "wait for rate limiter")
	}

	id, err := p.provider.PostGeneralComment(ctx, t.ProjectID, t.IID, comment)
	if err != nil {
		return posted, errm.Wrap(err, "post general comment", "kind", kind)
	}

	posted.ExternalCommentID = id
	posted.CreatedAt = p.now()
	return posted, nil
}
