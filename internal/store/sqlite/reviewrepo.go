package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
)

var (
	_ interfaces.ReviewStore  = (*ReviewRepo)(nil)
	_ interfaces.UsageCounter = (*ReviewRepo)(nil)
)

// ReviewRepo persists reviews, their posted comments, analyses and usage.
type ReviewRepo struct {
	db *DB
}

func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) CreateReview(ctx context.Context, review *model.Review) error {
	const query = `
		INSERT INTO reviews (id, project_id, pr_number, head_sha, status, files_changed, error, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		review.ID, review.ProjectID, review.PullRequestNumber, review.HeadSHA, string(review.Status),
		review.FilesChanged, review.Error, toMillis(review.CreatedAt), toMillis(review.UpdatedAt), toMillis(review.CompletedAt),
	)
	if err != nil {
		return errm.Wrap(err, "insert review", "id", review.ID)
	}
	return nil
}

// UpdateReviewStatus stores the current status, head SHA, file count and error of the review.
func (r *ReviewRepo) UpdateReviewStatus(ctx context.Context, review *model.Review) error {
	const query = `
		UPDATE reviews
		SET status = ?, head_sha = ?, files_changed = ?, error = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		string(review.Status), review.HeadSHA, review.FilesChanged, review.Error,
		toMillis(review.UpdatedAt), toMillis(review.CompletedAt), review.ID,
	)
	if err != nil {
		return errm.Wrap(err, "update review", "id", review.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errm.Errorf("review %s not found", review.ID)
	}
	return nil
}

// GetReview returns the review with its posted comments, or nil if it does not exist.
func (r *ReviewRepo) GetReview(ctx context.Context, id string) (*model.Review, error) {
	const query = `
		SELECT id, project_id, pr_number, head_sha, status, files_changed, error, created_at, updated_at, completed_at
		FROM reviews
		WHERE id = ?
	`

	review, err := scanReview(r.db.Reader.QueryRowContext(ctx, query, id))
	if errm.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errm.Wrap(err, "query review", "id", id)
	}

	review.Comments, err = r.commentsByReview(ctx, id)
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (r *ReviewRepo) SaveComment(ctx context.Context, c model.PostedComment) error {
	const query = `
		INSERT INTO review_comments (review_id, project_id, pr_number, external_id, kind, file_path, line, severity, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		nullIfEmpty(c.ReviewID), c.ProjectID, c.PullRequestNumber, c.ExternalCommentID, string(c.Kind),
		c.FilePath, c.Line, string(c.Severity), c.Body, toMillis(c.CreatedAt),
	)
	if err != nil {
		return errm.Wrap(err, "insert comment", "external_id", c.ExternalCommentID)
	}
	return nil
}

// FindCommentByExternalID returns nil without error if the comment was not posted by us.
func (r *ReviewRepo) FindCommentByExternalID(ctx context.Context, projectID, externalID string) (*model.PostedComment, error) {
	const query = `
		SELECT review_id, project_id, pr_number, external_id, kind, file_path, line, severity, body, created_at
		FROM review_comments
		WHERE project_id = ? AND external_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	c, err := scanComment(r.db.Reader.QueryRowContext(ctx, query, projectID, externalID))
	if errm.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errm.Wrap(err, "query comment", "external_id", externalID)
	}
	return c, nil
}

func (r *ReviewRepo) commentsByReview(ctx context.Context, reviewID string) ([]model.PostedComment, error) {
	const query = `
		SELECT review_id, project_id, pr_number, external_id, kind, file_path, line, severity, body, created_at
		FROM review_comments
		WHERE review_id = ?
		ORDER BY id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, reviewID)
	if err != nil {
		return nil, errm.Wrap(err, "query comments", "review_id", reviewID)
	}
	defer rows.Close()

	var out []model.PostedComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, errm.Wrap(err, "scan comment")
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errm.Wrap(err, "iterate comments")
	}
	return out, nil
}

func (r *ReviewRepo) SaveAnalysis(ctx context.Context, a model.Analysis) error {
	const query = `
		INSERT INTO review_analyses (
			review_id, project_id, pr_number, files_reviewed, files_cached, files_with_issues,
			comments_posted, comments_failed, comments_rejected, severity_counts, security_findings,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(review_id) DO UPDATE SET
			files_reviewed = excluded.files_reviewed,
			files_cached = excluded.files_cached,
			files_with_issues = excluded.files_with_issues,
			comments_posted = excluded.comments_posted,
			comments_failed = excluded.comments_failed,
			comments_rejected = excluded.comments_rejected,
			severity_counts = excluded.severity_counts,
			security_findings = excluded.security_findings,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at
	`

	counts, err := json.MarshalToString(a.SeverityCounts)
	if err != nil {
		return errm.Wrap(err, "encode severity counts")
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		a.ReviewID, a.ProjectID, a.PullRequestNumber, a.FilesReviewed, a.FilesCached, a.FilesWithIssues,
		a.CommentsPosted, a.CommentsFailed, a.CommentsRejected, counts, a.SecurityFindings,
		a.Duration.Milliseconds(), toMillis(a.CreatedAt),
	)
	if err != nil {
		return errm.Wrap(err, "upsert analysis", "review_id", a.ReviewID)
	}
	return nil
}

// GetAnalysis returns nil without error if the review has no analysis.
func (r *ReviewRepo) GetAnalysis(ctx context.Context, reviewID string) (*model.Analysis, error) {
	const query = `
		SELECT review_id, project_id, pr_number, files_reviewed, files_cached, files_with_issues,
		       comments_posted, comments_failed, comments_rejected, severity_counts, security_findings,
		       duration_ms, created_at
		FROM review_analyses
		WHERE review_id = ?
	`

	var (
		a                   model.Analysis
		counts              string
		durationMs, created int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, reviewID).Scan(
		&a.ReviewID, &a.ProjectID, &a.PullRequestNumber, &a.FilesReviewed, &a.FilesCached, &a.FilesWithIssues,
		&a.CommentsPosted, &a.CommentsFailed, &a.CommentsRejected, &counts, &a.SecurityFindings,
		&durationMs, &created,
	)
	if errm.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errm.Wrap(err, "query analysis", "review_id", reviewID)
	}
	if err := json.UnmarshalFromString(counts, &a.SeverityCounts); err != nil {
		return nil, errm.Wrap(err, "decode severity counts")
	}
	a.Duration = time.Duration(durationMs) * time.Millisecond
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

// IncrementReviews adds one completed review to the project's monthly counter.
func (r *ReviewRepo) IncrementReviews(ctx context.Context, projectID string, at time.Time) error {
	const query = `
		INSERT INTO usage_counters (project_id, period, reviews)
		VALUES (?, ?, 1)
		ON CONFLICT(project_id, period) DO UPDATE SET reviews = reviews + 1
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, projectID, usagePeriod(at)); err != nil {
		return errm.Wrap(err, "increment usage", "project_id", projectID)
	}
	return nil
}

// ReviewCount returns the number of completed reviews of the project in the month of at.
func (r *ReviewRepo) ReviewCount(ctx context.Context, projectID string, at time.Time) (int, error) {
	const query = `SELECT reviews FROM usage_counters WHERE project_id = ? AND period = ?`

	var n int
	err := r.db.Reader.QueryRowContext(ctx, query, projectID, usagePeriod(at)).Scan(&n)
	if errm.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errm.Wrap(err, "query usage", "project_id", projectID)
	}
	return n, nil
}

func usagePeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func scanReview(s scanner) (*model.Review, error) {
	var (
		review                        model.Review
		status                        string
		created, updated, completedAt int64
	)
	err := s.Scan(
		&review.ID, &review.ProjectID, &review.PullRequestNumber, &review.HeadSHA, &status,
		&review.FilesChanged, &review.Error, &created, &updated, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	review.Status = model.ReviewStatus(status)
	review.CreatedAt = fromMillis(created)
	review.UpdatedAt = fromMillis(updated)
	review.CompletedAt = fromMillis(completedAt)
	return &review, nil
}

func scanComment(s scanner) (*model.PostedComment, error) {
	var (
		c              model.PostedComment
		reviewID       sql.NullString
		kind, severity string
		created        int64
	)
	err := s.Scan(
		&reviewID, &c.ProjectID, &c.PullRequestNumber, &c.ExternalCommentID, &kind,
		&c.FilePath, &c.Line, &severity, &c.Body, &created,
	)
	if err != nil {
		return nil, err
	}
	c.ReviewID = reviewID.String
	c.Kind = model.CommentKind(kind)
	c.Severity = model.Severity(severity)
	c.CreatedAt = fromMillis(created)
	return &c, nil
}
