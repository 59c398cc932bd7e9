package model

import (
	"time"

	"github.com/maxbolgarin/errm"
)

// ReviewStatus is the state of a review run
type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "pending"
	ReviewStatusInProgress ReviewStatus = "in_progress"
	ReviewStatusCompleted  ReviewStatus = "completed"
	ReviewStatusFailed     ReviewStatus = "failed"
)

var reviewStatusOrder = map[ReviewStatus]int{
	ReviewStatusPending:    0,
	ReviewStatusInProgress: 1,
	ReviewStatusCompleted:  2,
	ReviewStatusFailed:     2,
}

// IsTerminal reports if no further transition is allowed.
func (s ReviewStatus) IsTerminal() bool {
	return s == ReviewStatusCompleted || s == ReviewStatusFailed
}

// ErrInvalidTransition is returned when a review status would move backwards or leave a terminal state.
var ErrInvalidTransition = errm.New("invalid review status transition")

// ErrQueueFull is returned when every review worker is busy and the event was not accepted.
var ErrQueueFull = errm.New("review queue is full")

// Review is one review attempt of a merge request
type Review struct {
	ID                string
	ProjectID         string
	PullRequestNumber int
	HeadSHA           string
	Status            ReviewStatus
	FilesChanged      int
	Comments          []PostedComment
	Error             string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// Transition moves the review forward. Backward moves and moves out of a terminal state fail.
func (r *Review) Transition(to ReviewStatus, now time.Time) error {
	from := r.Status
	if from.IsTerminal() {
		return errm.Wrap(ErrInvalidTransition, "review is in terminal state", "from", from, "to", to)
	}
	next, ok := reviewStatusOrder[to]
	if !ok || next <= reviewStatusOrder[from] {
		return errm.Wrap(ErrInvalidTransition, "status must move forward", "from", from, "to", to)
	}
	r.Status = to
	r.UpdatedAt = now
	if to.IsTerminal() {
		r.CompletedAt = now
	}
	return nil
}

// CommentKind describes how a comment ended up on the merge request
type CommentKind string

const (
	CommentKindInline   CommentKind = "inline"
	CommentKindFallback CommentKind = "fallback"
	CommentKindGeneral  CommentKind = "general"
	CommentKindSummary  CommentKind = "summary"
	CommentKindSecurity CommentKind = "security"
	CommentKindReply    CommentKind = "reply"
)

// PostedComment is a persisted record of a comment created by the bot
type PostedComment struct {
	ReviewID          string
	ProjectID         string
	PullRequestNumber int
	ExternalCommentID string
	Kind              CommentKind
	FilePath          string
	Line              int
	Severity          Severity
	Body              string
	CreatedAt         time.Time
}

// Analysis is the aggregate record persisted when a review completes
type Analysis struct {
	ReviewID          string
	ProjectID         string
	PullRequestNumber int
	FilesReviewed     int
	FilesCached       int
	FilesWithIssues   int
	CommentsPosted    int
	CommentsFailed    int
	CommentsRejected  int
	SeverityCounts    map[Severity]int
	SecurityFindings  int
	Duration          time.Duration
	CreatedAt         time.Time
}
