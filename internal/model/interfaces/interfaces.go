package interfaces

import (
	"context"
	"time"

	"github.com/maxbolgarin/revline/internal/model"
)

// CodeProvider defines the interface for different VCS providers (GitLab, GitHub)
type CodeProvider interface {
	// Webhook handling
	ValidateWebhook(payload []byte, authToken string) error
	ParseWebhookEvent(payload []byte) (*model.CodeEvent, error)
	IsMergeRequestEvent(event *model.CodeEvent) bool
	IsCommentEvent(event *model.CodeEvent) bool

	// MR/PR operations
	GetMergeRequest(ctx context.Context, projectID string, mrIID int) (*model.MergeRequest, error)
	ListOpenMergeRequests(ctx context.Context, projectID string) ([]*model.MergeRequest, error)
	ListChangedFiles(ctx context.Context, projectID string, mrIID int) ([]*model.FileChange, error)
	GetFileContent(ctx context.Context, projectID, filePath, ref string) (string, error)

	// Comments, each returns the provider id of the created comment
	PostInlineComment(ctx context.Context, projectID string, mrIID int, comment model.InlineComment) (string, error)
	PostGeneralComment(ctx context.Context, projectID string, mrIID int, comment model.GeneralComment) (string, error)
	ReplyToComment(ctx context.Context, projectID string, mrIID int, parentID, body string) (string, error)
}

// AIAgent defines the interface for AI code review agents
type AIAgent interface {
	// ReviewFile reviews a numbered diff. Malformed model output yields an empty result, not an error.
	ReviewFile(ctx context.Context, req model.FileReviewRequest) (*model.ReviewResult, error)
	// ReviewFileContent reviews a whole file when no diff is available, returning freeform markdown.
	ReviewFileContent(ctx context.Context, req model.FileReviewRequest) (string, error)
	GenerateCommentReply(ctx context.Context, originalComment, replyContext string) (string, error)
}

// AgentAPI defines the interface for calling LLM AI models
type AgentAPI interface {
	CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error)
}

// SecurityScanner finds secrets and insecure patterns in file content
type SecurityScanner interface {
	Scan(filename, content string) []model.Finding
	// Redact masks secrets in text that is sent to a third party.
	Redact(text string) string
}

// ReviewStore persists reviews, posted comments and analyses
type ReviewStore interface {
	CreateReview(ctx context.Context, review *model.Review) error
	UpdateReviewStatus(ctx context.Context, review *model.Review) error
	SaveComment(ctx context.Context, comment model.PostedComment) error
	FindCommentByExternalID(ctx context.Context, projectID, externalID string) (*model.PostedComment, error)
	SaveAnalysis(ctx context.Context, analysis model.Analysis) error
}

// UsageCounter counts completed reviews per project
type UsageCounter interface {
	IncrementReviews(ctx context.Context, projectID string, at time.Time) error
}

// Notifier reports failed reviews to an operator channel
type Notifier interface {
	NotifyFailure(ctx context.Context, review *model.Review, reason error) error
}
