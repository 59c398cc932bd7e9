package model

import (
	"time"
)

// ProviderConfig represents provider-specific configuration
type ProviderConfig struct {
	BaseURL       string
	Token         string
	WebhookSecret string
	BotUsername   string
}

// User represents a user across different providers
type User struct {
	ID       string
	Username string
	Name     string
}

// EventType is a normalized webhook event kind
type EventType string

const (
	EventTypeMergeRequest EventType = "merge_request"
	EventTypeComment      EventType = "comment"
	EventTypeOther        EventType = "other"
)

// Action is a normalized merge request action. Only opened and synchronize start a review.
type Action string

const (
	ActionOpened      Action = "opened"
	ActionSynchronize Action = "synchronize"
	ActionClosed      Action = "closed"
	ActionOther       Action = "other"
)

// CodeEvent represents a webhook event from any provider
type CodeEvent struct {
	Type         EventType
	Action       Action
	RawAction    string
	ProjectID    string
	MergeRequest *MergeRequest
	Comment      *Comment
	User         User
	Timestamp    time.Time
}

// IsReviewTrigger reports if the event should drive the review state machine.
func (e *CodeEvent) IsReviewTrigger() bool {
	if e == nil || e.Type != EventTypeMergeRequest || e.MergeRequest == nil {
		return false
	}
	return e.Action == ActionOpened || e.Action == ActionSynchronize
}

// MergeRequest represents a merge/pull request across different providers
type MergeRequest struct {
	ID            string
	IID           int
	Title         string
	Description   string
	SourceBranch  string
	TargetBranch  string
	Author        User
	RepositoryURL string
	URL           string
	State         string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// SHA is the head commit of the source branch.
	SHA      string
	BaseSHA  string
	StartSHA string
}

// CommitRefs returns the commit triple used to position inline comments.
func (mr *MergeRequest) CommitRefs() CommitRefs {
	return CommitRefs{HeadSHA: mr.SHA, BaseSHA: mr.BaseSHA, StartSHA: mr.StartSHA}
}

// CommitRefs holds the SHAs required by providers to anchor an inline comment.
type CommitRefs struct {
	HeadSHA  string
	BaseSHA  string
	StartSHA string
}

// IsComplete reports if all three SHAs are known.
func (r CommitRefs) IsComplete() bool {
	return r.HeadSHA != "" && r.BaseSHA != "" && r.StartSHA != ""
}

// FileStatus is the change status of a file in a merge request
type FileStatus string

const (
	FileStatusAdded    FileStatus = "added"
	FileStatusModified FileStatus = "modified"
	FileStatusRemoved  FileStatus = "removed"
	FileStatusRenamed  FileStatus = "renamed"
)

// FileChange represents changes in a single file
type FileChange struct {
	Filename    string
	OldFilename string
	Status      FileStatus
	Additions   int
	Deletions   int
	Patch       string
	IsBinary    bool

	// Content is the full new-side content when the provider returned it inline.
	// Otherwise ContentRef is the commit to fetch it from.
	Content    string
	ContentRef string
}

// IsDeleted reports if the file was removed by the merge request.
func (f *FileChange) IsDeleted() bool {
	return f.Status == FileStatusRemoved
}

// Comment represents a comment received from a provider
type Comment struct {
	ID       string
	ParentID string
	Body     string
	FilePath string
	Line     int
	Author   User
	IsInline bool

	CreatedAt time.Time
}
