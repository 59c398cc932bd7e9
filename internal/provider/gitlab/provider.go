package gitlab

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"github.com/maxbolgarin/revline/internal/reviewer/diffparser"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const (
	defaultBaseURL = "https://gitlab.com"
	perPage        = 100
)

var _ interfaces.CodeProvider = (*Provider)(nil)

var (
	ErrMissingCommitRefs = errm.New("base, start and head commit sha are required for inline comments")
	ErrInvalidToken      = errm.New("invalid webhook token")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Provider implements the CodeProvider interface for GitLab
type Provider struct {
	client *gitlab.Client
	config model.ProviderConfig
	log    logze.Logger
}

// New creates a new GitLab provider
func New(config model.ProviderConfig, opts ...gitlab.ClientOptionFunc) (*Provider, error) {
	if config.Token == "" {
		return nil, errm.New("GitLab token is required")
	}

	opts = append([]gitlab.ClientOptionFunc{gitlab.WithBaseURL(lang.Check(config.BaseURL, defaultBaseURL))}, opts...)
	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, errm.Wrap(err, "failed to create GitLab client")
	}

	return &Provider{
		client: client,
		config: config,
		log:    logze.With("provider", "gitlab", "component", "provider"),
	}, nil
}

// ValidateWebhook compares the X-Gitlab-Token header with the configured secret
func (p *Provider) ValidateWebhook(_ []byte, token string) error {
	if p.config.WebhookSecret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.config.WebhookSecret)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// ParseWebhookEvent parses merge_request and note hooks.
// Anything else is returned as an event of type other.
func (p *Provider) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var data gitlabPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errm.Wrap(err, "failed to parse GitLab webhook payload")
	}

	attrs := data.ObjectAttributes
	event := &model.CodeEvent{
		Type:      model.EventTypeOther,
		Action:    model.ActionOther,
		RawAction: attrs.Action,
		ProjectID: strconv.Itoa(data.Project.ID),
		User:      convertUser(data.User),
	}

	switch data.ObjectKind {
	case "merge_request":
		event.Type = model.EventTypeMergeRequest
		event.Action = normalizeAction(attrs.Action, attrs.OldRev)
		event.MergeRequest = convertHookMergeRequest(attrs.gitlabMergeRequest, data.Project.WebURL)

	case "note":
		if attrs.NoteableType != "MergeRequest" || data.MergeRequest == nil {
			return event, nil
		}
		event.Type = model.EventTypeComment
		event.MergeRequest = convertHookMergeRequest(*data.MergeRequest, data.Project.WebURL)
		event.Comment = &model.Comment{
			ID:       strconv.Itoa(attrs.ID),
			ParentID: attrs.DiscussionID,
			Body:     attrs.Note,
			Author:   event.User,
		}
		if attrs.Position != nil {
			event.Comment.FilePath = attrs.Position.NewPath
			event.Comment.Line = attrs.Position.NewLine
			event.Comment.IsInline = true
		}
	}

	return event, nil
}

// normalizeAction maps hook actions. An update counts as a push only when oldrev is set,
// title or label edits come without it.
func normalizeAction(action, oldRev string) model.Action {
	switch action {
	case "open", "reopen":
		return model.ActionOpened
	case "update":
		if oldRev != "" {
			return model.ActionSynchronize
		}
		return model.ActionOther
	case "close", "merge":
		return model.ActionClosed
	default:
		return model.ActionOther
	}
}

// IsMergeRequestEvent reports if the event is a merge request event not sent by the bot
func (p *Provider) IsMergeRequestEvent(event *model.CodeEvent) bool {
	if event == nil || event.Type != model.EventTypeMergeRequest || event.MergeRequest == nil {
		return false
	}
	if p.isBot(event.User.Username) {
		p.log.Debug("ignoring event from bot user")
		return false
	}
	return true
}

// IsCommentEvent reports if the event is a note on a merge request
func (p *Provider) IsCommentEvent(event *model.CodeEvent) bool {
	return event != nil && event.Type == model.EventTypeComment && event.Comment != nil && event.MergeRequest != nil
}

func (p *Provider) isBot(username string) bool {
	return p.config.BotUsername != "" && strings.EqualFold(username, p.config.BotUsername)
}

// GetMergeRequest retrieves detailed information about a merge request including diff refs
func (p *Provider) GetMergeRequest(ctx context.Context, projectID string, mrIID int) (*model.MergeRequest, error) {
	mr, _, err := p.client.MergeRequests.GetMergeRequest(projectID, mrIID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, errm.Wrap(err, "failed to get merge request from GitLab")
	}

	out := &model.MergeRequest{
		ID:           strconv.Itoa(mr.ID),
		IID:          mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		URL:          mr.WebURL,
		State:        mr.State,
		SHA:          lang.Check(mr.DiffRefs.HeadSha, mr.SHA),
		BaseSHA:      mr.DiffRefs.BaseSha,
		StartSHA:     mr.DiffRefs.StartSha,
		CreatedAt:    lang.Deref(mr.CreatedAt),
		UpdatedAt:    lang.Deref(mr.UpdatedAt),
	}
	if mr.Author != nil {
		out.Author = model.User{ID: strconv.Itoa(mr.Author.ID), Username: mr.Author.Username, Name: mr.Author.Name}
	}
	return out, nil
}

// ListOpenMergeRequests lists all opened merge requests of a project
func (p *Provider) ListOpenMergeRequests(ctx context.Context, projectID string) ([]*model.MergeRequest, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
	}

	var result []*model.MergeRequest
	for {
		mrs, resp, err := p.client.MergeRequests.ListProjectMergeRequests(projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, errm.Wrap(err, "failed to list merge requests", "page", opts.Page)
		}

		for _, mr := range mrs {
			item := &model.MergeRequest{
				ID:           strconv.Itoa(mr.ID),
				IID:          mr.IID,
				Title:        mr.Title,
				Description:  mr.Description,
				SourceBranch: mr.SourceBranch,
				TargetBranch: mr.TargetBranch,
				URL:          mr.WebURL,
				State:        mr.State,
				SHA:          mr.SHA,
				CreatedAt:    lang.Deref(mr.CreatedAt),
				UpdatedAt:    lang.Deref(mr.UpdatedAt),
			}
			if mr.Author != nil {
				item.Author = model.User{ID: strconv.Itoa(mr.Author.ID), Username: mr.Author.Username, Name: mr.Author.Name}
			}
			result = append(result, item)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// ListChangedFiles retrieves the diffs of a merge request page by page
func (p *Provider) ListChangedFiles(ctx context.Context, projectID string, mrIID int) ([]*model.FileChange, error) {
	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
	}

	var result []*model.FileChange
	for {
		diffs, resp, err := p.client.MergeRequests.ListMergeRequestDiffs(projectID, mrIID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, errm.Wrap(err, "failed to list merge request diffs", "page", opts.Page)
		}
		for _, d := range diffs {
			result = append(result, convertDiff(d))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

func convertDiff(d *gitlab.MergeRequestDiff) *model.FileChange {
	file := &model.FileChange{
		Filename: d.NewPath,
		Patch:    d.Diff,
		Status:   model.FileStatusModified,
	}
	switch {
	case d.NewFile:
		file.Status = model.FileStatusAdded
	case d.DeletedFile:
		file.Status = model.FileStatusRemoved
	case d.RenamedFile:
		file.Status = model.FileStatusRenamed
	}
	if d.OldPath != d.NewPath {
		file.OldFilename = d.OldPath
	}

	// GitLab reports no line stats, count them from the patch
	if d.Diff != "" {
		parsed := diffparser.Parse(d.Diff)
		file.Additions = len(parsed.AddedLines())
		file.Deletions = len(parsed.DeletedLines())
	}
	return file
}

// GetFileContent retrieves the raw content of a file at a specific ref
func (p *Provider) GetFileContent(ctx context.Context, projectID, filePath, ref string) (string, error) {
	raw, _, err := p.client.RepositoryFiles.GetRawFile(projectID, filePath, &gitlab.GetRawFileOptions{
		Ref: gitlab.Ptr(ref),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", errm.Wrap(err, "failed to get file content from GitLab", "path", filePath)
	}
	return string(raw), nil
}

// PostInlineComment starts a positioned discussion. GitLab needs the full commit triple,
// the returned id is the discussion id so replies can be added to it.
func (p *Provider) PostInlineComment(ctx context.Context, projectID string, mrIID int, comment model.InlineComment) (string, error) {
	if !comment.Refs.IsComplete() {
		return "", ErrMissingCommitRefs
	}

	position := &gitlab.PositionOptions{
		BaseSHA:      gitlab.Ptr(comment.Refs.BaseSHA),
		StartSHA:     gitlab.Ptr(comment.Refs.StartSHA),
		HeadSHA:      gitlab.Ptr(comment.Refs.HeadSHA),
		PositionType: gitlab.Ptr("text"),
		NewPath:      gitlab.Ptr(comment.Path),
		OldPath:      gitlab.Ptr(lang.Check(comment.OldPath, comment.Path)),
		NewLine:      gitlab.Ptr(comment.Line),
	}

	discussion, _, err := p.client.Discussions.CreateMergeRequestDiscussion(projectID, mrIID, &gitlab.CreateMergeRequestDiscussionOptions{
		Body:     gitlab.Ptr(comment.Body),
		Position: position,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", errm.Wrap(err, "failed to create merge request discussion", "path", comment.Path, "line", comment.Line)
	}

	return discussion.ID, nil
}

// PostGeneralComment starts a discussion without position
func (p *Provider) PostGeneralComment(ctx context.Context, projectID string, mrIID int, comment model.GeneralComment) (string, error) {
	discussion, _, err := p.client.Discussions.CreateMergeRequestDiscussion(projectID, mrIID, &gitlab.CreateMergeRequestDiscussionOptions{
		Body: gitlab.Ptr(comment.Text()),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", errm.Wrap(err, "failed to create merge request discussion")
	}

	return discussion.ID, nil
}

// ReplyToComment adds a note to the discussion with the given id
func (p *Provider) ReplyToComment(ctx context.Context, projectID string, mrIID int, parentID, body string) (string, error) {
	note, _, err := p.client.Discussions.AddMergeRequestDiscussionNote(projectID, mrIID, parentID, &gitlab.AddMergeRequestDiscussionNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", errm.Wrap(err, "failed to reply to discussion", "discussion_id", parentID)
	}

	return strconv.Itoa(note.ID), nil
}

func convertUser(u gitlabUser) model.User {
	return model.User{
		ID:       strconv.Itoa(u.ID),
		Username: u.Username,
		Name:     u.Name,
	}
}

func convertHookMergeRequest(mr gitlabMergeRequest, projectURL string) *model.MergeRequest {
	return &model.MergeRequest{
		ID:            strconv.Itoa(mr.ID),
		IID:           mr.IID,
		Title:         mr.Title,
		Description:   mr.Description,
		SourceBranch:  mr.SourceBranch,
		TargetBranch:  mr.TargetBranch,
		Author:        model.User{ID: strconv.Itoa(mr.AuthorID)},
		RepositoryURL: projectURL,
		URL:           mr.URL,
		State:         mr.State,
		SHA:           mr.LastCommit.ID,
	}
}
