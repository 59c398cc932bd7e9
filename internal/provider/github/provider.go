package github

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v57/github"
	"github.com/gregjones/httpcache"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/model/interfaces"
	"golang.org/x/oauth2"
)

var _ interfaces.CodeProvider = (*Provider)(nil)

const (
	defaultBaseURL = "https://github.com"
	perPage        = 100
)

var (
	ErrInvalidProjectID = errm.New("invalid GitHub project ID format, expected 'owner/repo'")
	ErrMissingHeadSHA   = errm.New("head commit sha is required for inline comments")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Provider implements the CodeProvider interface for GitHub
type Provider struct {
	client *github.Client
	config model.ProviderConfig
	log    logze.Logger
}

// New creates a new GitHub provider
func New(config model.ProviderConfig) (*Provider, error) {
	if config.Token == "" {
		return nil, errm.New("GitHub token is required")
	}
	return NewWithHTTPClient(config, newHTTPClient(config.Token))
}

// NewWithHTTPClient creates a provider on top of a prepared http client.
// A BaseURL other than github.com is treated as GitHub Enterprise.
func NewWithHTTPClient(config model.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	client := github.NewClient(httpClient)

	if config.BaseURL != "" && strings.TrimSuffix(config.BaseURL, "/") != defaultBaseURL {
		var err error
		client, err = client.WithEnterpriseURLs(config.BaseURL, config.BaseURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create GitHub Enterprise client")
		}
	}

	return &Provider{
		client: client,
		config: config,
		log:    logze.With("provider", "github", "component", "provider"),
	}, nil
}

// newHTTPClient stacks secondary rate limit handling over ETag caching over token auth
func newHTTPClient(token string) *http.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		Base:   http.DefaultTransport,
	}
	return github_ratelimit.NewClient(cacheTransport)
}

// ValidateWebhook validates the X-Hub-Signature-256 header of a delivery
func (p *Provider) ValidateWebhook(payload []byte, signature string) error {
	if p.config.WebhookSecret == "" {
		return nil
	}
	if signature == "" {
		return errm.New("missing GitHub webhook signature")
	}
	if err := github.ValidateSignature(signature, payload, []byte(p.config.WebhookSecret)); err != nil {
		return errm.Wrap(err, "GitHub webhook signature verification failed")
	}
	return nil
}

// ParseWebhookEvent parses pull_request and pull_request_review_comment deliveries.
// Anything else is returned as an event of type other.
func (p *Provider) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var data githubPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errm.Wrap(err, "failed to parse GitHub webhook payload")
	}

	event := &model.CodeEvent{
		Type:      model.EventTypeOther,
		Action:    model.ActionOther,
		RawAction: data.Action,
		ProjectID: data.Repository.FullName,
		User:      convertUser(data.Sender),
	}
	if data.PullRequest == nil {
		return event, nil
	}

	pr := data.PullRequest
	event.MergeRequest = &model.MergeRequest{
		ID:            strconv.FormatInt(pr.ID, 10),
		IID:           pr.Number,
		Title:         pr.Title,
		Description:   pr.Body,
		SourceBranch:  pr.Head.Ref,
		TargetBranch:  pr.Base.Ref,
		Author:        convertUser(pr.User),
		RepositoryURL: data.Repository.HTMLURL,
		URL:           pr.HTMLURL,
		State:         pr.State,
		SHA:           pr.Head.SHA,
		BaseSHA:       pr.Base.SHA,
		StartSHA:      pr.Base.SHA,
	}

	if data.Comment != nil {
		event.Type = model.EventTypeComment
		event.Comment = &model.Comment{
			ID:       strconv.FormatInt(data.Comment.ID, 10),
			Body:     data.Comment.Body,
			FilePath: data.Comment.Path,
			Line:     data.Comment.Line,
			Author:   convertUser(data.Comment.User),
			IsInline: data.Comment.Path != "",
		}
		if data.Comment.InReplyToID > 0 {
			event.Comment.ParentID = strconv.FormatInt(data.Comment.InReplyToID, 10)
		}
		return event, nil
	}

	event.Type = model.EventTypeMergeRequest
	event.Action = normalizeAction(data.Action)
	return event, nil
}

func normalizeAction(action string) model.Action {
	switch action {
	case "opened", "reopened":
		return model.ActionOpened
	case "synchronize":
		return model.ActionSynchronize
	case "closed":
		return model.ActionClosed
	default:
		return model.ActionOther
	}
}

// IsMergeRequestEvent reports if the event is a pull request event not sent by the bot
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

// IsCommentEvent reports if the event is a review comment
func (p *Provider) IsCommentEvent(event *model.CodeEvent) bool {
	return event != nil && event.Type == model.EventTypeComment && event.Comment != nil && event.MergeRequest != nil
}

func (p *Provider) isBot(username string) bool {
	return p.config.BotUsername != "" && strings.EqualFold(username, p.config.BotUsername)
}

// GetMergeRequest retrieves detailed information about a pull request
func (p *Provider) GetMergeRequest(ctx context.Context, projectID string, mrIID int) (*model.MergeRequest, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return nil, err
	}

	pr, _, err := p.client.PullRequests.Get(ctx, owner, repo, mrIID)
	if err != nil {
		return nil, errm.Wrap(err, "failed to get pull request from GitHub")
	}

	return convertPullRequest(pr), nil
}

// ListOpenMergeRequests lists all open pull requests of a repository
func (p *Provider) ListOpenMergeRequests(ctx context.Context, projectID string) ([]*model.MergeRequest, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return nil, err
	}

	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var result []*model.MergeRequest
	for {
		prs, resp, err := p.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, errm.Wrap(err, "failed to list pull requests", "page", opts.Page)
		}
		for _, pr := range prs {
			result = append(result, convertPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// ListChangedFiles retrieves changed files of a pull request with their patches
func (p *Provider) ListChangedFiles(ctx context.Context, projectID string, mrIID int) ([]*model.FileChange, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: perPage}
	var result []*model.FileChange

	for {
		files, resp, err := p.client.PullRequests.ListFiles(ctx, owner, repo, mrIID, opts)
		if err != nil {
			return nil, errm.Wrap(err, "failed to list pull request files", "page", opts.Page)
		}
		for _, f := range files {
			result = append(result, convertFile(f))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

func convertFile(f *github.CommitFile) *model.FileChange {
	file := &model.FileChange{
		Filename:    f.GetFilename(),
		OldFilename: f.GetPreviousFilename(),
		Additions:   f.GetAdditions(),
		Deletions:   f.GetDeletions(),
		Patch:       f.GetPatch(),
	}

	switch f.GetStatus() {
	case "added":
		file.Status = model.FileStatusAdded
	case "removed":
		file.Status = model.FileStatusRemoved
	case "renamed":
		file.Status = model.FileStatusRenamed
	default:
		file.Status = model.FileStatusModified
	}

	// binary files come without a patch and without line stats
	file.IsBinary = file.Patch == "" && f.GetChanges() == 0 && !file.IsDeleted() && file.Status != model.FileStatusRenamed
	return file
}

// GetFileContent retrieves the content of a file at a specific ref
func (p *Provider) GetFileContent(ctx context.Context, projectID, filePath, ref string) (string, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return "", err
	}

	fileContent, _, _, err := p.client.Repositories.GetContents(ctx, owner, repo, filePath, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", errm.Wrap(err, "failed to get file content from GitHub", "path", filePath)
	}
	if fileContent == nil {
		return "", errm.New("path is a directory", "path", filePath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", errm.Wrap(err, "failed to decode file content", "path", filePath)
	}
	return content, nil
}

// PostInlineComment creates a review comment anchored to a line of the head commit
func (p *Provider) PostInlineComment(ctx context.Context, projectID string, mrIID int, comment model.InlineComment) (string, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return "", err
	}
	if comment.Refs.HeadSHA == "" {
		return "", ErrMissingHeadSHA
	}

	created, _, err := p.client.PullRequests.CreateComment(ctx, owner, repo, mrIID, &github.PullRequestComment{
		Body:     github.String(comment.Body),
		CommitID: github.String(comment.Refs.HeadSHA),
		Path:     github.String(comment.Path),
		Line:     github.Int(comment.Line),
		Side:     github.String(string(lang.Check(comment.Side, model.SideRight))),
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to create review comment", "path", comment.Path, "line", comment.Line)
	}

	return strconv.FormatInt(created.GetID(), 10), nil
}

// PostGeneralComment creates a conversation comment on a pull request
func (p *Provider) PostGeneralComment(ctx context.Context, projectID string, mrIID int, comment model.GeneralComment) (string, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return "", err
	}

	created, _, err := p.client.Issues.CreateComment(ctx, owner, repo, mrIID, &github.IssueComment{
		Body: github.String(comment.Text()),
	})
	if err != nil {
		return "", errm.Wrap(err, "failed to create pull request comment")
	}

	return strconv.FormatInt(created.GetID(), 10), nil
}

// ReplyToComment answers in the thread of a review comment
func (p *Provider) ReplyToComment(ctx context.Context, projectID string, mrIID int, parentID, body string) (string, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return "", err
	}
	parent, err := strconv.ParseInt(parentID, 10, 64)
	if err != nil {
		return "", errm.Wrap(err, "invalid comment ID", "comment_id", parentID)
	}

	created, _, err := p.client.PullRequests.CreateCommentInReplyTo(ctx, owner, repo, mrIID, body, parent)
	if err != nil {
		return "", errm.Wrap(err, "failed to reply to comment", "comment_id", parentID)
	}

	return strconv.FormatInt(created.GetID(), 10), nil
}

func splitProjectID(projectID string) (string, string, error) {
	owner, repo, ok := strings.Cut(projectID, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errm.Wrap(ErrInvalidProjectID, "split project id", "project_id", projectID)
	}
	return owner, repo, nil
}

func convertUser(u githubUser) model.User {
	return model.User{
		ID:       strconv.FormatInt(u.ID, 10),
		Username: u.Login,
		Name:     u.Name,
	}
}

func convertPullRequest(pr *github.PullRequest) *model.MergeRequest {
	return &model.MergeRequest{
		ID:           strconv.FormatInt(pr.GetID(), 10),
		IID:          pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		Author: model.User{
			ID:       strconv.FormatInt(pr.GetUser().GetID(), 10),
			Username: pr.GetUser().GetLogin(),
			Name:     pr.GetUser().GetName(),
		},
		RepositoryURL: pr.GetBase().GetRepo().GetHTMLURL(),
		URL:           pr.GetHTMLURL(),
		State:         pr.GetState(),
		CreatedAt:     pr.GetCreatedAt().Time,
		UpdatedAt:     pr.GetUpdatedAt().Time,
		SHA:           pr.GetHead().GetSHA(),
		BaseSHA:       pr.GetBase().GetSHA(),
		StartSHA:      pr.GetBase().GetSHA(),
	}
}
