package gitlab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "42"

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(model.ProviderConfig{
		BaseURL:       server.URL,
		Token:         "test-token",
		WebhookSecret: "s3cret",
		BotUsername:   "revline-bot",
	})
	require.NoError(t, err)
	return p
}

func TestValidateWebhook(t *testing.T) {
	p := newTestProvider(t, http.NotFoundHandler())

	assert.NoError(t, p.ValidateWebhook(nil, "s3cret"))
	assert.True(t, errm.Is(p.ValidateWebhook(nil, "wrong"), ErrInvalidToken))
	assert.True(t, errm.Is(p.ValidateWebhook(nil, ""), ErrInvalidToken))
}

func mergeRequestHook(action, oldRev, user string) string {
	return fmt.Sprintf(`{
		"object_kind": "merge_request",
		"user": {"id": 1, "username": %q},
		"project": {"id": 42, "path_with_namespace": "group/app", "web_url": "https://gitlab.com/group/app"},
		"object_attributes": {
			"id": 900, "iid": 7, "action": %q, "oldrev": %q, "state": "opened",
			"source_branch": "feature", "target_branch": "main", "title": "Add funcs",
			"url": "https://gitlab.com/group/app/-/merge_requests/7",
			"last_commit": {"id": "head1"}
		}
	}`, user, action, oldRev)
}

func TestParseWebhookEvent_MergeRequest(t *testing.T) {
	p := newTestProvider(t, http.NotFoundHandler())

	cases := []struct {
		action string
		oldRev string
		want   model.Action
	}{
		{"open", "", model.ActionOpened},
		{"reopen", "", model.ActionOpened},
		{"update", "abc123", model.ActionSynchronize},
		{"update", "", model.ActionOther},
		{"merge", "", model.ActionClosed},
		{"approved", "", model.ActionOther},
	}
	for _, tc := range cases {
		event, err := p.ParseWebhookEvent([]byte(mergeRequestHook(tc.action, tc.oldRev, "dev")))
		require.NoError(t, err)

		assert.Equal(t, model.EventTypeMergeRequest, event.Type)
		assert.Equal(t, tc.want, event.Action, tc.action)
		assert.Equal(t, testProject, event.ProjectID)
		assert.Equal(t, 7, event.MergeRequest.IID)
		assert.Equal(t, "head1", event.MergeRequest.SHA)
		assert.True(t, p.IsMergeRequestEvent(event))
	}

	event, err := p.ParseWebhookEvent([]byte(mergeRequestHook("open", "", "revline-bot")))
	require.NoError(t, err)
	assert.False(t, p.IsMergeRequestEvent(event))
}

func TestParseWebhookEvent_Note(t *testing.T) {
	p := newTestProvider(t, http.NotFoundHandler())

	payload := `{
		"object_kind": "note",
		"user": {"id": 2, "username": "dev"},
		"project": {"id": 42},
		"object_attributes": {
			"id": 501, "note": "why?", "noteable_type": "MergeRequest", "discussion_id": "disc1",
			"position": {"new_path": "main.go", "new_line": 3}
		},
		"merge_request": {"id": 900, "iid": 7, "title": "Add funcs", "last_commit": {"id": "head1"}}
	}`

	event, err := p.ParseWebhookEvent([]byte(payload))
	require.NoError(t, err)

	assert.True(t, p.IsCommentEvent(event))
	assert.False(t, p.IsMergeRequestEvent(event))
	assert.Equal(t, "501", event.Comment.ID)
	assert.Equal(t, "disc1", event.Comment.ParentID)
	assert.Equal(t, "main.go", event.Comment.FilePath)
	assert.Equal(t, 3, event.Comment.Line)
	assert.Equal(t, 7, event.MergeRequest.IID)

	issueNote := `{"object_kind": "note", "project": {"id": 42}, "object_attributes": {"id": 1, "noteable_type": "Issue"}}`
	event, err = p.ParseWebhookEvent([]byte(issueNote))
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeOther, event.Type)
	assert.False(t, p.IsCommentEvent(event))
}

func TestGetMergeRequest_DiffRefs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": 900, "iid": 7, "title": "Add funcs", "state": "opened", "sha": "head1",
			"source_branch": "feature", "target_branch": "main",
			"author": {"id": 1, "username": "dev"},
			"diff_refs": {"base_sha": "base1", "head_sha": "head1", "start_sha": "start1"}
		}`)
	})
	p := newTestProvider(t, mux)

	mr, err := p.GetMergeRequest(context.Background(), testProject, 7)
	require.NoError(t, err)

	assert.Equal(t, model.CommitRefs{HeadSHA: "head1", BaseSHA: "base1", StartSHA: "start1"}, mr.CommitRefs())
	assert.Equal(t, "dev", mr.Author.Username)
	assert.Equal(t, "main", mr.TargetBranch)
}

func TestListChangedFiles_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7/diffs", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 1 {
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[{"old_path": "main.go", "new_path": "main.go", "diff": "@@ -1,2 +1,3 @@\n a\n-b\n+c\n+d\n"}]`)
			return
		}
		fmt.Fprint(w, `[
			{"old_path": "old.go", "new_path": "new.go", "renamed_file": true, "diff": ""},
			{"old_path": "gone.go", "new_path": "gone.go", "deleted_file": true, "diff": "@@ -1 +0,0 @@\n-x\n"}
		]`)
	})
	p := newTestProvider(t, mux)

	files, err := p.ListChangedFiles(context.Background(), testProject, 7)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, model.FileStatusModified, files[0].Status)
	assert.Equal(t, 2, files[0].Additions)
	assert.Equal(t, 1, files[0].Deletions)
	assert.Empty(t, files[0].OldFilename)

	assert.Equal(t, model.FileStatusRenamed, files[1].Status)
	assert.Equal(t, "old.go", files[1].OldFilename)

	assert.True(t, files[2].IsDeleted())
}

func TestGetFileContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/repository/files/main.go/raw", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "head1", r.URL.Query().Get("ref"))
		fmt.Fprint(w, "package main\n")
	})
	p := newTestProvider(t, mux)

	content, err := p.GetFileContent(context.Background(), testProject, "main.go", "head1")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)
}

func TestPostInlineComment(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7/discussions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "disc1", "notes": [{"id": 5}]}`)
	})
	p := newTestProvider(t, mux)
	ctx := context.Background()

	id, err := p.PostInlineComment(ctx, testProject, 7, model.InlineComment{
		Path: "main.go",
		Line: 3,
		Body: "issue",
		Refs: model.CommitRefs{HeadSHA: "head1", BaseSHA: "base1", StartSHA: "start1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "disc1", id)

	position, ok := got["position"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "base1", position["base_sha"])
	assert.Equal(t, "start1", position["start_sha"])
	assert.Equal(t, "head1", position["head_sha"])
	assert.Equal(t, "text", position["position_type"])
	assert.Equal(t, "main.go", position["new_path"])
	assert.Equal(t, "main.go", position["old_path"])
	assert.Equal(t, float64(3), position["new_line"])

	_, err = p.PostInlineComment(ctx, testProject, 7, model.InlineComment{
		Path: "main.go", Line: 3, Refs: model.CommitRefs{HeadSHA: "head1"},
	})
	assert.True(t, errm.Is(err, ErrMissingCommitRefs))
}

func TestPostInlineComment_RejectedPosition(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7/discussions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message": "400 Bad request - Note {:line_code=>[\"can't be blank\"]}"}`)
	})
	p := newTestProvider(t, mux)

	_, err := p.PostInlineComment(context.Background(), testProject, 7, model.InlineComment{
		Path: "main.go", Line: 99, Body: "issue",
		Refs: model.CommitRefs{HeadSHA: "head1", BaseSHA: "base1", StartSHA: "start1"},
	})
	assert.Error(t, err)
}

func TestPostGeneralCommentAndReply(t *testing.T) {
	var general, reply map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7/discussions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &general))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "disc2", "notes": [{"id": 6}]}`)
	})
	mux.HandleFunc("/api/v4/projects/42/merge_requests/7/discussions/disc1/notes", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &reply))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 7}`)
	})
	p := newTestProvider(t, mux)
	ctx := context.Background()

	id, err := p.PostGeneralComment(ctx, testProject, 7, model.GeneralComment{Body: "issue", FilePath: "main.go", Line: 3})
	require.NoError(t, err)
	assert.Equal(t, "disc2", id)
	assert.Contains(t, general["body"], "main.go:3")
	assert.Nil(t, general["position"])

	id, err = p.ReplyToComment(ctx, testProject, 7, "disc1", "thanks")
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	assert.Equal(t, "thanks", reply["body"])
}
