package reviewer

import (
	"context"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/revline/internal/model"
)

// handleCommentEvent answers a developer reply to one of the bot comments
func (s *Reviewer) handleCommentEvent(ctx context.Context, event *model.CodeEvent) error {
	if event.Comment == nil || event.MergeRequest == nil {
		return errm.New("comment or merge request is nil in event")
	}
	comment := event.Comment
	log := s.log.WithFields(
		"project_id", event.ProjectID,
		"mr_iid", event.MergeRequest.IID,
		"comment_id", comment.ID,
		"comment_author", comment.Author.Username,
	)

	if s.isBot(event.User.Username) || s.isBot(comment.Author.Username) {
		log.DebugIf(s.cfg.Verbose, "ignoring own comment")
		return nil
	}
	if comment.ParentID == "" || strings.TrimSpace(comment.Body) == "" {
		log.DebugIf(s.cfg.Verbose, "comment is not a reply")
		return nil
	}
	if s.store == nil {
		return nil
	}

	parent, err := s.store.FindCommentByExternalID(ctx, event.ProjectID, comment.ParentID)
	if err != nil {
		return errm.Wrap(err, "find parent comment")
	}
	if parent == nil {
		log.DebugIf(s.cfg.Verbose, "reply to a comment that is not ours")
		return nil
	}

	reply, err := s.agent.GenerateCommentReply(ctx, parent.Body, comment.Body)
	if err != nil {
		return errm.Wrap(err, "generate reply")
	}
	if reply == "" {
		log.Debug("agent returned empty reply")
		return nil
	}

	id, err := s.provider.ReplyToComment(ctx, event.ProjectID, event.MergeRequest.IID, comment.ParentID, reply)
	if err != nil {
		return errm.Wrap(err, "post reply")
	}

	// replies are stored so the developer can continue the thread
	err = s.store.SaveComment(ctx, model.PostedComment{
		ReviewID:          parent.ReviewID,
		ProjectID:         event.ProjectID,
		PullRequestNumber: event.MergeRequest.IID,
		ExternalCommentID: id,
		Kind:              model.CommentKindReply,
		FilePath:          parent.FilePath,
		Line:              parent.Line,
		Body:              reply,
		CreatedAt:         s.now(),
	})
	if err != nil {
		log.Err(err, "failed to persist reply")
	}

	log.Info("replied to comment", "parent_id", comment.ParentID)
	return nil
}

func (s *Reviewer) isBot(username string) bool {
	return s.cfg.BotUsername != "" && strings.EqualFold(username, s.cfg.BotUsername)
}
