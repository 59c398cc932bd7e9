package reviewer

import (
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/reviewer/diffparser"
)

// RejectReason explains why a candidate comment was dropped
type RejectReason string

const (
	RejectNoDiff      RejectReason = "diff has no added lines"
	RejectInvalidLine RejectReason = "line number is not positive"
	RejectNotAdded    RejectReason = "line is unchanged context"
	RejectOutsideDiff RejectReason = "line is outside the diff"
)

// Rejection is a candidate comment that cannot be placed inline
type Rejection struct {
	Comment model.LineComment
	Reason  RejectReason
}

// Reconcile keeps only candidates that target a line added by the diff, in
// their original order, with side forced to right. Nothing is relocated to a
// nearby line: a comment on a wrong line is worse than no comment.
func Reconcile(candidates []model.LineComment, diff *diffparser.ParsedDiff) (accepted []model.LineComment, rejected []Rejection) {
	hasAdded := diff != nil && len(diff.Added) > 0

	for _, c := range candidates {
		switch {
		case !hasAdded:
			rejected = append(rejected, Rejection{Comment: c, Reason: RejectNoDiff})
		case c.Line <= 0:
			rejected = append(rejected, Rejection{Comment: c, Reason: RejectInvalidLine})
		case diff.IsAdded(c.Line):
			c.Side = model.SideRight
			accepted = append(accepted, c)
		default:
			if _, visible := diff.LineContent(c.Line); visible {
				rejected = append(rejected, Rejection{Comment: c, Reason: RejectNotAdded})
			} else {
				rejected = append(rejected, Rejection{Comment: c, Reason: RejectOutsideDiff})
			}
		}
	}

	return accepted, rejected
}

func logRejections(log logze.Logger, filename string, rejected []Rejection, diff *diffparser.ParsedDiff) {
	if len(rejected) == 0 {
		return
	}
	valid := "none"
	if diff != nil {
		valid = diff.AddedRanges()
	}
	for _, r := range rejected {
		log.Warn("dropped comment with invalid line", "file", filename, "line", r.Comment.Line,
			"reason", string(r.Reason), "valid_lines", valid, "issue", r.Comment.Issue)
	}
}
