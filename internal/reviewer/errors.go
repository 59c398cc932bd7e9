package reviewer

import "github.com/maxbolgarin/errm"

var (
	ErrNilMergeRequest = errm.New("merge request is nil")
	ErrMissingHeadSHA  = errm.New("head commit sha is unknown")
	ErrPostFailed      = errm.New("both inline and fallback posting failed")

	ErrIncompleteCommitRefs = errm.New("base or start commit sha is unknown")
)
