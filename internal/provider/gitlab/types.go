package gitlab

type gitlabUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type gitlabMergeRequest struct {
	ID           int    `json:"id"`
	IID          int    `json:"iid"`
	Action       string `json:"action"`
	OldRev       string `json:"oldrev"`
	State        string `json:"state"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	AuthorID     int    `json:"author_id"`
	LastCommit   struct {
		ID string `json:"id"`
	} `json:"last_commit"`
}

// gitlabPayload covers merge_request and note hooks
type gitlabPayload struct {
	ObjectKind string     `json:"object_kind"`
	User       gitlabUser `json:"user"`
	Project    struct {
		ID                int    `json:"id"`
		PathWithNamespace string `json:"path_with_namespace"`
		WebURL            string `json:"web_url"`
	} `json:"project"`

	// merge request attributes for merge_request hooks, note attributes for note hooks
	ObjectAttributes struct {
		gitlabMergeRequest

		Note         string `json:"note"`
		NoteableType string `json:"noteable_type"`
		DiscussionID string `json:"discussion_id"`
		Position     *struct {
			NewPath string `json:"new_path"`
			NewLine int    `json:"new_line"`
		} `json:"position"`
	} `json:"object_attributes"`

	MergeRequest *gitlabMergeRequest `json:"merge_request"`
}
