package github

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

type githubPullRequest struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Head   struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"base"`
	HTMLURL string     `json:"html_url"`
	User    githubUser `json:"user"`
}

type githubComment struct {
	ID          int64      `json:"id"`
	InReplyToID int64      `json:"in_reply_to_id"`
	Body        string     `json:"body"`
	Path        string     `json:"path"`
	Line        int        `json:"line"`
	User        githubUser `json:"user"`
}

// githubPayload covers pull_request and pull_request_review_comment deliveries
type githubPayload struct {
	Action      string             `json:"action"`
	Number      int                `json:"number"`
	PullRequest *githubPullRequest `json:"pull_request"`
	Comment     *githubComment     `json:"comment"`
	Repository  struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
	Sender githubUser `json:"sender"`
}
