package github

// User represents a GitHub user account
type User struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	HTMLURL string `json:"html_url"`
	Type    string `json:"type"`
}

// Branch represents one side of a pull request
type Branch struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest represents a GitHub pull request
type PullRequest struct {
	ID                 int64  `json:"id"`
	Number             int    `json:"number"`
	Title              string `json:"title"`
	Body               string `json:"body"`
	State              string `json:"state"`
	HTMLURL            string `json:"html_url"`
	Draft              bool   `json:"draft"`
	Merged             bool   `json:"merged"`
	MergeableState     string `json:"mergeable_state"`
	User               User   `json:"user"`
	MergedBy           *User  `json:"merged_by"`
	Assignees          []User `json:"assignees"`
	RequestedReviewers []User `json:"requested_reviewers"`
	Head               Branch `json:"head"`
	Base               Branch `json:"base"`
}

// Review represents a pull request review
type Review struct {
	ID          int64  `json:"id"`
	State       string `json:"state"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	User        User   `json:"user"`
	SubmittedAt string `json:"submitted_at"`
}

// CheckRunOutput is the reported output of a check run
type CheckRunOutput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// CheckRun represents a single CI/CD task's result against a commit
type CheckRun struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	Conclusion   string         `json:"conclusion"`
	HeadSHA      string         `json:"head_sha"`
	HTMLURL      string         `json:"html_url"`
	Output       CheckRunOutput `json:"output"`
	PullRequests []PullRequest  `json:"pull_requests"`
}

// App identifies the CI provider that owns a check suite
type App struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CheckSuite represents a grouping of check runs from one CI provider
type CheckSuite struct {
	ID           int64         `json:"id"`
	Status       string        `json:"status"`
	Conclusion   string        `json:"conclusion"`
	HeadSHA      string        `json:"head_sha"`
	App          App           `json:"app"`
	PullRequests []PullRequest `json:"pull_requests"`
}

// Deployment represents a deployment creation event payload
type Deployment struct {
	ID          int64  `json:"id"`
	SHA         string `json:"sha"`
	Ref         string `json:"ref"`
	Environment string `json:"environment"`
	Description string `json:"description"`
	Creator     User   `json:"creator"`
}

// DeploymentStatus represents a deployment state transition
type DeploymentStatus struct {
	ID          int64  `json:"id"`
	State       string `json:"state"`
	Environment string `json:"environment"`
	TargetURL   string `json:"target_url"`
	LogURL      string `json:"log_url"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

// Comment represents an issue or review comment
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
}

// IssuePRRef marks an issue as backing a pull request
type IssuePRRef struct {
	URL string `json:"url"`
}

// Issue represents the issue half of an issue_comment payload. Comments on
// pull requests arrive as issue comments with a non-nil PullRequest marker.
type Issue struct {
	Number      int         `json:"number"`
	Title       string      `json:"title"`
	HTMLURL     string      `json:"html_url"`
	User        User        `json:"user"`
	PullRequest *IssuePRRef `json:"pull_request"`
}

// Repository represents a GitHub repository
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Owner    User   `json:"owner"`
	Private  bool   `json:"private"`
}

// WebhookPayload is the superset of fields prnotify reads from GitHub webhook
// deliveries. Pointers distinguish absent objects from zero values so that
// missing-data validation can hard-stop per event type.
type WebhookPayload struct {
	Action            string            `json:"action"`
	Number            int               `json:"number"`
	PullRequest       *PullRequest      `json:"pull_request"`
	Review            *Review           `json:"review"`
	CheckRun          *CheckRun         `json:"check_run"`
	CheckSuite        *CheckSuite       `json:"check_suite"`
	Deployment        *Deployment       `json:"deployment"`
	DeploymentStatus  *DeploymentStatus `json:"deployment_status"`
	Comment           *Comment          `json:"comment"`
	Issue             *Issue            `json:"issue"`
	Repository        Repository        `json:"repository"`
	Sender            User              `json:"sender"`
	RequestedReviewer *User             `json:"requested_reviewer"`
}

// checkRunsResponse is the list-check-runs-for-ref envelope
type checkRunsResponse struct {
	TotalCount int        `json:"total_count"`
	CheckRuns  []CheckRun `json:"check_runs"`
}

// installationTokenResponse is the create-installation-access-token envelope
type installationTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
