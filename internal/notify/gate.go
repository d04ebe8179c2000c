package notify

import (
	"github.com/prnotify/internal/config"
)

// Category groups webhook event/action pairs for per-category enable
// switches. The taxonomy is fixed; actions are not individually configurable.
type Category string

// Category values.
const (
	CategoryLifecycle    Category = "lifecycle"
	CategoryReviews      Category = "reviews"
	CategoryComments     Category = "comments"
	CategoryCheckResults Category = "check_results"
	CategoryUpdates      Category = "updates"
	CategoryDeployments  Category = "deployments"
)

type gateKey struct {
	event  EventType
	action string
}

// categoryTable is the closed mapping of event/action pairs to categories.
// Any pair absent from this table (and not a deployment event) is disabled,
// regardless of configuration.
var categoryTable = map[gateKey]Category{
	{EventPullRequest, "opened"}:   CategoryLifecycle,
	{EventPullRequest, "closed"}:   CategoryLifecycle,
	{EventPullRequest, "reopened"}: CategoryLifecycle,

	{EventPullRequestReview, "submitted"}: CategoryReviews,
	{EventPullRequestReview, "dismissed"}: CategoryReviews,

	{EventIssueComment, "created"}:             CategoryComments,
	{EventPullRequestReviewComment, "created"}: CategoryComments,

	{EventCheckRun, "completed"}:   CategoryCheckResults,
	{EventCheckSuite, "completed"}: CategoryCheckResults,

	{EventPullRequest, "synchronize"}:      CategoryUpdates,
	{EventPullRequest, "edited"}:           CategoryUpdates,
	{EventPullRequest, "ready_for_review"}: CategoryUpdates,
	{EventPullRequest, "review_requested"}: CategoryUpdates,
}

// Gate decides whether an event/action pair should produce a notification.
type Gate struct {
	cfg config.Notify
}

// NewGate creates a gate over the configured category switches.
func NewGate(cfg config.Notify) *Gate {
	return &Gate{cfg: cfg}
}

// CategoryOf resolves the category for an event/action pair. Deployment
// events map to the deployments category for every action they carry.
func CategoryOf(event EventType, action string) (Category, bool) {
	if event == EventDeployment || event == EventDeploymentStatus {
		return CategoryDeployments, true
	}
	cat, ok := categoryTable[gateKey{event: event, action: action}]
	return cat, ok
}

// Enabled reports whether notifications are enabled for the pair. Unmapped
// pairs are disabled (fail-closed).
func (g *Gate) Enabled(event EventType, action string) (Category, bool) {
	cat, ok := CategoryOf(event, action)
	if !ok {
		return "", false
	}

	switch cat {
	case CategoryLifecycle:
		return cat, g.cfg.Lifecycle
	case CategoryReviews:
		return cat, g.cfg.Reviews
	case CategoryComments:
		return cat, g.cfg.Comments
	case CategoryCheckResults:
		return cat, g.cfg.CheckResults
	case CategoryUpdates:
		return cat, g.cfg.Updates
	case CategoryDeployments:
		return cat, g.cfg.Deployments
	}
	return "", false
}

// ReadyToMergeEnabled reports whether synthesized ready-to-merge
// notifications are enabled. This switch is independent of the per-category
// gates because the notification is minted by the evaluator, not delivered
// by GitHub.
func (g *Gate) ReadyToMergeEnabled() bool {
	return g.cfg.ReadyToMerge
}
