package notify

import (
	"encoding/json"
	"fmt"

	"github.com/prnotify/internal/github"
)

// EventType identifies the GitHub webhook event kind.
type EventType string

// Webhook event types consumed by the engine.
const (
	EventPullRequest              EventType = "pull_request"
	EventPullRequestReview        EventType = "pull_request_review"
	EventPullRequestReviewComment EventType = "pull_request_review_comment"
	EventIssueComment             EventType = "issue_comment"
	EventCheckRun                 EventType = "check_run"
	EventCheckSuite               EventType = "check_suite"
	EventDeployment               EventType = "deployment"
	EventDeploymentStatus         EventType = "deployment_status"
)

// ActionReadyToMerge is the synthesized action attached to ready-to-merge
// notifications. It never arrives from GitHub; the evaluator mints it.
const ActionReadyToMerge = "ready_to_merge"

// InboundEvent is a verified, parsed webhook delivery. Immutable once built;
// discarded after processing.
type InboundEvent struct {
	DeliveryID string
	Type       EventType
	Action     string
	Payload    *github.WebhookPayload
}

// ParseEvent decodes a webhook body into an InboundEvent. The event type
// comes from the X-GitHub-Event header, the action from the payload. Events
// without an action field (deployment) keep an empty action; the gate treats
// those event types as whole-event categories.
func ParseEvent(deliveryID, eventType string, body []byte) (InboundEvent, error) {
	var payload github.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return InboundEvent{}, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	return InboundEvent{
		DeliveryID: deliveryID,
		Type:       EventType(eventType),
		Action:     payload.Action,
		Payload:    &payload,
	}, nil
}

// Repo returns the owner and name halves of the repository full name, or
// empty strings when the payload carries none.
func (e InboundEvent) Repo() (owner, name string) {
	full := e.Payload.Repository.FullName
	for i := 0; i < len(full); i++ {
		if full[i] == '/' {
			return full[:i], full[i+1:]
		}
	}
	return "", ""
}
