package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/prnotify/internal/github"
)

// PullRequestGetter re-fetches a PR's current state. Satisfied by the GitHub
// API client.
type PullRequestGetter interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
}

// Readiness is the outcome of one ready-to-merge evaluation.
type Readiness struct {
	Ready bool
	State string
	Label string
}

// Evaluator decides whether a PR has become ready to merge. It always
// re-fetches the PR from the API: mergeable_state is computed asynchronously
// server-side and the webhook payload's embedded snapshot can lag the
// triggering event by an unbounded amount.
type Evaluator struct {
	prs PullRequestGetter
}

// NewEvaluator creates a ready-to-merge evaluator.
func NewEvaluator(prs PullRequestGetter) *Evaluator {
	return &Evaluator{prs: prs}
}

// Evaluate re-reads the PR and classifies its mergeable_state. Only "clean"
// and "unstable" are notification-worthy; every other value (dirty, blocked,
// behind, unknown, divergent, has_hooks, empty) short-circuits. Any API
// failure is treated as not ready: never notify on uncertain data.
func (e *Evaluator) Evaluate(ctx context.Context, owner, repo string, number int) (Readiness, *github.PullRequest) {
	pr, err := e.prs.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		log.Error().Err(err).
			Str("repo", owner+"/"+repo).
			Int("pr", number).
			Msg("Failed to re-fetch PR for ready-to-merge evaluation")
		return Readiness{}, nil
	}

	switch pr.MergeableState {
	case "clean":
		return Readiness{Ready: true, State: pr.MergeableState, Label: "READY TO MERGE"}, pr
	case "unstable":
		// Mergeable despite failing or pending non-required checks.
		return Readiness{Ready: true, State: pr.MergeableState, Label: "READY TO MERGE (UNSTABLE)"}, pr
	default:
		return Readiness{State: pr.MergeableState}, pr
	}
}
