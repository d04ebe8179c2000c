package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/prnotify/internal/config"
	"github.com/prnotify/internal/github"
	"github.com/prnotify/internal/logging"
	"github.com/prnotify/internal/mailer"
)

// GitHubAPI is the full set of GitHub lookups the engine depends on.
// Satisfied by *github.Client.
type GitHubAPI interface {
	IdentityLookup
	PullRequestGetter
	ListCheckRunsForRef(ctx context.Context, owner, repo, ref string) ([]github.CheckRun, error)
	ListPullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]github.PullRequest, error)
}

// Dedup windows. Check-run event dedup is short: it only absorbs redelivered
// webhooks. Ready-to-merge dedup is long: multiple triggers fire for the same
// underlying transition and the recipient should get one email per
// transition, not one per trigger.
const (
	checkEventWindow   = 5 * time.Minute
	readyToMergeWindow = 30 * time.Minute
)

// RecipientResult is the delivery outcome for one recipient.
type RecipientResult struct {
	Email     string
	Delivered bool
	Error     string
}

// Result is the structured outcome of processing one event. No error ever
// escapes the engine; every path lands here.
type Result struct {
	// Processed is true when at least one recipient received the notification.
	Processed bool
	// Failure distinguishes error outcomes from normal skips (disabled
	// category, duplicate, nothing to notify).
	Failure bool
	Reason  string

	Attempted int
	Succeeded int
	Failed    int

	// PRCreatorNotified is false when the owner's address could not be
	// resolved or the owner's delivery failed, even if others succeeded.
	PRCreatorNotified bool

	PerRecipient []RecipientResult
}

func skipResult(reason string) Result {
	return Result{Reason: reason}
}

func failResult(reason string) Result {
	return Result{Failure: true, Reason: reason}
}

// Engine is the event-to-notification decision engine: it validates inbound
// events, consults the gate, resolves recipients, composes content, and fans
// out delivery.
type Engine struct {
	api       GitHubAPI
	sender    mailer.Sender
	gate      *Gate
	resolver  *Resolver
	evaluator *Evaluator
	checkSeen *Window
	readySeen *Window
	audit     *logging.AuditWriter
	fanout    int
}

// NewEngine wires the engine from configuration and collaborators.
func NewEngine(cfg config.Notify, api GitHubAPI, sender mailer.Sender, audit *logging.AuditWriter) *Engine {
	fanout := cfg.FanoutLimit
	if fanout < 1 {
		fanout = 1
	}

	return &Engine{
		api:       api,
		sender:    sender,
		gate:      NewGate(cfg),
		resolver:  NewResolver(api, cfg),
		evaluator: NewEvaluator(api),
		checkSeen: NewWindow(checkEventWindow, time.Now),
		readySeen: NewWindow(readyToMergeWindow, time.Now),
		audit:     audit,
		fanout:    fanout,
	}
}

// Handle processes one inbound event to completion and returns the structured
// result. It never returns an error and never panics across the boundary; the
// webhook transport can always ack regardless of the outcome here.
func (e *Engine) Handle(ctx context.Context, ev InboundEvent) Result {
	res := e.process(ctx, ev)
	e.writeAudit(ev, res)

	evt := log.Debug()
	if res.Failure {
		evt = log.Error()
	}
	evt.
		Str("delivery", ev.DeliveryID).
		Str("event", string(ev.Type)).
		Str("action", ev.Action).
		Bool("processed", res.Processed).
		Str("reason", res.Reason).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msg("Webhook event processed")

	return res
}

func (e *Engine) process(ctx context.Context, ev InboundEvent) Result {
	if ev.Payload == nil {
		return failResult("empty payload")
	}

	switch ev.Type {
	case EventPullRequest:
		return e.handlePullRequest(ctx, ev)
	case EventPullRequestReview:
		return e.handleReview(ctx, ev)
	case EventIssueComment, EventPullRequestReviewComment:
		return e.handleComment(ctx, ev)
	case EventCheckRun:
		return e.handleCheckRun(ctx, ev)
	case EventCheckSuite:
		return e.handleCheckSuite(ctx, ev)
	case EventDeployment, EventDeploymentStatus:
		return e.handleDeployment(ctx, ev)
	default:
		return skipResult(fmt.Sprintf("notifications disabled for %s.%s", ev.Type, ev.Action))
	}
}

func (e *Engine) handlePullRequest(ctx context.Context, ev InboundEvent) Result {
	pr := ev.Payload.PullRequest
	if pr == nil {
		log.Error().Str("delivery", ev.DeliveryID).Msg("pull_request event without pull_request object")
		return failResult("missing pull_request in payload")
	}

	var res Result
	if _, enabled := e.gate.Enabled(ev.Type, ev.Action); !enabled {
		res = skipResult(fmt.Sprintf("notifications disabled for %s.%s", ev.Type, ev.Action))
	} else {
		// review_requested targets the requested reviewer instead of the
		// gathered additional-recipient set.
		var explicit []string
		if ev.Action == "review_requested" && ev.Payload.RequestedReviewer != nil {
			explicit = []string{ev.Payload.RequestedReviewer.Login}
		}

		content := ComposePullRequest(ev, pr)
		set := e.resolver.Resolve(ctx, pr.User.Login, pr, explicit)
		res = e.deliver(ctx, set, content)
	}

	// New commits and leaving draft can both flip mergeable_state; evaluate
	// readiness even when the updates category itself is muted.
	if ev.Action == "synchronize" || ev.Action == "ready_for_review" {
		owner, repo := ev.Repo()
		e.evaluateReadyToMerge(ctx, ev, owner, repo, pr.Number)
	}

	return res
}

func (e *Engine) handleReview(ctx context.Context, ev InboundEvent) Result {
	review := ev.Payload.Review
	pr := ev.Payload.PullRequest
	if review == nil || pr == nil {
		log.Error().Str("delivery", ev.DeliveryID).Msg("pull_request_review event missing review or pull_request object")
		return failResult("missing review or pull_request in payload")
	}

	var res Result
	if _, enabled := e.gate.Enabled(ev.Type, ev.Action); !enabled {
		res = skipResult(fmt.Sprintf("notifications disabled for %s.%s", ev.Type, ev.Action))
	} else {
		content := ComposeReview(ev, review, pr)
		set := e.resolver.Resolve(ctx, pr.User.Login, pr, nil)
		res = e.deliver(ctx, set, content)
	}

	if ev.Action == "submitted" && strings.EqualFold(review.State, "approved") {
		owner, repo := ev.Repo()
		e.evaluateReadyToMerge(ctx, ev, owner, repo, pr.Number)
	}

	return res
}

func (e *Engine) handleComment(ctx context.Context, ev InboundEvent) Result {
	if _, enabled := e.gate.Enabled(ev.Type, ev.Action); !enabled {
		return skipResult(fmt.Sprintf("notifications disabled for %s.%s", ev.Type, ev.Action))
	}

	comment := ev.Payload.Comment
	if comment == nil {
		log.Error().Str("delivery", ev.DeliveryID).Msg("comment event without comment object")
		return failResult("missing comment in payload")
	}

	var number int
	var title, url, ownerLogin string

	switch ev.Type {
	case EventIssueComment:
		issue := ev.Payload.Issue
		if issue == nil {
			return failResult("missing issue in payload")
		}
		if issue.PullRequest == nil {
			// Plain issue comments are outside this app's scope.
			return skipResult("comment is not on a pull request")
		}
		number, title, url, ownerLogin = issue.Number, issue.Title, comment.HTMLURL, issue.User.Login
	default:
		pr := ev.Payload.PullRequest
		if pr == nil {
			return failResult("missing pull_request in payload")
		}
		number, title, url, ownerLogin = pr.Number, pr.Title, comment.HTMLURL, pr.User.Login
	}

	content := ComposeComment(ev, number, title, url, comment)
	set := e.resolver.Resolve(ctx, ownerLogin, ev.Payload.PullRequest, nil)
	return e.deliver(ctx, set, content)
}

func (e *Engine) handleCheckRun(ctx context.Context, ev InboundEvent) Result {
	run := ev.Payload.CheckRun
	if run == nil {
		log.Error().Str("delivery", ev.DeliveryID).Msg("check_run event without check_run object")
		return failResult("missing check_run in payload")
	}

	// Queued/in-progress check runs carry nothing actionable for a human.
	if ev.Action != "completed" {
		return skipResult(fmt.Sprintf("check_run action %q ignored", ev.Action))
	}

	_, enabled := e.gate.Enabled(ev.Type, ev.Action)
	if !enabled && run.Conclusion != "success" {
		// Nothing left to do: the summary is muted and a non-success
		// conclusion cannot trigger a readiness check.
		return skipResult("notifications disabled for check_run.completed")
	}

	dedupKey := fmt.Sprintf("%d:%s", run.ID, run.Conclusion)
	if e.checkSeen.SeenOrMark(dedupKey) {
		log.Debug().Str("check", run.Name).Msg("Duplicate check_run delivery suppressed")
		return skipResult("duplicate check_run event")
	}

	owner, repo := ev.Repo()

	prs := run.PullRequests
	if len(prs) == 0 {
		fetched, err := e.api.ListPullRequestsForCommit(ctx, owner, repo, run.HeadSHA)
		if err != nil {
			log.Error().Err(err).Str("sha", run.HeadSHA).Msg("Failed to look up PRs for commit")
			return failResult("cannot determine associated pull requests")
		}
		prs = fetched
	}
	if len(prs) == 0 {
		return skipResult("no associated pull requests")
	}

	// The payload's pull_requests entries are skeletal (number and refs
	// only); the full PR is needed for title, owner, and URL.
	pr, err := e.api.GetPullRequest(ctx, owner, repo, prs[0].Number)
	if err != nil {
		log.Error().Err(err).Int("pr", prs[0].Number).Msg("Failed to fetch PR for check summary")
		return failResult("cannot fetch associated pull request")
	}

	var res Result
	if !enabled {
		res = skipResult("notifications disabled for check_run.completed")
	} else {
		// Re-list every check for the commit: the payload only reflects the
		// one check that just finished.
		all, err := e.api.ListCheckRunsForRef(ctx, owner, repo, run.HeadSHA)
		if err != nil {
			log.Error().Err(err).Str("sha", run.HeadSHA).Msg("Failed to list check runs for commit")
			return failResult("cannot list check runs for commit")
		}

		sum := Summarize(all, run.Name)
		content := ComposeCheckSummary(ev, sum, pr)
		set := e.resolver.Resolve(ctx, pr.User.Login, pr, nil)
		res = e.deliver(ctx, set, content)
	}

	if run.Conclusion == "success" {
		e.evaluateReadyToMerge(ctx, ev, owner, repo, pr.Number)
	}

	return res
}

func (e *Engine) handleCheckSuite(ctx context.Context, ev InboundEvent) Result {
	suite := ev.Payload.CheckSuite
	if suite == nil {
		log.Error().Str("delivery", ev.DeliveryID).Msg("check_suite event without check_suite object")
		return failResult("missing check_suite in payload")
	}

	if ev.Action != "completed" {
		return skipResult(fmt.Sprintf("check_suite action %q ignored", ev.Action))
	}

	owner, repo := ev.Repo()

	prs := suite.PullRequests
	if len(prs) == 0 {
		fetched, err := e.api.ListPullRequestsForCommit(ctx, owner, repo, suite.HeadSHA)
		if err != nil {
			log.Error().Err(err).Str("sha", suite.HeadSHA).Msg("Failed to look up PRs for commit")
			return failResult("cannot determine associated pull requests")
		}
		prs = fetched
	}
	if len(prs) == 0 {
		return skipResult("no associated pull requests")
	}

	var res Result
	if _, enabled := e.gate.Enabled(ev.Type, ev.Action); !enabled {
		res = skipResult("notifications disabled for check_suite.completed")
	} else {
		pr, err := e.api.GetPullRequest(ctx, owner, repo, prs[0].Number)
		if err != nil {
			log.Error().Err(err).Int("pr", prs[0].Number).Msg("Failed to fetch PR for check suite summary")
			return failResult("cannot fetch associated pull request")
		}

		content := ComposeCheckSuite(ev, suite, pr)
		set := e.resolver.Resolve(ctx, pr.User.Login, pr, nil)
		res = e.deliver(ctx, set, content)
	}

	// A completing suite often lands right after the last individual check;
	// the ready window collapses the two into one notification.
	e.evaluateReadyToMerge(ctx, ev, owner, repo, prs[0].Number)

	return res
}

func (e *Engine) handleDeployment(ctx context.Context, ev InboundEvent) Result {
	if _, enabled := e.gate.Enabled(ev.Type, ev.Action); !enabled {
		return skipResult(fmt.Sprintf("notifications disabled for %s", ev.Type))
	}

	var content Content
	var ownerLogin string

	if ev.Type == EventDeployment {
		dep := ev.Payload.Deployment
		if dep == nil {
			return failResult("missing deployment in payload")
		}
		content = ComposeDeployment(ev, dep)
		ownerLogin = dep.Creator.Login
	} else {
		ds := ev.Payload.DeploymentStatus
		if ds == nil {
			return failResult("missing deployment_status in payload")
		}
		content = ComposeDeploymentStatus(ev, ds, ev.Payload.Deployment)
		if ev.Payload.Deployment != nil {
			ownerLogin = ev.Payload.Deployment.Creator.Login
		} else {
			ownerLogin = ev.Payload.Sender.Login
		}
	}

	set := e.resolver.Resolve(ctx, ownerLogin, nil, nil)
	return e.deliver(ctx, set, content)
}

// evaluateReadyToMerge runs the readiness heuristic for one trigger and, when
// the PR is ready and not recently notified, dispatches a synthesized
// pull_request.ready_to_merge notification. It audits under its own
// synthesized event so trigger and notification stay distinguishable.
func (e *Engine) evaluateReadyToMerge(ctx context.Context, ev InboundEvent, owner, repo string, number int) Result {
	if owner == "" || repo == "" {
		return failResult("cannot determine repository for readiness evaluation")
	}
	if !e.gate.ReadyToMergeEnabled() {
		return skipResult("ready-to-merge notifications disabled")
	}

	var res Result
	readiness, pr := e.evaluator.Evaluate(ctx, owner, repo, number)
	switch {
	case pr == nil:
		res = failResult("cannot determine mergeable state")
	case !readiness.Ready:
		res = skipResult(fmt.Sprintf("mergeable state %q is not notification-worthy", readiness.State))
	case e.readySeen.Seen(strconv.Itoa(number)):
		log.Debug().Int("pr", number).Msg("Ready-to-merge recently notified; duplicate suppressed")
		res = skipResult("duplicate ready-to-merge notification")
	default:
		content := ComposeReadyToMerge(ev.Payload.Repository.FullName, pr, readiness)
		set := e.resolver.Resolve(ctx, pr.User.Login, pr, nil)
		res = e.deliver(ctx, set, content)
		// The window opens only once someone actually got the email; a
		// fully failed fan-out leaves the next trigger free to retry.
		if res.Processed {
			e.readySeen.Mark(strconv.Itoa(number))
		}
	}

	synth := InboundEvent{
		DeliveryID: uuid.NewString(),
		Type:       EventPullRequest,
		Action:     ActionReadyToMerge,
		Payload:    ev.Payload,
	}
	e.writeAudit(synth, res)

	return res
}

// deliver fans a composed notification out to every recipient with bounded
// concurrency. One recipient's failure never blocks the others, and no retry
// is attempted: a failed send is terminal for that recipient for this event.
func (e *Engine) deliver(ctx context.Context, set RecipientSet, content Content) Result {
	recipients := set.All()
	if len(recipients) == 0 {
		return failResult("no recipients resolved")
	}

	results := make([]RecipientResult, len(recipients))

	g := new(errgroup.Group)
	g.SetLimit(e.fanout)
	for i, addr := range recipients {
		i, addr := i, addr
		g.Go(func() error {
			if err := e.sender.Send(ctx, addr, content.Subject, content.Text, content.HTML); err != nil {
				log.Warn().Err(err).Str("recipient", addr).Msg("Failed to deliver notification")
				results[i] = RecipientResult{Email: addr, Error: err.Error()}
			} else {
				results[i] = RecipientResult{Email: addr, Delivered: true}
			}
			return nil
		})
	}
	g.Wait()

	res := Result{Attempted: len(recipients), PerRecipient: results}
	for _, r := range results {
		if r.Delivered {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}

	res.Processed = res.Succeeded > 0
	if res.Processed {
		res.Reason = "notified"
	} else {
		res.Failure = true
		res.Reason = "all deliveries failed"
	}

	// The owner, when resolved, occupies slot 0.
	res.PRCreatorNotified = set.OwnerEmail != "" && results[0].Delivered

	return res
}

func (e *Engine) writeAudit(ev InboundEvent, res Result) {
	if e.audit == nil {
		return
	}

	rec := logging.AuditRecord{
		DeliveryID: ev.DeliveryID,
		Event:      string(ev.Type),
		Action:     ev.Action,
		Processed:  res.Processed,
		Reason:     res.Reason,
		Attempted:  res.Attempted,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
	}
	// Rejected deliveries can reach here without a payload.
	if ev.Payload != nil {
		rec.Repo = ev.Payload.Repository.FullName
		if pr := ev.Payload.PullRequest; pr != nil {
			rec.PRNumber = pr.Number
		}
	}
	for _, r := range res.PerRecipient {
		rec.Recipients = append(rec.Recipients, logging.AuditRecipient{
			Email:     r.Email,
			Delivered: r.Delivered,
			Error:     r.Error,
		})
	}

	if err := e.audit.Write(rec); err != nil {
		log.Warn().Err(err).Msg("Failed to write audit record")
	}
}
