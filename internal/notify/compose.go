package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/prnotify/internal/github"
)

// Content is the composed (subject, plain text, HTML) triple for one
// notification.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:16px;background:#f6f8fa;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;background:#ffffff;border:1px solid #d0d7de;border-radius:6px;padding:20px;border-left:4px solid {{.Status.Color}};">
    <h2 style="margin:0 0 4px 0;font-size:16px;color:#1f2328;">{{.Status.Emoji}} {{.Status.Label}}</h2>
    <p style="margin:0 0 12px 0;color:#656d76;font-size:13px;">{{.Repo}}#{{.Number}} &middot; {{.Actor}}</p>
    <p style="margin:0 0 12px 0;font-size:14px;"><a href="{{.URL}}" style="color:#0969da;text-decoration:none;">{{.Title}}</a></p>
    {{if .Summary}}<p style="margin:0 0 8px 0;font-size:14px;color:#1f2328;">{{.Summary}}</p>{{end}}
    {{range .Lines}}<p style="margin:0 0 4px 0;font-size:13px;color:#656d76;">{{.}}</p>
    {{end}}
  </div>
</body>
</html>
`

var htmlTmpl = template.Must(template.New("notification").Parse(htmlTemplate))

// composeInput carries everything the subject/text/HTML renderers need.
type composeInput struct {
	Status  StatusInfo
	Repo    string
	Number  int
	Title   string
	URL     string
	Actor   string
	Summary string
	Lines   []string
}

func (in composeInput) render() Content {
	subject := fmt.Sprintf("[%s#%d] %s %s: %s", in.Repo, in.Number, in.Status.Emoji, in.Status.Label, in.Title)

	var text strings.Builder
	fmt.Fprintf(&text, "%s %s\n\n", in.Status.Emoji, in.Status.Label)
	fmt.Fprintf(&text, "%s#%d: %s\n", in.Repo, in.Number, in.Title)
	if in.Actor != "" {
		fmt.Fprintf(&text, "By: %s\n", in.Actor)
	}
	if in.Summary != "" {
		fmt.Fprintf(&text, "\n%s\n", in.Summary)
	}
	for _, line := range in.Lines {
		fmt.Fprintf(&text, "%s\n", line)
	}
	fmt.Fprintf(&text, "\n%s\n", in.URL)

	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, in); err != nil {
		// Template and input are both under our control; a render failure
		// still leaves a usable plain-text body.
		html.Reset()
	}

	return Content{Subject: subject, Text: text.String(), HTML: html.String()}
}

// ComposePullRequest builds content for a PR lifecycle or update action.
// Closed-and-merged renders as merged, naming the merger.
func ComposePullRequest(ev InboundEvent, pr *github.PullRequest) Content {
	action := ev.Action
	summary := ""

	if action == "closed" && pr.Merged {
		action = "merged"
		if pr.MergedBy != nil {
			summary = fmt.Sprintf("Merged by %s", pr.MergedBy.Login)
		}
	}

	in := composeInput{
		Status:  FormatStatus(action, "", ""),
		Repo:    ev.Payload.Repository.FullName,
		Number:  pr.Number,
		Title:   pr.Title,
		URL:     pr.HTMLURL,
		Actor:   ev.Payload.Sender.Login,
		Summary: summary,
	}

	if action == "review_requested" && ev.Payload.RequestedReviewer != nil {
		in.Summary = fmt.Sprintf("Review requested from %s", ev.Payload.RequestedReviewer.Login)
	}

	return in.render()
}

// reviewEmoji maps a review state to an icon overriding the generic
// "submitted" entry.
func reviewEmoji(state string) string {
	switch strings.ToLower(state) {
	case "approved":
		return "✅"
	case "changes_requested":
		return "🔁"
	default:
		return ""
	}
}

// ComposeReview builds content for a submitted or dismissed review.
func ComposeReview(ev InboundEvent, review *github.Review, pr *github.PullRequest) Content {
	summary := fmt.Sprintf("%s %s the pull request", review.User.Login, strings.ToLower(strings.ReplaceAll(review.State, "_", " ")))

	var lines []string
	if body := strings.TrimSpace(review.Body); body != "" {
		lines = append(lines, excerpt(body, 200))
	}

	return composeInput{
		Status:  FormatStatus(ev.Action, "", reviewEmoji(review.State)),
		Repo:    ev.Payload.Repository.FullName,
		Number:  pr.Number,
		Title:   pr.Title,
		URL:     review.HTMLURL,
		Actor:   review.User.Login,
		Summary: summary,
		Lines:   lines,
	}.render()
}

// ComposeComment builds content for an issue comment or review comment on a
// pull request.
func ComposeComment(ev InboundEvent, number int, title, url string, comment *github.Comment) Content {
	var lines []string
	if body := strings.TrimSpace(comment.Body); body != "" {
		lines = append(lines, excerpt(body, 200))
	}

	return composeInput{
		Status:  FormatStatus(ev.Action, "", ""),
		Repo:    ev.Payload.Repository.FullName,
		Number:  number,
		Title:   title,
		URL:     url,
		Actor:   comment.User.Login,
		Summary: fmt.Sprintf("New comment from %s", comment.User.Login),
		Lines:   lines,
	}.render()
}

// ComposeCheckSummary builds the consolidated check-status content for one
// triggering completion.
func ComposeCheckSummary(ev InboundEvent, sum CheckRunSummary, pr *github.PullRequest) Content {
	statusKey := "in_progress"
	if sum.AllCompleted {
		statusKey = "success"
		if sum.Failing() {
			statusKey = "failure"
		}
	}

	var lines []string
	for _, f := range sum.Failed {
		lines = append(lines, fmt.Sprintf("❌ %s (%s) %s", f.Name, f.Conclusion, f.URL))
	}
	for _, p := range sum.Passed {
		lines = append(lines, fmt.Sprintf("✅ %s", p.Name))
	}
	for _, r := range sum.Running {
		lines = append(lines, fmt.Sprintf("🔄 %s (running)", r.Name))
	}
	if sum.SkippedCount > 0 {
		lines = append(lines, fmt.Sprintf("⏭️ %d skipped", sum.SkippedCount))
	}

	status := FormatStatus(statusKey, "", "")
	content := composeInput{
		Status:  status,
		Repo:    ev.Payload.Repository.FullName,
		Number:  pr.Number,
		Title:   pr.Title,
		URL:     pr.HTMLURL,
		Actor:   sum.TriggeringCheck,
		Summary: sum.Headline(),
		Lines:   lines,
	}.render()

	// Check emails are triaged from the inbox line, so the headline carries
	// the subject instead of the PR title.
	content.Subject = fmt.Sprintf("[%s#%d] %s %s: %s",
		ev.Payload.Repository.FullName, pr.Number, status.Emoji, status.Label, sum.Headline())

	return content
}

// ComposeCheckSuite builds content for a completed check suite.
func ComposeCheckSuite(ev InboundEvent, suite *github.CheckSuite, pr *github.PullRequest) Content {
	summary := fmt.Sprintf("Check suite from %s finished: %s", suite.App.Name, suite.Conclusion)

	return composeInput{
		Status:  FormatStatus(suite.Status, suite.Conclusion, ""),
		Repo:    ev.Payload.Repository.FullName,
		Number:  pr.Number,
		Title:   pr.Title,
		URL:     pr.HTMLURL,
		Actor:   suite.App.Name,
		Summary: summary,
	}.render()
}

// ComposeDeployment builds content for a deployment creation.
func ComposeDeployment(ev InboundEvent, dep *github.Deployment) Content {
	summary := fmt.Sprintf("Deployment to %s created", dep.Environment)
	var lines []string
	if dep.Description != "" {
		lines = append(lines, dep.Description)
	}
	lines = append(lines, fmt.Sprintf("Ref: %s (%s)", dep.Ref, shortSHA(dep.SHA)))

	return composeInput{
		Status:  FormatStatus("queued", "", "🚢"),
		Repo:    ev.Payload.Repository.FullName,
		Number:  0,
		Title:   fmt.Sprintf("Deployment: %s", dep.Environment),
		URL:     ev.Payload.Repository.HTMLURL,
		Actor:   dep.Creator.Login,
		Summary: summary,
		Lines:   lines,
	}.render()
}

// ComposeDeploymentStatus builds content for a deployment state transition.
func ComposeDeploymentStatus(ev InboundEvent, ds *github.DeploymentStatus, dep *github.Deployment) Content {
	env := ds.Environment
	actor := ""
	if dep != nil {
		if env == "" {
			env = dep.Environment
		}
		actor = dep.Creator.Login
	}

	var lines []string
	if ds.TargetURL != "" {
		lines = append(lines, fmt.Sprintf("Target: %s", ds.TargetURL))
	}
	if ds.LogURL != "" {
		lines = append(lines, fmt.Sprintf("Logs: %s", ds.LogURL))
	}

	url := ds.TargetURL
	if url == "" {
		url = ev.Payload.Repository.HTMLURL
	}

	return composeInput{
		Status:  FormatStatus(ds.State, "", "🚢"),
		Repo:    ev.Payload.Repository.FullName,
		Number:  0,
		Title:   fmt.Sprintf("Deployment: %s is %s", env, ds.State),
		URL:     url,
		Actor:   actor,
		Summary: ds.Description,
		Lines:   lines,
	}.render()
}

// ComposeReadyToMerge builds the synthesized ready-to-merge notification. The
// readiness label replaces the table label so the unstable variant reads
// "READY TO MERGE (UNSTABLE)".
func ComposeReadyToMerge(repoFullName string, pr *github.PullRequest, readiness Readiness) Content {
	status := FormatStatus(ActionReadyToMerge, "", "")
	status.Label = readiness.Label

	return composeInput{
		Status:  status,
		Repo:    repoFullName,
		Number:  pr.Number,
		Title:   pr.Title,
		URL:     pr.HTMLURL,
		Actor:   pr.User.Login,
		Summary: fmt.Sprintf("Mergeable state: %s", readiness.State),
	}.render()
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so a multi-byte character is never split.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
