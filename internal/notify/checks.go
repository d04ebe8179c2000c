package notify

import (
	"fmt"

	"github.com/prnotify/internal/github"
)

// CheckRef names a check and links to its details page.
type CheckRef struct {
	Name string
	URL  string
}

// FailedCheck is a CheckRef plus the conclusion that failed it.
type FailedCheck struct {
	Name       string
	URL        string
	Conclusion string
}

// CheckRunSummary is the consolidated state of every check on a commit, as of
// one triggering completion. It is always built from a fresh re-listing of
// the commit's checks, never from the triggering payload alone: individual
// completions race each other and only the full set is a consistent snapshot.
type CheckRunSummary struct {
	Total        int
	Completed    int
	InProgress   int
	SkippedCount int
	Passed       []CheckRef
	Failed       []FailedCheck
	Running      []CheckRef
	AllCompleted bool

	// TriggeringCheck is the name of the check whose completion produced
	// this summary, used for "still running" phrasing.
	TriggeringCheck string
}

// Summarize reduces the full check list for a commit into one summary.
// Conclusions classify as passed (success), failed (failure, timed_out,
// action_required), or skipped (everything else, including skipped, neutral,
// cancelled).
func Summarize(all []github.CheckRun, triggeringName string) CheckRunSummary {
	sum := CheckRunSummary{
		Total:           len(all),
		TriggeringCheck: triggeringName,
	}

	for _, run := range all {
		if run.Status != "completed" {
			sum.InProgress++
			sum.Running = append(sum.Running, CheckRef{Name: run.Name, URL: run.HTMLURL})
			continue
		}

		sum.Completed++
		switch run.Conclusion {
		case "success":
			sum.Passed = append(sum.Passed, CheckRef{Name: run.Name, URL: run.HTMLURL})
		case "failure", "timed_out", "action_required":
			sum.Failed = append(sum.Failed, FailedCheck{Name: run.Name, URL: run.HTMLURL, Conclusion: run.Conclusion})
		default:
			sum.SkippedCount++
		}
	}

	sum.AllCompleted = sum.InProgress == 0
	return sum
}

// Headline renders the subject-line phrase for the summary: failures lead
// when everything finished, a pass-only summary when nothing failed, and
// "still running" phrasing while checks remain in progress.
func (s CheckRunSummary) Headline() string {
	if s.AllCompleted {
		if len(s.Failed) > 0 {
			return fmt.Sprintf("%d of %d checks failed, %d passed", len(s.Failed), s.Total, len(s.Passed))
		}
		if s.SkippedCount > 0 {
			return fmt.Sprintf("%d checks passed, %d skipped", len(s.Passed), s.SkippedCount)
		}
		return fmt.Sprintf("All %d checks passed", len(s.Passed))
	}
	return fmt.Sprintf("%s completed, %d still running", s.TriggeringCheck, s.InProgress)
}

// Failing reports whether any completed check failed.
func (s CheckRunSummary) Failing() bool {
	return len(s.Failed) > 0
}
