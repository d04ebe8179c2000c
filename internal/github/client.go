package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/prnotify/internal/retry"
)

const userAgent = "PRNotify-Bot"

// Client is a minimal GitHub REST client covering the lookups the
// notification engine needs. Requests are rate limited client-side and
// transient failures are retried with backoff.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
}

// NewClient creates a GitHub API client. baseURL is typically
// https://api.github.com.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// GitHub allows 5000 requests/hour per installation; 1 rps with a
		// small burst keeps this app far below the ceiling.
		limiter:  rate.NewLimiter(rate.Limit(1), 5),
		retryCfg: retry.APIConfig(),
	}
}

// GetUser fetches a user's public profile, including the public email when
// one is set.
func (c *Client) GetUser(ctx context.Context, login string) (*User, error) {
	var user User
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%s", login), &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", login, err)
	}
	return &user, nil
}

// GetPullRequest fetches the current PR object, including mergeable_state.
// Callers must use this rather than the webhook payload's embedded snapshot
// when reading mergeability: GitHub computes the field asynchronously.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), &pr); err != nil {
		return nil, fmt.Errorf("failed to fetch PR %s/%s#%d: %w", owner, repo, number, err)
	}
	return &pr, nil
}

// ListCheckRunsForRef lists every check run reported against a commit SHA.
func (c *Client) ListCheckRunsForRef(ctx context.Context, owner, repo, ref string) ([]CheckRun, error) {
	var resp checkRunsResponse
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/check-runs?per_page=100", owner, repo, ref)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list check runs for %s/%s@%s: %w", owner, repo, ref, err)
	}
	return resp.CheckRuns, nil
}

// ListPullRequestsForCommit lists the open PRs associated with a commit SHA.
func (c *Client) ListPullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]PullRequest, error) {
	var prs []PullRequest
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/pulls", owner, repo, sha)
	if err := c.getJSON(ctx, path, &prs); err != nil {
		return nil, fmt.Errorf("failed to list PRs for commit %s/%s@%s: %w", owner, repo, sha, err)
	}
	return prs, nil
}

// getJSON performs an authenticated GET and decodes the response body,
// retrying transient failures.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	result := retry.Do(ctx, c.retryCfg, func() error {
		return c.doGet(ctx, path, out)
	})
	if !result.Success {
		return result.LastError
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GitHub token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Transient(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, string(body))
		if isTransientStatus(resp.StatusCode) {
			return retry.Transient(apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode GitHub response: %w", err)
	}
	return nil
}

// isTransientStatus reports whether a status code is worth retrying: server
// errors, secondary rate limits (429), and 403s GitHub uses for abuse limits.
func isTransientStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusForbidden
}
