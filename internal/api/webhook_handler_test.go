package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prnotify/internal/config"
	"github.com/prnotify/internal/github"
	"github.com/prnotify/internal/notify"
)

const testSecret = "s3cret"

type stubAPI struct{}

func (stubAPI) GetUser(_ context.Context, login string) (*github.User, error) {
	return &github.User{Login: login, Email: login + "@example.com"}, nil
}

func (stubAPI) GetPullRequest(_ context.Context, _, _ string, number int) (*github.PullRequest, error) {
	return nil, fmt.Errorf("PR %d not found", number)
}

func (stubAPI) ListCheckRunsForRef(_ context.Context, _, _, _ string) ([]github.CheckRun, error) {
	return nil, nil
}

func (stubAPI) ListPullRequestsForCommit(_ context.Context, _, _, _ string) ([]github.PullRequest, error) {
	return nil, nil
}

// chanSender signals each delivery so tests can wait for the background
// goroutine without sleeping.
type chanSender struct {
	sent chan string
}

func (s *chanSender) Send(_ context.Context, to, _, _, _ string) error {
	s.sent <- to
	return nil
}

// panickingAPI signals then panics on the first lookup the engine makes.
type panickingAPI struct {
	stubAPI
	called chan struct{}
}

func (p *panickingAPI) GetUser(_ context.Context, _ string) (*github.User, error) {
	close(p.called)
	panic("lookup exploded")
}

func newTestServer() (*Server, *chanSender) {
	return newTestServerWithAPI(stubAPI{})
}

func newTestServerWithAPI(api notify.GitHubAPI) (*Server, *chanSender) {
	sender := &chanSender{sent: make(chan string, 8)}
	engine := notify.NewEngine(
		config.Notify{Lifecycle: true, FanoutLimit: 1},
		api,
		sender,
		nil,
	)
	return NewServer(0, testSecret, engine), sender
}

func postWebhook(s *Server, event string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	req.Header.Set("X-GitHub-Delivery", "test-delivery-1")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

var openedPayload = []byte(`{
	"action": "opened",
	"pull_request": {
		"number": 12,
		"title": "Add frobnicator",
		"html_url": "https://github.com/acme/widgets/pull/12",
		"user": {"login": "alice"},
		"head": {"sha": "abc123", "ref": "feature"},
		"base": {"sha": "def456", "ref": "main"}
	},
	"repository": {"full_name": "acme/widgets", "html_url": "https://github.com/acme/widgets"},
	"sender": {"login": "octocat"}
}`)

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	s, sender := newTestServer()

	rec := postWebhook(s, "pull_request", openedPayload, sign("wrong-secret", openedPayload))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	select {
	case to := <-sender.sent:
		t.Fatalf("engine ran despite rejected signature, notified %s", to)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	s, _ := newTestServer()

	rec := postWebhook(s, "pull_request", openedPayload, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_MissingEventHeader(t *testing.T) {
	s, _ := newTestServer()

	rec := postWebhook(s, "", openedPayload, sign(testSecret, openedPayload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_PingAnsweredInline(t *testing.T) {
	s, _ := newTestServer()
	body := []byte(`{"zen": "Keep it logically awesome."}`)

	rec := postWebhook(s, "ping", body, sign(testSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
}

func TestWebhook_MalformedPayload(t *testing.T) {
	s, _ := newTestServer()
	body := []byte(`{"action": `)

	rec := postWebhook(s, "pull_request", body, sign(testSecret, body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_ValidEventAckedAndProcessed(t *testing.T) {
	s, sender := newTestServer()

	rec := postWebhook(s, "pull_request", openedPayload, sign(testSecret, openedPayload))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "accepted")
	assert.Contains(t, rec.Body.String(), "test-delivery-1")

	select {
	case to := <-sender.sent:
		assert.Equal(t, "alice@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not process the event in the background")
	}
}

func TestWebhook_EnginePanicDoesNotKillServer(t *testing.T) {
	api := &panickingAPI{called: make(chan struct{})}
	s, _ := newTestServerWithAPI(api)

	rec := postWebhook(s, "pull_request", openedPayload, sign(testSecret, openedPayload))
	assert.Equal(t, http.StatusAccepted, rec.Code, "ack happens before processing")

	select {
	case <-api.called:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never ran in the background")
	}
	// Give the panic time to unwind; the deferred recover must absorb it.
	time.Sleep(50 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health := httptest.NewRecorder()
	s.echo.ServeHTTP(health, req)
	assert.Equal(t, http.StatusOK, health.Code, "server still serving after engine panic")
}

func TestWebhook_HealthEndpoint(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
