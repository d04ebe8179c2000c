package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prnotify/internal/github"
)

func TestParseEvent(t *testing.T) {
	body := []byte(`{
		"action": "opened",
		"pull_request": {"number": 12, "title": "Add frobnicator", "user": {"login": "alice"}},
		"repository": {"full_name": "acme/widgets"}
	}`)

	ev, err := ParseEvent("d-1", "pull_request", body)
	require.NoError(t, err)

	assert.Equal(t, "d-1", ev.DeliveryID)
	assert.Equal(t, EventPullRequest, ev.Type)
	assert.Equal(t, "opened", ev.Action)
	require.NotNil(t, ev.Payload.PullRequest)
	assert.Equal(t, 12, ev.Payload.PullRequest.Number)
	assert.Nil(t, ev.Payload.Review, "absent objects stay nil")
}

func TestParseEvent_NoAction(t *testing.T) {
	ev, err := ParseEvent("d-2", "deployment", []byte(`{"deployment": {"environment": "production"}}`))
	require.NoError(t, err)

	assert.Equal(t, EventDeployment, ev.Type)
	assert.Empty(t, ev.Action)
}

func TestParseEvent_Malformed(t *testing.T) {
	_, err := ParseEvent("d-3", "pull_request", []byte(`{"action": `))
	assert.Error(t, err)
}

func TestRepo(t *testing.T) {
	ev := InboundEvent{Payload: &github.WebhookPayload{
		Repository: github.Repository{FullName: "acme/widgets"},
	}}
	owner, name := ev.Repo()
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)

	ev.Payload.Repository.FullName = ""
	owner, name = ev.Repo()
	assert.Empty(t, owner)
	assert.Empty(t, name)
}
