package intake

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCmd maps a joined argument prefix to a canned response.
type fakeCmd struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeCmd) Run(args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	for prefix, err := range f.errs {
		if strings.Contains(key, prefix) {
			out := f.responses[prefix]
			return out, err
		}
	}
	for prefix, out := range f.responses {
		if strings.Contains(key, prefix) {
			return out, nil
		}
	}
	return "", fmt.Errorf("unexpected command: gh %s", key)
}

func TestFetchFiltersMentions(t *testing.T) {
	cmd := &fakeCmd{responses: map[string]string{
		"issues/comments?": `[
			{"id": 11, "body": "@koan-bot please fix the build", "created_at": "2026-08-24T09:00:00Z",
			 "user": {"login": "alice"}, "issue_url": "https://api.github.com/repos/owner/blog/issues/7"},
			{"id": 12, "body": "unrelated chatter", "created_at": "2026-08-24T09:05:00Z",
			 "user": {"login": "bob"}, "issue_url": "https://api.github.com/repos/owner/blog/issues/7"}
		]`,
	}}
	feed := NewGitHubFeed(cmd, "owner/blog", "blog", "koan-bot", "eyes")

	items, err := feed.Fetch()
	require.NoError(t, err)
	require.Len(t, items, 1, "only mentions survive the filter")
	assert.Equal(t, "owner/blog#11", items[0].ID)
	assert.Equal(t, "alice", items[0].Author)
	assert.Equal(t, 7, items[0].IssueNum)
	assert.Equal(t, "blog", items[0].Project)
}

func TestAcknowledgedMatchesMarkerAndLogin(t *testing.T) {
	cmd := &fakeCmd{responses: map[string]string{
		"comments/11/reactions": `[
			{"content": "eyes", "user": {"login": "someone-else"}},
			{"content": "heart", "user": {"login": "koan-bot"}}
		]`,
		"comments/12/reactions": `[
			{"content": "eyes", "user": {"login": "koan-bot"}}
		]`,
	}}
	feed := NewGitHubFeed(cmd, "owner/blog", "blog", "koan-bot", "eyes")

	acked, err := feed.Acknowledged(Notification{ID: "owner/blog#11"})
	require.NoError(t, err)
	assert.False(t, acked, "marker must be ours, not just any matching reaction")

	acked, err = feed.Acknowledged(Notification{ID: "owner/blog#12"})
	require.NoError(t, err)
	assert.True(t, acked)
}

func TestHasWriteAccess(t *testing.T) {
	cmd := &fakeCmd{responses: map[string]string{
		"collaborators/alice/permission":   `{"permission": "write"}`,
		"collaborators/bob/permission":     `{"permission": "read"}`,
		"collaborators/mallory/permission": `{"message": "Not Found"}`,
	}}
	cmd.errs = map[string]error{
		"collaborators/mallory/permission": fmt.Errorf("exit status 1"),
	}
	cmd.responses["collaborators/mallory/permission"] = "Not Found"
	feed := NewGitHubFeed(cmd, "owner/blog", "blog", "koan-bot", "eyes")

	ok, err := feed.HasWriteAccess("alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = feed.HasWriteAccess("bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = feed.HasWriteAccess("mallory")
	require.NoError(t, err, "a 404 means not a collaborator, not a transport failure")
	assert.False(t, ok)
}

func TestReplyRequiresThread(t *testing.T) {
	feed := NewGitHubFeed(&fakeCmd{responses: map[string]string{"issues/7/comments": "{}"}}, "owner/blog", "blog", "koan-bot", "eyes")

	err := feed.Reply(Notification{ID: "owner/blog#11", IssueNum: 0}, "hi")
	assert.Error(t, err)

	err = feed.Reply(Notification{ID: "owner/blog#11", IssueNum: 7}, "hi")
	assert.NoError(t, err)
}
