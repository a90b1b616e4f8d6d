package intake

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Notification is one item from the external mention feed.
type Notification struct {
	ID        string    // source comment identifier
	Author    string    // requesting identity
	Body      string
	CreatedAt time.Time
	Project   string // project the feed is watching
	Repo      string // owner/name
	IssueNum  int    // thread the comment belongs to, for replies
}

// Feed is the read-only polling interface over a notification source, plus
// its reply/acknowledge capability. The acknowledgment marker is durable on
// the source and is the dedup authority across restarts.
type Feed interface {
	Fetch() ([]Notification, error)
	Acknowledged(n Notification) (bool, error)
	Acknowledge(n Notification) error
	Reply(n Notification, message string) error
	// HasWriteAccess verifies the identity currently holds write access to
	// the target project's repository. This is the actual security boundary;
	// the allow-list is only advisory.
	HasWriteAccess(login string) (bool, error)
}

// CmdRunner provides command execution. Interface for testing.
type CmdRunner interface {
	Run(args ...string) (string, error)
}

// ExecRunner runs gh commands via exec.
type ExecRunner struct{}

// Run implements CmdRunner.
func (r *ExecRunner) Run(args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("gh %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GitHubFeed watches one repository's issue comments for mentions of the
// configured login. It acknowledges processing by adding a reaction to the
// source comment, which survives restarts on the source's side.
type GitHubFeed struct {
	cmd       CmdRunner
	repo      string // owner/name
	project   string
	selfLogin string
	ackMarker string // reaction content used as the durable marker
}

// NewGitHubFeed creates a feed over repo for the given project.
func NewGitHubFeed(cmd CmdRunner, repo, project, selfLogin, ackMarker string) *GitHubFeed {
	return &GitHubFeed{cmd: cmd, repo: repo, project: project, selfLogin: selfLogin, ackMarker: ackMarker}
}

type ghComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	IssueURL string `json:"issue_url"`
}

// Fetch returns recent comments mentioning the configured login.
func (f *GitHubFeed) Fetch() ([]Notification, error) {
	out, err := f.cmd.Run("api", fmt.Sprintf("repos/%s/issues/comments?sort=created&direction=desc&per_page=30", f.repo))
	if err != nil {
		return nil, fmt.Errorf("fetch comments for %s: %w", f.repo, err)
	}

	var comments []ghComment
	if err := json.Unmarshal([]byte(out), &comments); err != nil {
		return nil, fmt.Errorf("parse comments JSON: %w", err)
	}

	mention := "@" + f.selfLogin
	var items []Notification
	for _, c := range comments {
		if !strings.Contains(c.Body, mention) {
			continue
		}
		items = append(items, Notification{
			ID:        fmt.Sprintf("%s#%d", f.repo, c.ID),
			Author:    c.User.Login,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
			Project:   f.project,
			Repo:      f.repo,
			IssueNum:  issueNumberFromURL(c.IssueURL),
		})
	}
	return items, nil
}

type ghReaction struct {
	Content string `json:"content"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
}

// Acknowledged reports whether our marker reaction is already on the comment.
func (f *GitHubFeed) Acknowledged(n Notification) (bool, error) {
	out, err := f.cmd.Run("api", fmt.Sprintf("repos/%s/issues/comments/%s/reactions", f.repo, commentID(n.ID)))
	if err != nil {
		return false, fmt.Errorf("fetch reactions: %w", err)
	}
	var reactions []ghReaction
	if err := json.Unmarshal([]byte(out), &reactions); err != nil {
		return false, fmt.Errorf("parse reactions JSON: %w", err)
	}
	for _, r := range reactions {
		if r.Content == f.ackMarker && r.User.Login == f.selfLogin {
			return true, nil
		}
	}
	return false, nil
}

// Acknowledge adds the marker reaction to the comment.
func (f *GitHubFeed) Acknowledge(n Notification) error {
	_, err := f.cmd.Run("api", "-X", "POST",
		fmt.Sprintf("repos/%s/issues/comments/%s/reactions", f.repo, commentID(n.ID)),
		"-f", "content="+f.ackMarker)
	if err != nil {
		return fmt.Errorf("acknowledge comment %s: %w", n.ID, err)
	}
	return nil
}

// Reply posts a comment on the notification's thread.
func (f *GitHubFeed) Reply(n Notification, message string) error {
	if n.IssueNum <= 0 {
		return fmt.Errorf("notification %s has no thread to reply to", n.ID)
	}
	_, err := f.cmd.Run("api", "-X", "POST",
		fmt.Sprintf("repos/%s/issues/%d/comments", f.repo, n.IssueNum),
		"-f", "body="+message)
	if err != nil {
		return fmt.Errorf("reply to %s: %w", n.ID, err)
	}
	return nil
}

// HasWriteAccess checks the identity's current permission on the repo.
func (f *GitHubFeed) HasWriteAccess(login string) (bool, error) {
	out, err := f.cmd.Run("api", fmt.Sprintf("repos/%s/collaborators/%s/permission", f.repo, login))
	if err != nil {
		// A 404 here means "not a collaborator", which is a clean no.
		if strings.Contains(out, "Not Found") {
			return false, nil
		}
		return false, fmt.Errorf("check permission for %s: %w", login, err)
	}
	var perm struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal([]byte(out), &perm); err != nil {
		return false, fmt.Errorf("parse permission JSON: %w", err)
	}
	switch perm.Permission {
	case "admin", "maintain", "write":
		return true, nil
	}
	return false, nil
}

// commentID extracts the numeric comment id from a notification ID of the
// form "owner/name#id".
func commentID(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// issueNumberFromURL pulls the trailing number off an API issue URL.
func issueNumberFromURL(url string) int {
	i := strings.LastIndex(url, "/")
	if i < 0 {
		return 0
	}
	var n int
	fmt.Sscanf(url[i+1:], "%d", &n)
	return n
}
