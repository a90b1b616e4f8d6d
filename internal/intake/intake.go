// Package intake turns external mention-style notifications into queued
// missions. The pipeline per notification is: fetched → stale? discard →
// self-authored? discard → already acknowledged? discard → authorized? else
// reply-error → mission inserted → acknowledged. The mission line is durably
// written before the acknowledgment marker, so a crash between the two costs
// at most one harmless duplicate mission, never a lost command.
package intake

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/sukria/koan-sub000/internal/db"
	"github.com/sukria/koan-sub000/internal/queue"
)

// Options tunes the intake pipeline.
type Options struct {
	SelfLogin    string
	AllowedUsers []string // names or "*"; advisory layer only
	MaxAge       time.Duration
	PollBase     time.Duration
	PollCap      time.Duration
}

// Intake polls feeds, deduplicates, authorizes, and inserts missions.
type Intake struct {
	feeds []Feed
	queue *queue.Queue
	db    *db.DB // optional audit ledger
	log   zerolog.Logger
	opts  Options

	// Volatile dedup tier: fast, lost on restart. The durable acknowledgment
	// marker on the source is the restart authority.
	seen *gocache.Cache

	interval time.Duration
	lastPoll time.Time
	now      func() time.Time
}

// New creates an Intake over the given feeds. database may be nil.
func New(feeds []Feed, q *queue.Queue, database *db.DB, log zerolog.Logger, opts Options) *Intake {
	if opts.PollBase <= 0 {
		opts.PollBase = 30 * time.Second
	}
	if opts.PollCap < opts.PollBase {
		opts.PollCap = opts.PollBase
	}
	return &Intake{
		feeds:    feeds,
		queue:    q,
		db:       database,
		log:      log,
		opts:     opts,
		seen:     gocache.New(48*time.Hour, time.Hour),
		interval: opts.PollBase,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (in *Intake) SetNow(now func() time.Time) {
	in.now = now
}

// Interval returns the current poll interval, for introspection and tests.
func (in *Intake) Interval() time.Duration {
	return in.interval
}

// MaybePoll polls the feeds if the backoff interval has elapsed. Empty polls
// double the interval up to the cap; any actionable notification, whether it
// inserted a mission or drew a rejection reply, resets it to the base.
// Returns the number of missions inserted.
func (in *Intake) MaybePoll() int {
	now := in.now()
	if !in.lastPoll.IsZero() && now.Sub(in.lastPoll) < in.interval {
		return 0
	}
	in.lastPoll = now

	inserted, acted := in.pollOnce(now)
	if acted > 0 {
		in.interval = in.opts.PollBase
	} else {
		in.interval *= 2
		if in.interval > in.opts.PollCap {
			in.interval = in.opts.PollCap
		}
	}
	return inserted
}

// pollOnce fetches every feed and processes each notification. Feed errors
// are logged and skipped; intake must never take the loop down.
func (in *Intake) pollOnce(now time.Time) (inserted, acted int) {
	for _, feed := range in.feeds {
		items, err := feed.Fetch()
		if err != nil {
			in.log.Warn().Err(err).Msg("intake: fetch failed")
			continue
		}
		for _, n := range items {
			added, actionable, err := in.process(feed, n, now)
			if added {
				inserted++
			}
			if actionable {
				acted++
			}
			if err != nil {
				in.log.Warn().Err(err).Str("notification", n.ID).Msg("intake: processing failed")
			}
		}
	}
	return inserted, acted
}

// process runs the state machine for one notification. added reports that a
// mission was inserted; actionable reports that the notification demanded a
// response of any kind (an insertion or a rejection), as opposed to being
// discarded as stale, self-authored, or already seen.
func (in *Intake) process(feed Feed, n Notification, now time.Time) (added, actionable bool, err error) {
	// Stale: protects against chewing through a backlog after downtime.
	if in.opts.MaxAge > 0 && now.Sub(n.CreatedAt) > in.opts.MaxAge {
		return false, false, nil
	}

	// Self-authored mentions are our own replies echoing back.
	if n.Author == in.opts.SelfLogin {
		return false, false, nil
	}

	// Volatile tier first: cheap, avoids refetching reactions.
	if _, hit := in.seen.Get(n.ID); hit {
		return false, false, nil
	}

	// Durable tier: the marker on the source survives restarts.
	acked, err := feed.Acknowledged(n)
	if err != nil {
		return false, false, err
	}
	if acked {
		in.seen.Set(n.ID, true, gocache.DefaultExpiration)
		return false, false, nil
	}

	// Authorization. The allow-list is advisory; live write access to the
	// target repository is the security boundary and is always checked.
	if !in.allowListed(n.Author) {
		if err := in.reject(feed, n, "you are not on the allow list for this agent"); err != nil {
			return false, false, err
		}
		return false, true, nil
	}
	hasAccess, err := feed.HasWriteAccess(n.Author)
	if err != nil {
		return false, false, err
	}
	if !hasAccess {
		if err := in.reject(feed, n, "you need write access to this repository to queue missions"); err != nil {
			return false, false, err
		}
		return false, true, nil
	}

	// Insert the mission first, then acknowledge. A crash between the two
	// re-processes the notification and duplicates the mission, which is
	// the accepted cost of never losing a command.
	mission := queue.Mission{Text: in.commandText(n), Project: n.Project}
	if err := in.queue.Add(mission); err != nil {
		return false, false, fmt.Errorf("insert mission: %w", err)
	}
	in.audit(n, "inserted", mission.Text)

	if err := feed.Acknowledge(n); err != nil {
		return true, true, fmt.Errorf("acknowledge after insert: %w", err)
	}
	in.audit(n, "acknowledged", "")
	in.seen.Set(n.ID, true, gocache.DefaultExpiration)

	in.log.Info().Str("author", n.Author).Str("project", n.Project).Str("mission", mission.Text).Msg("intake: mission queued")
	return true, true, nil
}

// reject replies politely, acknowledges so the notification isn't retried,
// and records the rejection. Unauthorized commands never propagate as
// loop-level errors.
func (in *Intake) reject(feed Feed, n Notification, why string) error {
	if err := feed.Reply(n, fmt.Sprintf("Sorry @%s, %s.", n.Author, why)); err != nil {
		in.log.Warn().Err(err).Str("notification", n.ID).Msg("intake: rejection reply failed")
	}
	if err := feed.Acknowledge(n); err != nil {
		return err
	}
	in.seen.Set(n.ID, true, gocache.DefaultExpiration)
	in.audit(n, "rejected", why)
	return nil
}

// allowListed checks the advisory allow-list: exact name match or wildcard.
// An empty list allows everyone through to the write-access check.
func (in *Intake) allowListed(login string) bool {
	if len(in.opts.AllowedUsers) == 0 {
		return true
	}
	for _, u := range in.opts.AllowedUsers {
		if u == "*" || u == login {
			return true
		}
	}
	return false
}

// commandText extracts the mission text from the notification body: the
// content after our mention, collapsed to one line.
func (in *Intake) commandText(n Notification) string {
	body := n.Body
	mention := "@" + in.opts.SelfLogin
	if i := strings.Index(body, mention); i >= 0 {
		body = body[i+len(mention):]
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return strings.TrimSpace(n.Body)
	}
	return strings.Join(fields, " ")
}

// audit records the event in the ledger when one is configured.
func (in *Intake) audit(n Notification, event, detail string) {
	if in.db == nil {
		return
	}
	if err := in.db.LogNotificationEvent(n.ID, n.Author, event, detail); err != nil {
		in.log.Warn().Err(err).Msg("intake: audit write failed")
	}
}
