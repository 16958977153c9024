// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/store"
)

// broadcastDelay spaces fan-out sends to stay under the transport's
// outbound rate limit.
const broadcastDelay = 50 * time.Millisecond

// closeTimeout bounds the store and notification work done by a scheduled
// expiry callback.
const closeTimeout = 30 * time.Second

// Notifier delivers a plain text message to a user. Implemented by the
// chat transport adapter.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Engine owns the poll lifecycle: creation, voting, tallying, and the
// active->closed transition. It is safe under concurrent access from
// independent voters and from both expiry triggers, because every mutation
// is delegated to the store's conditional updates.
type Engine struct {
	polls  store.PollStore
	users  store.UserStore
	gate   *Gate
	notify Notifier
	admins []int64
	now    func() time.Time
}

func New(polls store.PollStore, users store.UserStore, gate *Gate, notify Notifier, admins []int64) *Engine {
	return &Engine{
		polls:  polls,
		users:  users,
		gate:   gate,
		notify: notify,
		admins: admins,
		now:    time.Now,
	}
}

// SetClock overrides the engine's clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Users exposes the user store for read-only collaborators (stats, /start).
func (e *Engine) Users() store.UserStore { return e.users }

// Polls exposes the poll store for read-only collaborators.
func (e *Engine) Polls() store.PollStore { return e.polls }

// Gate exposes the subscription gate so the dispatcher can pre-check
// eligibility before showing the voting keyboard.
func (e *Engine) Gate() *Gate { return e.gate }

// CreatePoll validates, stores, and schedules expiry for a new poll.
// The scheduled callback and the reaper race into the same idempotent
// Close; whichever flips the active flag announces.
func (e *Engine) CreatePoll(ctx context.Context, question, mediaID string, options []string, createdBy int64, minutes int) (*models.Poll, error) {
	if minutes < models.MinDurationMinutes || minutes > models.MaxDurationMinutes {
		return nil, fmt.Errorf("duration must be %d-%d minutes", models.MinDurationMinutes, models.MaxDurationMinutes)
	}
	now := e.now()
	expiresAt := now.Add(time.Duration(minutes) * time.Minute)

	p, err := models.NewPoll(question, mediaID, options, createdBy, expiresAt, now)
	if err != nil {
		return nil, err
	}
	if err := e.polls.Insert(ctx, p); err != nil {
		return nil, err
	}

	e.scheduleClose(p.ID, expiresAt)
	slog.Info("poll created", "poll_id", p.ID, "options", len(p.Options), "expires_at", expiresAt)
	return p, nil
}

func (e *Engine) scheduleClose(pollID string, at time.Time) {
	time.AfterFunc(time.Until(at), func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := e.Close(ctx, pollID); err != nil {
			slog.Error("scheduled poll close failed", "poll_id", pollID, "error", err)
		}
	})
}

// CastVote records one vote. Preconditions (poll active and unexpired,
// option in range, voter has no ballot, voter passes the subscription gate)
// are enforced by the store's single conditional update, so two concurrent
// votes for the same (poll, voter) pair can never both succeed.
func (e *Engine) CastVote(ctx context.Context, pollID string, voterID int64, optionIndex int) (models.Tally, error) {
	if !e.gate.Eligible(ctx, voterID) {
		return models.Tally{}, models.ErrNotEligible
	}

	p, err := e.polls.InsertBallot(ctx, pollID, voterID, optionIndex, e.now())
	if err != nil {
		return models.Tally{}, err
	}
	slog.Info("vote cast", "poll_id", pollID, "voter_id", voterID, "option", optionIndex)
	return p.Summary(), nil
}

// Tally returns a read-only snapshot of the poll's results. Safe to call
// unboundedly often; never mutates.
func (e *Engine) Tally(ctx context.Context, pollID string) (models.Tally, error) {
	p, err := e.polls.Get(ctx, pollID)
	if err != nil {
		return models.Tally{}, err
	}
	t := p.Summary()
	if p.Expired(e.now()) {
		t.Active = false
	}
	return t, nil
}

// Close flips the poll inactive and, if this caller performed the flip,
// announces the final results to every admin. Idempotent: the conditional
// flip in the store guarantees at most one caller announces, no matter how
// many timers and sweeps race here.
func (e *Engine) Close(ctx context.Context, pollID string) error {
	closedNow, err := e.polls.Close(ctx, pollID)
	if err != nil {
		return err
	}
	if !closedNow {
		return nil
	}

	p, err := e.polls.Get(ctx, pollID)
	if err != nil {
		return fmt.Errorf("load closed poll: %w", err)
	}
	slog.Info("poll closed", "poll_id", pollID, "total_votes", p.TotalVotes())

	text := formatAnnouncement(p)
	for _, admin := range e.admins {
		if err := e.notify.Notify(ctx, admin, text); err != nil {
			slog.Error("result announcement failed", "poll_id", pollID, "admin_id", admin, "error", err)
		}
	}
	return nil
}

// Broadcast sends text to every registered user, spacing sends and
// tolerating individual failures. Returns sent and failed counts.
func (e *Engine) Broadcast(ctx context.Context, text string) (sent, failed int, err error) {
	users, err := e.users.All(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, u := range users {
		if err := e.notify.Notify(ctx, u.UserID, text); err != nil {
			slog.Warn("broadcast send failed", "user_id", u.UserID, "error", err)
			failed++
		} else {
			sent++
		}
		select {
		case <-ctx.Done():
			return sent, failed, ctx.Err()
		case <-time.After(broadcastDelay):
		}
	}
	slog.Info("broadcast completed", "sent", sent, "failed", failed)
	return sent, failed, nil
}

// formatAnnouncement renders the final results, ranked by votes descending
// with ties in original option order.
func formatAnnouncement(p *models.Poll) string {
	t := p.Ranked()
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Poll finished!\n\n❓ %s\n\n📈 Final results:\n", p.Question)
	for i, o := range t.Options {
		fmt.Fprintf(&b, "%d. %s: %d votes (%d%%)\n", i+1, o.Text, o.Votes, o.Percent)
	}
	fmt.Fprintf(&b, "\n👥 Total votes: %d", t.Total)
	return b.String()
}
