// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/session"
)

// handleCallback routes a button press: first to the authoring wizard when
// the sender is an admin with an open draft, then to the voting sub-flow.
func (b *Bot) handleCallback(ctx context.Context, ev Event) {
	cb := ev.Callback

	if b.isAdmin(ev.UserID) {
		if st, ok := b.sessions.Get(ev.UserID); ok && st.Kind == session.KindAuthoring {
			if b.draftCallback(ctx, ev, st.Draft) {
				return
			}
		}
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "start_vote_"):
		b.cbStartVote(ctx, ev, strings.TrimPrefix(data, "start_vote_"))
	case strings.HasPrefix(data, "check_subscription_"):
		b.cbCheckSubscription(ctx, ev, strings.TrimPrefix(data, "check_subscription_"))
	case strings.HasPrefix(data, "back_to_poll_"):
		b.cbBackToPoll(ctx, ev, strings.TrimPrefix(data, "back_to_poll_"))
	case strings.HasPrefix(data, "show_results_"):
		b.cbShowResults(ctx, ev, strings.TrimPrefix(data, "show_results_"))
	case strings.HasPrefix(data, "vote_"):
		b.cbVote(ctx, ev, strings.TrimPrefix(data, "vote_"))
	}
}

func callbackRef(ev Event) MsgRef {
	return MsgRef{ChatID: ev.ChatID, MessageID: ev.Callback.MessageID, InlineID: ev.Callback.InlineID}
}

// activePoll loads the poll and answers the query with an alert when it is
// gone or no longer votable.
func (b *Bot) activePoll(ctx context.Context, ev Event, pollID string) (*models.Poll, bool) {
	p, err := b.engine.Polls().Get(ctx, pollID)
	if err != nil || !p.Active || p.Expired(b.now()) {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			slog.Error("poll lookup failed", "poll_id", pollID, "error", err)
		}
		b.answer(ctx, ev.Callback.ID, "❌ This poll has ended or no longer exists.", true)
		return nil, false
	}
	return p, true
}

// cbStartVote shows the option keyboard, after the subscription gate.
func (b *Bot) cbStartVote(ctx context.Context, ev Event, pollID string) {
	p, ok := b.activePoll(ctx, ev, pollID)
	if !ok {
		return
	}

	if !b.engine.Gate().Eligible(ctx, ev.UserID) {
		b.promptSubscription(ctx, ev, pollID)
		return
	}

	if p.HasVoted(ev.UserID) {
		b.answer(ctx, ev.Callback.ID, "❌ You have already voted.", true)
		return
	}

	b.edit(ctx, callbackRef(ev), "📊 Poll:\n\n❓ "+p.Question+"\n\n👇 Choose an option:", optionsKeyboard(p))
	b.answer(ctx, ev.Callback.ID, "", false)
}

// promptSubscription answers the query and shows subscribe links plus a
// re-check button, so the user can confirm membership without restarting
// the vote flow.
func (b *Bot) promptSubscription(ctx context.Context, ev Event, pollID string) {
	b.answer(ctx, ev.Callback.ID, "Subscribe to the channel(s) first!", false)

	text := "❌ Subscribe to all channels to vote!"
	kb := subscribeKeyboard(b.engine.Gate().Channels(), pollID)
	if ev.Callback.InlineID != "" {
		b.edit(ctx, callbackRef(ev), text, kb)
	} else {
		b.send(ctx, ev.ChatID, text, kb)
	}
}

// cbCheckSubscription is the re-check entry point behind the "I subscribed"
// button.
func (b *Bot) cbCheckSubscription(ctx context.Context, ev Event, pollID string) {
	if !b.engine.Gate().Eligible(ctx, ev.UserID) {
		b.answer(ctx, ev.Callback.ID, "❌ You are still not subscribed!", true)
		return
	}
	p, ok := b.activePoll(ctx, ev, pollID)
	if !ok {
		return
	}
	b.edit(ctx, callbackRef(ev), "📊 Poll:\n\n❓ "+p.Question+"\n\n👇 Choose an option:", optionsKeyboard(p))
	b.answer(ctx, ev.Callback.ID, "✅ Subscription confirmed!", false)
}

func (b *Bot) cbBackToPoll(ctx context.Context, ev Event, pollID string) {
	p, ok := b.activePoll(ctx, ev, pollID)
	if !ok {
		return
	}
	b.edit(ctx, callbackRef(ev), pollCardText(p), pollKeyboard(p.ID))
	b.answer(ctx, ev.Callback.ID, "", false)
}

// cbVote casts the vote. All preconditions are enforced atomically by the
// engine; this handler only translates the outcome for the user.
func (b *Bot) cbVote(ctx context.Context, ev Event, rest string) {
	// Data is vote_<pollID>_<index>; poll ids contain no underscores.
	pollID, idxStr, ok := strings.Cut(rest, "_")
	if !ok {
		b.answer(ctx, ev.Callback.ID, "❌ Something went wrong.", true)
		return
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		b.answer(ctx, ev.Callback.ID, "❌ Something went wrong.", true)
		return
	}

	tally, err := b.engine.CastVote(ctx, pollID, ev.UserID, idx)
	switch {
	case errors.Is(err, models.ErrAlreadyVoted):
		b.answer(ctx, ev.Callback.ID, "❌ You have already voted.", true)
		return
	case errors.Is(err, models.ErrPollClosed), errors.Is(err, models.ErrNotFound):
		b.answer(ctx, ev.Callback.ID, "❌ This poll has ended or no longer exists.", true)
		return
	case errors.Is(err, models.ErrInvalidOption):
		b.answer(ctx, ev.Callback.ID, "❌ That option does not exist.", true)
		return
	case errors.Is(err, models.ErrNotEligible):
		b.promptSubscription(ctx, ev, pollID)
		return
	case err != nil:
		slog.Error("vote failed", "poll_id", pollID, "voter_id", ev.UserID, "error", err)
		b.answer(ctx, ev.Callback.ID, "❌ Something went wrong.", true)
		return
	}

	chosen := tally.Options[idx].Text
	b.edit(ctx, callbackRef(ev),
		"📊 Poll:\n\n❓ "+tally.Question+"\n\n✅ You voted for \""+chosen+"\"!",
		votedKeyboard(pollID))
	b.answer(ctx, ev.Callback.ID, "✅ Your vote has been counted!", false)
}

// cbShowResults renders the live tally. Works on closed polls too.
func (b *Bot) cbShowResults(ctx context.Context, ev Event, pollID string) {
	tally, err := b.engine.Tally(ctx, pollID)
	if err != nil {
		b.answer(ctx, ev.Callback.ID, "❌ Poll not found.", true)
		return
	}
	b.edit(ctx, callbackRef(ev), resultsText(tally), resultsKeyboard(pollID))
	b.answer(ctx, ev.Callback.ID, "", false)
}

// handleInline resolves "poll_<id>" lookups to a sharable poll card.
func (b *Bot) handleInline(ctx context.Context, ev Event) {
	q := ev.Inline
	if !strings.HasPrefix(q.Query, "poll_") {
		b.answerInlineEmpty(ctx, q.ID)
		return
	}

	pollID := strings.TrimPrefix(q.Query, "poll_")
	p, err := b.engine.Polls().Get(ctx, pollID)
	if err != nil {
		b.answerInlineEmpty(ctx, q.ID)
		return
	}

	description := "Finished poll"
	if p.Active && !p.Expired(b.now()) {
		description = "Active poll, tap to vote"
	}

	card := InlineCard{
		ID:          "poll_" + p.ID,
		Title:       "📊 " + p.Question,
		Description: description,
		Text:        pollCardText(p),
		Keyboard:    inlineCardKeyboard(p.ID),
	}
	if err := b.transport.AnswerInline(ctx, q.ID, []InlineCard{card}); err != nil {
		logSendError("inline", 0, err)
	}
}

func (b *Bot) answerInlineEmpty(ctx context.Context, queryID string) {
	if err := b.transport.AnswerInline(ctx, queryID, nil); err != nil {
		logSendError("inline", 0, err)
	}
}
