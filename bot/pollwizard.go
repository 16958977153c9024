// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/session"
)

// fanOutDelay spaces the new-poll notifications sent to every user.
const fanOutDelay = 50 * time.Millisecond

// handlePollDraft advances an admin through question -> options -> duration.
func (b *Bot) handlePollDraft(ctx context.Context, ev Event, d *session.PollDraft) {
	switch d.Step {
	case session.StepQuestion:
		b.handleQuestionStep(ctx, ev, d)
	case session.StepOptions:
		b.handleOptionStep(ctx, ev, d)
	case session.StepDuration:
		b.handleDurationStep(ctx, ev, d)
	}
}

func (b *Bot) handleQuestionStep(ctx context.Context, ev Event, d *session.PollDraft) {
	switch {
	case ev.MediaID != "":
		caption := strings.TrimSpace(ev.Caption)
		if len(caption) < 3 {
			b.send(ctx, ev.ChatID, "❌ When sending a photo, include a caption of at least 3 characters as the question:", nil)
			return
		}
		d.MediaID = ev.MediaID
		d.Question = caption
	case ev.Text != "":
		question := strings.TrimSpace(ev.Text)
		if len(question) < 3 {
			b.send(ctx, ev.ChatID, "❌ Enter a question of at least 3 characters:", nil)
			return
		}
		d.Question = question
		d.MediaID = ""
	default:
		b.send(ctx, ev.ChatID, "❌ The question must be text or a photo with a caption:", nil)
		return
	}

	d.Step = session.StepOptions
	b.sessions.SetDraft(ev.UserID, d)
	b.send(ctx, ev.ChatID, "📝 Send the first option:", &Keyboard{
		Rows: [][]Button{{{Text: "❌ Cancel", Data: "cancel_poll"}}},
	})
}

func (b *Bot) handleOptionStep(ctx context.Context, ev Event, d *session.PollDraft) {
	option := strings.TrimSpace(ev.Text)
	if option == "" {
		b.send(ctx, ev.ChatID, "❌ Enter the option text:", nil)
		return
	}
	if len(d.Options) >= models.MaxOptions {
		b.send(ctx, ev.ChatID, fmt.Sprintf("❌ You can add at most %d options.", models.MaxOptions), nil)
		return
	}

	d.Options = append(d.Options, option)
	b.sessions.SetDraft(ev.UserID, d)

	var rows [][]Button
	if len(d.Options) >= models.MinOptions {
		rows = append(rows, []Button{{Text: "✅ Finish", Data: "finish_options"}})
	}
	rows = append(rows,
		[]Button{{Text: "➕ Add another option", Data: "add_option"}},
		[]Button{{Text: "❌ Cancel", Data: "cancel_poll"}},
	)

	var list strings.Builder
	for i, opt := range d.Options {
		fmt.Fprintf(&list, "%d. %s\n", i+1, opt)
	}
	b.send(ctx, ev.ChatID,
		fmt.Sprintf("✅ Option added! (%d/%d)\n\n📋 Options:\n%s", len(d.Options), models.MaxOptions, list.String()),
		&Keyboard{Rows: rows})
}

func (b *Bot) handleDurationStep(ctx context.Context, ev Event, d *session.PollDraft) {
	minutes, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil || minutes < models.MinDurationMinutes || minutes > models.MaxDurationMinutes {
		b.send(ctx, ev.ChatID, fmt.Sprintf("❌ Enter a number of minutes from %d to %d:", models.MinDurationMinutes, models.MaxDurationMinutes), nil)
		return
	}

	p, err := b.engine.CreatePoll(ctx, d.Question, d.MediaID, d.Options, ev.UserID, minutes)
	if err != nil {
		b.sessions.Clear(ev.UserID)
		slog.Error("poll creation failed", "admin_id", ev.UserID, "error", err)
		b.send(ctx, ev.ChatID, "❌ Creating the poll failed.", nil)
		return
	}
	b.sessions.Clear(ev.UserID)

	sent := b.fanOutPoll(ctx, p)
	b.send(ctx, ev.ChatID,
		fmt.Sprintf("✅ Poll created and sent to %d users.\n⏰ Ends at: %s", sent, p.ExpiresAt.Format("2006-01-02 15:04")),
		nil)
}

// fanOutPoll notifies every registered user about the new poll. Individual
// send failures are logged and skipped so one blocked user cannot stop the
// rest of the fan-out.
func (b *Bot) fanOutPoll(ctx context.Context, p *models.Poll) int {
	users, err := b.users.All(ctx)
	if err != nil {
		slog.Error("listing users for fan-out failed", "poll_id", p.ID, "error", err)
		return 0
	}

	text := "📊 New poll!\n\n❓ " + p.Question
	kb := pollKeyboard(p.ID)
	sent := 0
	for _, u := range users {
		if p.MediaID != "" {
			err = b.transport.SendMedia(ctx, u.UserID, p.MediaID, text, kb)
		} else {
			err = b.transport.SendText(ctx, u.UserID, text, kb)
		}
		if err != nil {
			slog.Warn("poll notification failed", "poll_id", p.ID, "user_id", u.UserID, "error", err)
		} else {
			sent++
		}
		select {
		case <-ctx.Done():
			return sent
		case <-time.After(fanOutDelay):
		}
	}
	return sent
}

// draftCallback handles the authoring wizard's inline buttons. Returns
// false when the data is not a draft action.
func (b *Bot) draftCallback(ctx context.Context, ev Event, d *session.PollDraft) bool {
	cb := ev.Callback
	switch cb.Data {
	case "add_option":
		b.answer(ctx, cb.ID, "", false)
		b.send(ctx, ev.ChatID, "📝 Send the next option:", nil)
	case "finish_options":
		if len(d.Options) < models.MinOptions {
			b.answer(ctx, cb.ID, fmt.Sprintf("❌ At least %d options are required.", models.MinOptions), true)
			return true
		}
		d.Step = session.StepDuration
		b.sessions.SetDraft(ev.UserID, d)
		b.answer(ctx, cb.ID, "", false)
		b.send(ctx, ev.ChatID,
			"⏰ Poll duration (in minutes):\n60 = 1 hour\n1440 = 1 day\n2880 = 2 days\n4320 = 3 days\n5760 = 4 days\n7200 = 5 days\n8640 = 6 days\n10080 = 7 days",
			nil)
	case "cancel_poll":
		b.sessions.Clear(ev.UserID)
		b.answer(ctx, cb.ID, "", false)
		b.send(ctx, ev.ChatID, "❌ Poll creation cancelled.", nil)
	default:
		return false
	}
	return true
}
