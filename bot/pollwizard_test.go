// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ovozbot/ovoz/bot"
	"github.com/ovozbot/ovoz/session"
	"github.com/ovozbot/ovoz/testutil"
)

func callback(userID int64, data string) bot.Event {
	return bot.Event{
		UserID:   userID,
		ChatID:   userID,
		Callback: &bot.Callback{ID: "cb", Data: data, MessageID: 1},
	}
}

func TestPollWizardHappyPath(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	h.RegisterUser(t, 10, "voter@example.com")

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, msg(99, "Favorite color?"))
	h.Bot.HandleEvent(ctx, msg(99, "Red"))
	h.Bot.HandleEvent(ctx, msg(99, "Blue"))
	h.Bot.HandleEvent(ctx, msg(99, "Green"))
	h.Bot.HandleEvent(ctx, callback(99, "finish_options"))
	if got := h.Transport.LastSent(t).Text; !strings.Contains(got, "duration") {
		t.Fatalf("after finish = %q, want duration prompt", got)
	}

	before := time.Now()
	h.Bot.HandleEvent(ctx, msg(99, "60"))

	polls, err := h.Polls.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(polls) != 1 {
		t.Fatalf("polls = %d, want 1", len(polls))
	}
	p := polls[0]
	if p.Question != "Favorite color?" || !p.Active || p.CreatedBy != 99 {
		t.Errorf("poll = %+v", p)
	}
	if len(p.Options) != 3 || p.Options[0].Text != "Red" || p.Options[1].Text != "Blue" || p.Options[2].Text != "Green" {
		t.Errorf("options = %v, want Red/Blue/Green in order", p.Options)
	}
	wantExpiry := before.Add(60 * time.Minute)
	if p.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || p.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expires at %v, want about %v", p.ExpiresAt, wantExpiry)
	}
	if _, ok := h.Sessions.Get(99); ok {
		t.Error("draft should be cleared after creation")
	}

	// The one registered user got the announcement with a vote button.
	var announced bool
	for _, sent := range h.Transport.Sent {
		if sent.ChatID == 10 && strings.Contains(sent.Text, "New poll") {
			announced = true
			if sent.Keyboard == nil || sent.Keyboard.Rows[0][0].Data != "start_vote_"+p.ID {
				t.Errorf("announcement keyboard = %+v", sent.Keyboard)
			}
		}
	}
	if !announced {
		t.Error("registered user should receive the new-poll announcement")
	}
}

func TestPollWizardPhotoQuestion(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, bot.Event{UserID: 99, ChatID: 99, MediaID: "photo123", Caption: "Which logo?"})

	st, _ := h.Sessions.Get(99)
	if st.Draft.Step != session.StepOptions || st.Draft.MediaID != "photo123" || st.Draft.Question != "Which logo?" {
		t.Fatalf("draft = %+v", st.Draft)
	}

	// A photo without a usable caption re-prompts.
	h.Bot.HandleEvent(ctx, msg(99, "/cancel_poll"))
	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, bot.Event{UserID: 99, ChatID: 99, MediaID: "photo123", Caption: "no"})
	st, _ = h.Sessions.Get(99)
	if st.Draft.Step != session.StepQuestion {
		t.Error("short caption should not advance the draft")
	}
}

func TestFinishRequiresTwoOptions(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, msg(99, "Favorite color?"))
	h.Bot.HandleEvent(ctx, msg(99, "Red"))

	h.Bot.HandleEvent(ctx, callback(99, "finish_options"))
	if a := h.Transport.LastAnswer(t); !a.Alert || !strings.Contains(a.Text, "At least") {
		t.Fatalf("answer = %+v, want minimum-options alert", a)
	}
	st, _ := h.Sessions.Get(99)
	if st.Draft.Step != session.StepOptions {
		t.Error("draft should stay on the options step")
	}
}

func TestSecondDraftRejected(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	if got := h.Transport.LastSent(t).Text; !strings.Contains(got, "open poll session") {
		t.Fatalf("second /poll = %q", got)
	}
}

func TestCancelPoll(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, msg(99, "Favorite color?"))
	h.Bot.HandleEvent(ctx, callback(99, "cancel_poll"))
	if _, ok := h.Sessions.Get(99); ok {
		t.Error("cancel button should clear the draft")
	}

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, msg(99, "/cancel_poll"))
	if _, ok := h.Sessions.Get(99); ok {
		t.Error("/cancel_poll should clear the draft")
	}
	h.Bot.HandleEvent(ctx, msg(99, "/cancel_poll"))
	if got := h.Transport.LastSent(t).Text; !strings.Contains(got, "No open poll session") {
		t.Fatalf("cancel without draft = %q", got)
	}
}

func TestDurationValidation(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()

	h.Bot.HandleEvent(ctx, msg(99, "/poll"))
	h.Bot.HandleEvent(ctx, msg(99, "Favorite color?"))
	h.Bot.HandleEvent(ctx, msg(99, "Red"))
	h.Bot.HandleEvent(ctx, msg(99, "Blue"))
	h.Bot.HandleEvent(ctx, callback(99, "finish_options"))

	for _, bad := range []string{"abc", "0", "-5", "10081"} {
		h.Bot.HandleEvent(ctx, msg(99, bad))
		st, ok := h.Sessions.Get(99)
		if !ok || st.Draft.Step != session.StepDuration {
			t.Fatalf("duration %q should re-prompt", bad)
		}
	}

	polls, err := h.Polls.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(polls) != 0 {
		t.Errorf("polls = %d, want 0 after rejected durations", len(polls))
	}
}

func TestNonAdminCannotAuthor(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()

	h.Bot.HandleEvent(ctx, msg(10, "/poll"))
	if got := h.Transport.LastSent(t).Text; !strings.Contains(got, "Only admins") {
		t.Fatalf("non-admin /poll = %q", got)
	}
	if _, ok := h.Sessions.Get(10); ok {
		t.Error("non-admin should not get a draft")
	}
}
