// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ovozbot/ovoz/bot"
	"github.com/ovozbot/ovoz/engine"
	"github.com/ovozbot/ovoz/testutil"
)

func TestStartVoteShowsOptions(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)

	h.Bot.HandleEvent(ctx, callback(10, "start_vote_"+p.ID))
	edit := h.Transport.LastEdit(t)
	if !strings.Contains(edit.Text, "Choose an option") {
		t.Fatalf("edit = %q", edit.Text)
	}
	if len(edit.Keyboard.Rows) != 3 {
		t.Fatalf("keyboard rows = %d, want 2 options plus back", len(edit.Keyboard.Rows))
	}
	if edit.Keyboard.Rows[0][0].Data != "vote_"+p.ID+"_0" {
		t.Errorf("first option data = %q", edit.Keyboard.Rows[0][0].Data)
	}
}

func TestVoteCallback(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)

	h.Bot.HandleEvent(ctx, callback(10, "vote_"+p.ID+"_1"))
	if a := h.Transport.LastAnswer(t); !strings.Contains(a.Text, "counted") {
		t.Fatalf("answer = %+v", a)
	}
	edit := h.Transport.LastEdit(t)
	if !strings.Contains(edit.Text, "Blue") {
		t.Errorf("confirmation = %q, want chosen option named", edit.Text)
	}

	got, err := h.Polls.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Options[1].Votes != 1 || !got.HasVoted(10) {
		t.Errorf("stored poll = %+v", got)
	}

	// Voting again alerts and changes nothing.
	h.Bot.HandleEvent(ctx, callback(10, "vote_"+p.ID+"_0"))
	if a := h.Transport.LastAnswer(t); !a.Alert || !strings.Contains(a.Text, "already voted") {
		t.Fatalf("duplicate answer = %+v", a)
	}
	got, _ = h.Polls.Get(ctx, p.ID)
	if got.TotalVotes() != 1 {
		t.Errorf("total = %d after duplicate attempt", got.TotalVotes())
	}
}

func TestVoteOnClosedPoll(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)
	if err := h.Engine.Close(ctx, p.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	h.Bot.HandleEvent(ctx, callback(10, "start_vote_"+p.ID))
	if a := h.Transport.LastAnswer(t); !a.Alert || !strings.Contains(a.Text, "ended") {
		t.Fatalf("start vote on closed poll = %+v", a)
	}

	h.Bot.HandleEvent(ctx, callback(10, "vote_"+p.ID+"_0"))
	if a := h.Transport.LastAnswer(t); !a.Alert || !strings.Contains(a.Text, "ended") {
		t.Fatalf("vote on closed poll = %+v", a)
	}
}

func TestSubscriptionGateFlow(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)
	if _, err := h.Subs.Add("@channel"); err != nil {
		t.Fatalf("add channel: %v", err)
	}

	// Unsubscribed user gets subscribe links instead of options.
	h.Bot.HandleEvent(ctx, callback(10, "start_vote_"+p.ID))
	sent := h.Transport.LastSent(t)
	if !strings.Contains(sent.Text, "Subscribe") {
		t.Fatalf("gate prompt = %q", sent.Text)
	}
	if sent.Keyboard.Rows[0][0].URL != "https://t.me/channel" {
		t.Errorf("subscribe url = %q", sent.Keyboard.Rows[0][0].URL)
	}
	last := len(sent.Keyboard.Rows) - 1
	if sent.Keyboard.Rows[last][0].Data != "check_subscription_"+p.ID {
		t.Errorf("recheck data = %q", sent.Keyboard.Rows[last][0].Data)
	}

	// Still unsubscribed at recheck.
	h.Bot.HandleEvent(ctx, callback(10, "check_subscription_"+p.ID))
	if a := h.Transport.LastAnswer(t); !a.Alert || !strings.Contains(a.Text, "still not subscribed") {
		t.Fatalf("recheck answer = %+v", a)
	}

	// After subscribing the recheck opens the options.
	h.Oracle.Statuses[10] = engine.StatusMember
	h.Bot.HandleEvent(ctx, callback(10, "check_subscription_"+p.ID))
	if edit := h.Transport.LastEdit(t); !strings.Contains(edit.Text, "Choose an option") {
		t.Fatalf("post-subscribe edit = %q", edit.Text)
	}
}

func TestShowResultsAndBack(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)
	if _, err := h.Engine.CastVote(ctx, p.ID, 10, 0); err != nil {
		t.Fatalf("vote: %v", err)
	}

	h.Bot.HandleEvent(ctx, callback(11, "show_results_"+p.ID))
	edit := h.Transport.LastEdit(t)
	if !strings.Contains(edit.Text, "Results") || !strings.Contains(edit.Text, "100%") {
		t.Fatalf("results = %q", edit.Text)
	}
	if !strings.Contains(edit.Text, "▓") {
		t.Error("results should include a progress bar")
	}

	h.Bot.HandleEvent(ctx, callback(11, "back_to_poll_"+p.ID))
	edit = h.Transport.LastEdit(t)
	if !strings.Contains(edit.Text, "Favorite color?") {
		t.Fatalf("back edit = %q", edit.Text)
	}
	if edit.Keyboard.Rows[0][0].Data != "start_vote_"+p.ID {
		t.Errorf("back keyboard = %+v", edit.Keyboard)
	}
}

func TestInlinePollLookup(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)

	h.Bot.HandleEvent(ctx, bot.Event{
		UserID: 10,
		Inline: &bot.InlineQuery{ID: "q1", Query: "poll_" + p.ID},
	})
	if len(h.Transport.Cards) != 1 || len(h.Transport.Cards[0]) != 1 {
		t.Fatalf("cards = %v", h.Transport.Cards)
	}
	card := h.Transport.Cards[0][0]
	if !strings.Contains(card.Title, "Favorite color?") {
		t.Errorf("card title = %q", card.Title)
	}
	if card.Keyboard.Rows[0][0].Data != "start_vote_"+p.ID {
		t.Errorf("card keyboard = %+v", card.Keyboard)
	}

	// Unknown ids produce an empty answer.
	h.Bot.HandleEvent(ctx, bot.Event{
		UserID: 10,
		Inline: &bot.InlineQuery{ID: "q2", Query: "poll_missing"},
	})
	if got := h.Transport.Cards[1]; len(got) != 0 {
		t.Errorf("unknown poll cards = %v", got)
	}
}
