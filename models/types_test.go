// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewPollValidation(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		question  string
		options   []string
		expiresAt time.Time
		wantErr   bool
	}{
		{"valid", "Favorite color?", []string{"Red", "Blue"}, future, false},
		{"question too short", "Hi", []string{"Red", "Blue"}, future, true},
		{"one option", "Favorite color?", []string{"Red"}, future, true},
		{"no options", "Favorite color?", nil, future, true},
		{"too many options", "Favorite color?", make51(), future, true},
		{"empty option text", "Favorite color?", []string{"Red", "  "}, future, true},
		{"expiry in the past", "Favorite color?", []string{"Red", "Blue"}, now.Add(-time.Minute), true},
		{"expiry equal to now", "Favorite color?", []string{"Red", "Blue"}, now, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPoll(tt.question, "", tt.options, 1, tt.expiresAt, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !p.Active {
				t.Error("new poll should be active")
			}
			if p.ID == "" {
				t.Error("new poll should have an id")
			}
			if len(p.Ballots) != 0 {
				t.Errorf("new poll should have no ballots, got %d", len(p.Ballots))
			}
		})
	}
}

func make51() []string {
	opts := make([]string, MaxOptions+1)
	for i := range opts {
		opts[i] = "option"
	}
	return opts
}

func TestNewPollTrimsWhitespace(t *testing.T) {
	now := time.Now()
	p, err := NewPoll("  Favorite color?  ", "", []string{" Red ", "Blue"}, 1, now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Question != "Favorite color?" {
		t.Errorf("question not trimmed: %q", p.Question)
	}
	if p.Options[0].Text != "Red" {
		t.Errorf("option not trimmed: %q", p.Options[0].Text)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	p := &Poll{ExpiresAt: now.Add(time.Minute)}
	if p.Expired(now) {
		t.Error("poll before its deadline should not be expired")
	}
	if !p.Expired(now.Add(time.Minute)) {
		t.Error("poll at its deadline should be expired")
	}
	if !p.Expired(now.Add(2 * time.Minute)) {
		t.Error("poll past its deadline should be expired")
	}
}

func TestSummaryPercentages(t *testing.T) {
	p := &Poll{
		Question: "Favorite color?",
		Active:   true,
		Options: []PollOption{
			{Text: "Red", Votes: 1},
			{Text: "Blue", Votes: 1},
			{Text: "Green", Votes: 1},
		},
	}
	t1 := p.Summary()
	if t1.Total != 3 {
		t.Fatalf("total = %d, want 3", t1.Total)
	}
	// 1/3 rounds to 33.
	for i, o := range t1.Options {
		if o.Percent != 33 {
			t.Errorf("option %d percent = %d, want 33", i, o.Percent)
		}
	}
}

func TestSummaryZeroVotes(t *testing.T) {
	p := &Poll{Options: []PollOption{{Text: "Red"}, {Text: "Blue"}}}
	tl := p.Summary()
	if tl.Total != 0 {
		t.Fatalf("total = %d, want 0", tl.Total)
	}
	for _, o := range tl.Options {
		if o.Percent != 0 {
			t.Errorf("percent = %d with zero votes", o.Percent)
		}
	}
}

func TestRankedTieBreak(t *testing.T) {
	p := &Poll{
		Options: []PollOption{
			{Text: "Red", Votes: 2},
			{Text: "Blue", Votes: 5},
			{Text: "Green", Votes: 2},
			{Text: "Yellow", Votes: 7},
		},
	}
	got := p.Ranked()
	order := make([]string, len(got.Options))
	for i, o := range got.Options {
		order[i] = o.Text
	}
	want := "Yellow,Blue,Red,Green"
	if strings.Join(order, ",") != want {
		t.Errorf("ranked order = %s, want %s", strings.Join(order, ","), want)
	}
}

func TestHasVoted(t *testing.T) {
	p := &Poll{Ballots: map[string]int{BallotKey(42): 0}}
	if !p.HasVoted(42) {
		t.Error("voter 42 should have a ballot")
	}
	if p.HasVoted(43) {
		t.Error("voter 43 should not have a ballot")
	}
}

func TestFullName(t *testing.T) {
	u := &User{FirstName: "Ada", LastName: "Lovelace"}
	if got := u.FullName(); got != "Ada Lovelace" {
		t.Errorf("FullName = %q", got)
	}
	u = &User{FirstName: "Ada"}
	if got := u.FullName(); got != "Ada" {
		t.Errorf("FullName with missing last name = %q", got)
	}
}
