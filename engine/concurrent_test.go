// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/testutil"
)

// TestConcurrentSameVoter races many votes from one voter; exactly one may
// land.
func TestConcurrentSameVoter(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue", "Green"}, 60)

	const attempts = 32
	var wg sync.WaitGroup
	var succeeded, duplicated atomic.Int64

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			_, err := h.Engine.CastVote(ctx, p.ID, 100, option%3)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, models.ErrAlreadyVoted):
				duplicated.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Errorf("successes = %d, want exactly 1", succeeded.Load())
	}
	if duplicated.Load() != attempts-1 {
		t.Errorf("duplicates = %d, want %d", duplicated.Load(), attempts-1)
	}

	got, err := h.Polls.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalVotes() != 1 || len(got.Ballots) != 1 {
		t.Errorf("votes=%d ballots=%d, want 1/1", got.TotalVotes(), len(got.Ballots))
	}
}

// TestConcurrentDistinctVoters checks that parallel voters never lose or
// double-count a ballot.
func TestConcurrentDistinctVoters(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(voter int64) {
			defer wg.Done()
			if _, err := h.Engine.CastVote(ctx, p.ID, voter, int(voter)%2); err != nil {
				t.Errorf("voter %d: %v", voter, err)
			}
		}(int64(1000 + i))
	}
	wg.Wait()

	got, err := h.Polls.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalVotes() != voters {
		t.Errorf("total votes = %d, want %d", got.TotalVotes(), voters)
	}
	if len(got.Ballots) != voters {
		t.Errorf("ballots = %d, want %d", len(got.Ballots), voters)
	}
	if got.Options[0].Votes != voters/2 || got.Options[1].Votes != voters/2 {
		t.Errorf("split = %d/%d, want %d/%d", got.Options[0].Votes, got.Options[1].Votes, voters/2, voters/2)
	}
}

// TestConcurrentCloseAndVote races a close against late votes; the counts
// must stay consistent with whichever votes won.
func TestConcurrentCloseAndVote(t *testing.T) {
	h := testutil.NewHarness(t, 99)
	ctx := context.Background()
	p := h.CreatePoll(t, "Favorite color?", []string{"Red", "Blue"}, 60)

	const voters = 20
	var wg sync.WaitGroup
	var landed atomic.Int64
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(voter int64) {
			defer wg.Done()
			_, err := h.Engine.CastVote(ctx, p.ID, voter, 0)
			if err == nil {
				landed.Add(1)
			} else if !errors.Is(err, models.ErrPollClosed) {
				t.Errorf("voter %d: %v", voter, err)
			}
		}(int64(2000 + i))
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.Engine.Close(ctx, p.ID); err != nil {
			t.Errorf("close: %v", err)
		}
	}()
	wg.Wait()

	got, err := h.Polls.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Error("poll should be closed")
	}
	if int64(got.TotalVotes()) != landed.Load() {
		t.Errorf("stored votes = %d, landed = %d", got.TotalVotes(), landed.Load())
	}
}
