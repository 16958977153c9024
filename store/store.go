// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"time"

	"github.com/ovozbot/ovoz/models"
)

// UserStore persists registered users. Upsert must be a single atomic
// operation so that a double-submitted verification code cannot race two
// inserts for the same user id.
type UserStore interface {
	// Get returns the user or models.ErrNotFound.
	Get(ctx context.Context, userID int64) (*models.User, error)

	// FindByEmail returns the user holding the (lowercase) email,
	// or models.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Upsert inserts or updates the user keyed by user id: id and creation
	// time are set only on insert, everything else is always set. Returns
	// models.ErrDuplicateKey on a uniqueness collision (e.g. email).
	Upsert(ctx context.Context, u *models.User) error

	// All returns every user, newest first.
	All(ctx context.Context) ([]models.User, error)

	Count(ctx context.Context) (int64, error)
	CountVerified(ctx context.Context) (int64, error)
}

// PollStore persists polls and is the serialization point for concurrent
// voters. Every mutation is a conditional update against the stored
// document; implementations must never read-modify-write.
type PollStore interface {
	// Get returns the poll or models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Poll, error)

	// Insert stores a newly constructed poll.
	Insert(ctx context.Context, p *models.Poll) error

	// All returns every poll, newest first.
	All(ctx context.Context) ([]models.Poll, error)

	// ExpiredActive returns polls that are still active but whose expiry
	// has passed as of now.
	ExpiredActive(ctx context.Context, now time.Time) ([]models.Poll, error)

	// InsertBallot atomically records voterID's vote for optionIndex and
	// increments that option's count, failing the whole operation if the
	// voter already holds a ballot, the poll is closed or expired, or the
	// index is out of range. Returns the updated poll on success, or one of
	// models.ErrAlreadyVoted, models.ErrPollClosed, models.ErrInvalidOption,
	// models.ErrNotFound.
	InsertBallot(ctx context.Context, pollID string, voterID int64, optionIndex int, now time.Time) (*models.Poll, error)

	// Close atomically flips active to false. closedNow reports whether
	// this call performed the flip; a second concurrent caller gets false.
	// Returns models.ErrNotFound if the poll does not exist.
	Close(ctx context.Context, id string) (closedNow bool, err error)

	// DeleteAll removes every poll and returns the deleted count.
	DeleteAll(ctx context.Context) (int64, error)

	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}
