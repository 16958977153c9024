// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Poll option limits
const (
	MinOptions = 2
	MaxOptions = 50
)

// Poll duration limits, in minutes
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 10080 // 7 days
)

// Domain errors shared by the store and the engine
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyVoted    = errors.New("already voted")
	ErrPollClosed      = errors.New("poll closed")
	ErrInvalidOption   = errors.New("invalid option index")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrStateExpired    = errors.New("state expired")
	ErrNotEligible     = errors.New("not eligible to vote")
	ErrDeliveryFailure = errors.New("delivery failure")
)

// User is a registered bot user. The chat platform's numeric user id is the
// primary key; email is unique across all users.
type User struct {
	UserID        int64     `bson:"_id"`
	FirstName     string    `bson:"first_name"`
	LastName      string    `bson:"last_name"`
	Phone         string    `bson:"phone"`
	Email         string    `bson:"email"`
	EmailVerified bool      `bson:"email_verified"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// FullName joins first and last name, tolerating missing parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PollOption is one answer with its running vote count. The option's index
// in Poll.Options is its stable identifier.
type PollOption struct {
	Text  string `bson:"text"`
	Votes int    `bson:"votes"`
}

// Poll is a time-boxed question with 2-50 options. Ballots maps the voter id
// (as a decimal string, since document keys must be strings) to the option
// index the voter chose; it is both the dedup guard and the audit trail.
type Poll struct {
	ID        string         `bson:"_id"`
	Question  string         `bson:"question"`
	MediaID   string         `bson:"media_id,omitempty"`
	Options   []PollOption   `bson:"options"`
	CreatedBy int64          `bson:"created_by"`
	Active    bool           `bson:"active"`
	ExpiresAt time.Time      `bson:"expires_at"`
	Ballots   map[string]int `bson:"ballots"`
	CreatedAt time.Time      `bson:"created_at"`
}

// BallotKey converts a voter id into the string key used in Poll.Ballots.
func BallotKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// NewPoll validates and constructs a poll. Validation happens here, before
// the poll exists anywhere, never as a save-time fixup.
func NewPoll(question, mediaID string, options []string, createdBy int64, expiresAt, now time.Time) (*Poll, error) {
	question = strings.TrimSpace(question)
	if len(question) < 3 {
		return nil, fmt.Errorf("question must be at least 3 characters")
	}
	if len(options) < MinOptions || len(options) > MaxOptions {
		return nil, fmt.Errorf("poll must have between %d and %d options, got %d", MinOptions, MaxOptions, len(options))
	}
	opts := make([]PollOption, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, fmt.Errorf("option text cannot be empty")
		}
		opts = append(opts, PollOption{Text: o})
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("expiry must be in the future")
	}

	return &Poll{
		ID:        uuid.NewString(),
		Question:  question,
		MediaID:   mediaID,
		Options:   opts,
		CreatedBy: createdBy,
		Active:    true,
		ExpiresAt: expiresAt,
		Ballots:   make(map[string]int),
		CreatedAt: now,
	}, nil
}

// Expired reports whether the poll's voting window has passed.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// HasVoted reports whether the user already holds a ballot in this poll.
func (p *Poll) HasVoted(userID int64) bool {
	_, ok := p.Ballots[BallotKey(userID)]
	return ok
}

// TotalVotes is the sum of all option counts.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// OptionResult is one option's share of a tally.
type OptionResult struct {
	Index   int
	Text    string
	Votes   int
	Percent int
}

// Tally is a read-only snapshot of a poll's results.
type Tally struct {
	PollID   string
	Question string
	Active   bool
	Total    int
	Options  []OptionResult
}

// Summary returns per-option results in original option order.
func (p *Poll) Summary() Tally {
	total := p.TotalVotes()
	out := make([]OptionResult, len(p.Options))
	for i, o := range p.Options {
		out[i] = OptionResult{Index: i, Text: o.Text, Votes: o.Votes, Percent: percent(o.Votes, total)}
	}
	return Tally{PollID: p.ID, Question: p.Question, Active: p.Active, Total: total, Options: out}
}

// Ranked returns per-option results sorted by vote count descending.
// Ties keep original option order.
func (p *Poll) Ranked() Tally {
	t := p.Summary()
	sort.SliceStable(t.Options, func(i, j int) bool {
		return t.Options[i].Votes > t.Options[j].Votes
	})
	return t
}

// percent rounds count/total to the nearest whole percent; 0 when total is 0.
func percent(votes, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
}
