// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ovozbot/ovoz/models"
)

// MemoryUsers is an in-memory UserStore with the same atomicity guarantees
// as the Mongo implementation, provided by a mutex instead of conditional
// updates. Used by tests and as a throwaway dev backend.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[int64]models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[int64]models.User)}
}

func (m *MemoryUsers) Get(_ context.Context, userID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MemoryUsers) Upsert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Unique email across all other users.
	for id, existing := range m.users {
		if id != u.UserID && strings.EqualFold(existing.Email, u.Email) {
			return models.ErrDuplicateKey
		}
	}

	stored, ok := m.users[u.UserID]
	if !ok {
		stored = models.User{UserID: u.UserID, CreatedAt: u.CreatedAt}
	}
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.Phone = u.Phone
	stored.Email = u.Email
	stored.EmailVerified = u.EmailVerified
	stored.UpdatedAt = u.UpdatedAt
	m.users[u.UserID] = stored
	return nil
}

func (m *MemoryUsers) All(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryUsers) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryUsers) CountVerified(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, u := range m.users {
		if u.EmailVerified {
			n++
		}
	}
	return n, nil
}

// MemoryPolls is an in-memory PollStore. InsertBallot and Close hold the
// lock across check-and-mutate, giving the same all-or-nothing semantics as
// the conditional Mongo updates.
type MemoryPolls struct {
	mu    sync.RWMutex
	polls map[string]*models.Poll
}

func NewMemoryPolls() *MemoryPolls {
	return &MemoryPolls{polls: make(map[string]*models.Poll)}
}

func clonePoll(p *models.Poll) *models.Poll {
	cp := *p
	cp.Options = make([]models.PollOption, len(p.Options))
	copy(cp.Options, p.Options)
	cp.Ballots = make(map[string]int, len(p.Ballots))
	for k, v := range p.Ballots {
		cp.Ballots[k] = v
	}
	return &cp
}

func (m *MemoryPolls) Insert(_ context.Context, p *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.polls[p.ID]; ok {
		return models.ErrDuplicateKey
	}
	m.polls[p.ID] = clonePoll(p)
	return nil
}

func (m *MemoryPolls) Get(_ context.Context, id string) (*models.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.polls[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clonePoll(p), nil
}

func (m *MemoryPolls) All(_ context.Context) ([]models.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Poll, 0, len(m.polls))
	for _, p := range m.polls {
		out = append(out, *clonePoll(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryPolls) ExpiredActive(_ context.Context, now time.Time) ([]models.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Poll
	for _, p := range m.polls {
		if p.Active && p.ExpiresAt.Before(now) {
			out = append(out, *clonePoll(p))
		}
	}
	return out, nil
}

func (m *MemoryPolls) InsertBallot(_ context.Context, pollID string, voterID int64, optionIndex int, now time.Time) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.polls[pollID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if p.HasVoted(voterID) {
		return nil, models.ErrAlreadyVoted
	}
	if !p.Active || p.Expired(now) {
		return nil, models.ErrPollClosed
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return nil, models.ErrInvalidOption
	}

	p.Ballots[models.BallotKey(voterID)] = optionIndex
	p.Options[optionIndex].Votes++
	return clonePoll(p), nil
}

func (m *MemoryPolls) Close(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if !p.Active {
		return false, nil
	}
	p.Active = false
	return true, nil
}

func (m *MemoryPolls) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.polls))
	m.polls = make(map[string]*models.Poll)
	return n, nil
}

func (m *MemoryPolls) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.polls)), nil
}

func (m *MemoryPolls) CountActive(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.polls {
		if p.Active {
			n++
		}
	}
	return n, nil
}
