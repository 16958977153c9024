// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"sync"
	"time"
)

// Registration wizard steps, in order.
type RegStep int

const (
	StepFirstName RegStep = iota
	StepLastName
	StepPhone
	StepEmail
	StepVerifyEmail
)

// Poll authoring wizard steps, in order.
type DraftStep int

const (
	StepQuestion DraftStep = iota
	StepOptions
	StepDuration
)

// Kind tags which workflow, if any, a user is currently in.
type Kind int

const (
	KindIdle Kind = iota
	KindRegistering
	KindAuthoring
	KindAwaitingChannel // admin is about to send a channel name for the subscription list
)

// Registration is the ephemeral draft collected by the registration wizard.
// Code and CodeExpiresAt are set when the wizard reaches StepVerifyEmail.
type Registration struct {
	Step      RegStep
	FirstName string
	LastName  string
	Phone     string
	Email     string

	Code          string
	CodeExpiresAt time.Time
}

// Expired reports whether the verification code deadline has passed.
// Only meaningful at StepVerifyEmail.
func (r *Registration) Expired(now time.Time) bool {
	return r.Step == StepVerifyEmail && now.After(r.CodeExpiresAt)
}

// PollDraft is the ephemeral draft collected by the poll authoring wizard.
type PollDraft struct {
	Step     DraftStep
	Question string
	MediaID  string
	Options  []string
}

// State is the tagged union of a user's current workflow position. Exactly
// one of Registration/Draft is non-nil for the non-idle kinds.
type State struct {
	Kind         Kind
	Registration *Registration
	Draft        *PollDraft
}

// Store maps user ids to transient workflow state. It is the sole arbiter
// of "whose turn it is": no two wizards can be active for the same user,
// because every setter replaces the whole State.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Get returns the user's state. The verification-code TTL is checked by the
// registration wizard on each interaction and by the reaper; an expired
// state returned here is about to be discarded either way.
func (s *Store) Get(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	return st, ok
}

// SetRegistration puts the user in the registration wizard, displacing any
// other workflow.
func (s *Store) SetRegistration(userID int64, r *Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = State{Kind: KindRegistering, Registration: r}
}

// SetDraft puts the user in the poll authoring wizard, displacing any other
// workflow.
func (s *Store) SetDraft(userID int64, d *PollDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = State{Kind: KindAuthoring, Draft: d}
}

// SetAwaitingChannel marks an admin as waiting to submit a channel name.
func (s *Store) SetAwaitingChannel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = State{Kind: KindAwaitingChannel}
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// Len is the number of live sessions, for /stats.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// PurgeExpired removes registration drafts whose verification deadline has
// passed and returns the affected user ids. Called by the reaper.
func (s *Store) PurgeExpired(now time.Time) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged []int64
	for id, st := range s.states {
		if st.Kind == KindRegistering && st.Registration.Expired(now) {
			delete(s.states, id)
			purged = append(purged, id)
		}
	}
	return purged
}
