// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package subs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ovozbot/ovoz/models"
)

// Sub is one required channel, identified by a small numeric id that admins
// use with /delete.
type Sub struct {
	ID      int    `json:"id"`
	Channel string `json:"channel_name"`
}

// Store is a JSON-file-backed list of channels a voter must be subscribed
// to. Small and admin-edited; a mutex around whole-file read/write is
// plenty.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) read() ([]Sub, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read subs file: %w", err)
	}
	var subs []Sub
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("parse subs file: %w", err)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (s *Store) write(subs []Sub) error {
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subs: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write subs file: %w", err)
	}
	return nil
}

// List returns all subscriptions sorted by id.
func (s *Store) List() ([]Sub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// ChannelNames returns just the channel identifiers, for the gate. Errors
// degrade to an empty list, which makes everyone eligible; the gate is a
// precondition on voting, not a security boundary.
func (s *Store) ChannelNames() []string {
	subs, err := s.List()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(subs))
	for _, sub := range subs {
		names = append(names, sub.Channel)
	}
	return names
}

// Add stores a new channel under the lowest free id.
func (s *Store) Add(channel string) (Sub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.read()
	if err != nil {
		return Sub{}, err
	}

	id := len(subs) + 1
	for i, sub := range subs {
		if sub.ID != i+1 {
			id = i + 1
			break
		}
	}

	newSub := Sub{ID: id, Channel: channel}
	subs = append(subs, newSub)
	if err := s.write(subs); err != nil {
		return Sub{}, err
	}
	return newSub, nil
}

// Delete removes the subscription with the given id, returning it, or
// models.ErrNotFound.
func (s *Store) Delete(id int) (Sub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.read()
	if err != nil {
		return Sub{}, err
	}

	for i, sub := range subs {
		if sub.ID == id {
			if err := s.write(append(subs[:i], subs[i+1:]...)); err != nil {
				return Sub{}, err
			}
			return sub, nil
		}
	}
	return Sub{}, models.ErrNotFound
}
