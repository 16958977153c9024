// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package subs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ovozbot/ovoz/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "subs.json"))
}

func TestAddAssignsLowestFreeID(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Add("@alpha")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := s.Add("@beta")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err := s.Add("@gamma")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID != 1 || b.ID != 2 || c.ID != 3 {
		t.Fatalf("ids = %d,%d,%d, want 1,2,3", a.ID, b.ID, c.ID)
	}

	// Deleting the middle entry frees its id for the next add.
	if _, err := s.Delete(2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	d, err := s.Add("@delta")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if d.ID != 2 {
		t.Errorf("reused id = %d, want 2", d.ID)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Delete(1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("delete from empty store error = %v, want ErrNotFound", err)
	}
}

func TestChannelNames(t *testing.T) {
	s := newTestStore(t)
	if names := s.ChannelNames(); len(names) != 0 {
		t.Fatalf("empty store names = %v", names)
	}

	if _, err := s.Add("@alpha"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.Add("@beta"); err != nil {
		t.Fatalf("add: %v", err)
	}

	names := s.ChannelNames()
	if len(names) != 2 || names[0] != "@alpha" || names[1] != "@beta" {
		t.Errorf("names = %v, want [@alpha @beta]", names)
	}
}

func TestListSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	s := NewStore(path)
	if _, err := s.Add("@alpha"); err != nil {
		t.Fatalf("add: %v", err)
	}

	reopened := NewStore(path)
	list, err := reopened.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Channel != "@alpha" {
		t.Errorf("list = %v, want [@alpha]", list)
	}
}
