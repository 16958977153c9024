// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"log/slog"
)

// Membership statuses that count as subscribed.
const (
	StatusMember        = "member"
	StatusAdministrator = "administrator"
	StatusCreator       = "creator"
)

// MembershipOracle checks a user's membership status in a channel.
// Implemented by the chat transport adapter.
type MembershipOracle interface {
	GetMembership(ctx context.Context, channel string, userID int64) (string, error)
}

// ChannelLister supplies the channels a voter must belong to.
type ChannelLister interface {
	ChannelNames() []string
}

// Gate is the per-vote subscription precondition. With no channels
// configured everyone is eligible; otherwise the voter must hold an active
// membership role in every channel. Oracle errors count as ineligible
// (fail-closed) and are logged, not retried.
type Gate struct {
	oracle   MembershipOracle
	channels ChannelLister
}

func NewGate(oracle MembershipOracle, channels ChannelLister) *Gate {
	return &Gate{oracle: oracle, channels: channels}
}

// Channels returns the currently required channel list, for rendering
// subscribe prompts.
func (g *Gate) Channels() []string {
	return g.channels.ChannelNames()
}

func (g *Gate) Eligible(ctx context.Context, userID int64) bool {
	for _, channel := range g.channels.ChannelNames() {
		status, err := g.oracle.GetMembership(ctx, channel, userID)
		if err != nil {
			slog.Error("membership check failed", "channel", channel, "user_id", userID, "error", err)
			return false
		}
		switch status {
		case StatusMember, StatusAdministrator, StatusCreator:
		default:
			return false
		}
	}
	return true
}
