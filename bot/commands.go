// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/session"
)

const adminOnlyMsg = "❌ Only admins can use this command."

// handleCommand dispatches slash commands. Unknown commands are ignored.
func (b *Bot) handleCommand(ctx context.Context, ev Event) {
	fields := strings.Fields(ev.Text)
	if len(fields) == 0 {
		return
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "start":
		b.cmdStart(ctx, ev)
	case "help":
		b.cmdHelp(ctx, ev)
	case "poll":
		b.adminOnly(ctx, ev, b.cmdPoll)
	case "cancel_poll":
		b.adminOnly(ctx, ev, b.cmdCancelPoll)
	case "allpoll":
		b.adminOnly(ctx, ev, b.cmdAllPoll)
	case "clearpoll":
		b.adminOnly(ctx, ev, b.cmdClearPoll)
	case "stats":
		b.adminOnly(ctx, ev, b.cmdStats)
	case "broadcast":
		b.adminOnly(ctx, ev, b.cmdBroadcast)
	case "create_sub":
		b.adminOnly(ctx, ev, b.cmdCreateSub)
	case "all_sub":
		b.adminOnly(ctx, ev, b.cmdAllSub)
	case "delete":
		b.adminOnly(ctx, ev, b.cmdDeleteSub)
	}
}

func (b *Bot) adminOnly(ctx context.Context, ev Event, handler func(context.Context, Event)) {
	if !b.isAdmin(ev.UserID) {
		b.send(ctx, ev.ChatID, adminOnlyMsg, nil)
		return
	}
	handler(ctx, ev)
}

// cmdStart begins registration, or short-circuits for known users.
func (b *Bot) cmdStart(ctx context.Context, ev Event) {
	_, err := b.users.Get(ctx, ev.UserID)
	switch {
	case err == nil:
		b.send(ctx, ev.ChatID, "✅ You are already registered.\n📊 Your details are saved.", nil)
		return
	case !errors.Is(err, models.ErrNotFound):
		slog.Error("start: user lookup failed", "user_id", ev.UserID, "error", err)
		b.send(ctx, ev.ChatID, "❌ Something went wrong. Please try again.", nil)
		return
	}

	b.sessions.SetRegistration(ev.UserID, &session.Registration{Step: session.StepFirstName})
	b.send(ctx, ev.ChatID, "👋 Hello! Enter your first name to register:", nil)
}

func (b *Bot) cmdHelp(ctx context.Context, ev Event) {
	var sb strings.Builder
	sb.WriteString("🤖 Bot help:\n\n")
	sb.WriteString("👤 User commands:\n/start - Register\n/help - This message\n\n")
	if b.isAdmin(ev.UserID) {
		sb.WriteString("👑 Admin commands:\n")
		sb.WriteString("/stats - Bot statistics\n")
		sb.WriteString("/broadcast [text] - Message every user\n\n")
		sb.WriteString("/poll - Create a new poll\n")
		sb.WriteString("/cancel_poll - Cancel poll creation\n")
		sb.WriteString("/allpoll - List all polls\n")
		sb.WriteString("/clearpoll - Delete all polls\n\n")
		sb.WriteString("/create_sub - Require a channel subscription\n")
		sb.WriteString("/all_sub - List required channels\n")
		sb.WriteString("/delete [id] - Remove a required channel\n\n")
	}
	sb.WriteString("📊 Polls:\n")
	sb.WriteString("• Subscribe to the required channels to vote\n")
	sb.WriteString("• Each poll accepts one vote per person\n")
	sb.WriteString("• Results are visible at any time")
	b.send(ctx, ev.ChatID, sb.String(), nil)
}

func (b *Bot) cmdPoll(ctx context.Context, ev Event) {
	if st, ok := b.sessions.Get(ev.UserID); ok && st.Kind == session.KindAuthoring {
		b.send(ctx, ev.ChatID, "❌ You already have an open poll session.\n🛑 Finish it or cancel with /cancel_poll.", nil)
		return
	}
	b.sessions.SetDraft(ev.UserID, &session.PollDraft{Step: session.StepQuestion})
	b.send(ctx, ev.ChatID, "❓ Send the poll question:", nil)
}

func (b *Bot) cmdCancelPoll(ctx context.Context, ev Event) {
	if st, ok := b.sessions.Get(ev.UserID); ok && st.Kind == session.KindAuthoring {
		b.sessions.Clear(ev.UserID)
		b.send(ctx, ev.ChatID, "✅ Poll session cancelled.", nil)
		return
	}
	b.send(ctx, ev.ChatID, "❌ No open poll session found.", nil)
}

func (b *Bot) cmdAllPoll(ctx context.Context, ev Event) {
	polls, err := b.engine.Polls().All(ctx)
	if err != nil {
		slog.Error("poll listing failed", "error", err)
		b.send(ctx, ev.ChatID, "❌ Fetching the polls failed.", nil)
		return
	}
	if len(polls) == 0 {
		b.send(ctx, ev.ChatID, "📭 There are no polls yet.", nil)
		return
	}
	for i, p := range polls {
		status := "Closed"
		if p.Active {
			status = "Active"
		}
		b.send(ctx, ev.ChatID, fmt.Sprintf(
			"📊 %d. %s\n\n🗳 Options: %d\n⏰ Ends at: %s\n🔵 Status: %s",
			i+1, p.Question, len(p.Options), p.ExpiresAt.Format("2006-01-02 15:04"), status), nil)
	}
}

func (b *Bot) cmdClearPoll(ctx context.Context, ev Event) {
	n, err := b.engine.Polls().DeleteAll(ctx)
	if err != nil {
		slog.Error("poll clear failed", "error", err)
		b.send(ctx, ev.ChatID, "❌ Deleting the polls failed.", nil)
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf("🗑 Deleted %d polls.", n), nil)
}

func (b *Bot) cmdStats(ctx context.Context, ev Event) {
	totalUsers, err := b.users.Count(ctx)
	if err != nil {
		b.statsError(ctx, ev, err)
		return
	}
	verified, err := b.users.CountVerified(ctx)
	if err != nil {
		b.statsError(ctx, ev, err)
		return
	}
	activePolls, err := b.engine.Polls().CountActive(ctx)
	if err != nil {
		b.statsError(ctx, ev, err)
		return
	}
	totalPolls, err := b.engine.Polls().Count(ctx)
	if err != nil {
		b.statsError(ctx, ev, err)
		return
	}

	b.send(ctx, ev.ChatID, fmt.Sprintf(
		"📊 Bot statistics:\n\n👥 Total users: %d\n✅ Verified users: %d\n📊 Active polls: %d\n📋 Total polls: %d\n💾 Live sessions: %d",
		totalUsers, verified, activePolls, totalPolls, b.sessions.Len()), nil)
}

func (b *Bot) statsError(ctx context.Context, ev Event, err error) {
	slog.Error("stats query failed", "error", err)
	b.send(ctx, ev.ChatID, "❌ Fetching statistics failed.", nil)
}

func (b *Bot) cmdBroadcast(ctx context.Context, ev Event) {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ev.Text), "/broadcast"))
	if text == "" {
		b.send(ctx, ev.ChatID, "❌ The message text cannot be empty.\n\nExample: /broadcast Hello everyone!", nil)
		return
	}

	sent, failed, err := b.engine.Broadcast(ctx, "📢 Admin message:\n\n"+text)
	if err != nil {
		slog.Error("broadcast failed", "error", err)
		b.send(ctx, ev.ChatID, "❌ Sending the broadcast failed.", nil)
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf(
		"✅ Broadcast finished!\n\n📤 Delivered: %d\n❌ Failed: %d\n👥 Total: %d",
		sent, failed, sent+failed), nil)
}

func (b *Bot) cmdCreateSub(ctx context.Context, ev Event) {
	b.sessions.SetAwaitingChannel(ev.UserID)
	b.send(ctx, ev.ChatID, "Send the channel name (for example: @mychannel)", nil)
}

func (b *Bot) cmdAllSub(ctx context.Context, ev Event) {
	list, err := b.subs.List()
	if err != nil {
		slog.Error("subs listing failed", "error", err)
		b.send(ctx, ev.ChatID, "❌ Reading the channel list failed.", nil)
		return
	}
	if len(list) == 0 {
		b.send(ctx, ev.ChatID, "Nothing here yet.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("📋 Required channels:\n\n")
	for _, s := range list {
		fmt.Fprintf(&sb, "%d. %s\n", s.ID, s.Channel)
	}
	b.send(ctx, ev.ChatID, sb.String(), nil)
}

func (b *Bot) cmdDeleteSub(ctx context.Context, ev Event) {
	fields := strings.Fields(ev.Text)
	if len(fields) < 2 {
		b.send(ctx, ev.ChatID, "❌ Usage: /delete [id]", nil)
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		b.send(ctx, ev.ChatID, "❌ Usage: /delete [id]", nil)
		return
	}

	sub, err := b.subs.Delete(id)
	if errors.Is(err, models.ErrNotFound) {
		b.send(ctx, ev.ChatID, fmt.Sprintf("❌ ID %d not found.", id), nil)
		return
	}
	if err != nil {
		slog.Error("sub delete failed", "id", id, "error", err)
		b.send(ctx, ev.ChatID, "❌ Deleting failed.", nil)
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf("🗑 Removed!\nID: %d\nChannel: %s", sub.ID, sub.Channel), nil)
}

// handleChannelName stores the channel an admin sends after /create_sub.
// Anything that is not an @name is ignored, leaving the prompt open.
func (b *Bot) handleChannelName(ctx context.Context, ev Event) {
	text := strings.TrimSpace(ev.Text)
	if !strings.HasPrefix(text, "@") {
		return
	}
	b.sessions.Clear(ev.UserID)

	sub, err := b.subs.Add(text)
	if err != nil {
		slog.Error("sub add failed", "channel", text, "error", err)
		b.send(ctx, ev.ChatID, "❌ Saving failed: "+err.Error(), nil)
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf("✅ Saved:\nID: %d\nChannel: %s", sub.ID, sub.Channel), nil)
}
