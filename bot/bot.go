// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ovozbot/ovoz/engine"
	"github.com/ovozbot/ovoz/mailer"
	"github.com/ovozbot/ovoz/session"
	"github.com/ovozbot/ovoz/store"
	"github.com/ovozbot/ovoz/subs"
)

// Bot classifies inbound events by user role and session state and
// dispatches them to the matching wizard, command handler, or the voting
// engine. Step handlers catch their own failures and always leave the user
// with a visible message; nothing here can crash the dispatch loop.
type Bot struct {
	transport Transport
	engine    *engine.Engine
	users     store.UserStore
	sessions  *session.Store
	subs      *subs.Store
	mailer    mailer.Mailer
	admins    map[int64]struct{}
	now       func() time.Time
}

func New(transport Transport, eng *engine.Engine, users store.UserStore, sessions *session.Store, subStore *subs.Store, m mailer.Mailer, adminIDs []int64) *Bot {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{
		transport: transport,
		engine:    eng,
		users:     users,
		sessions:  sessions,
		subs:      subStore,
		mailer:    m,
		admins:    admins,
		now:       time.Now,
	}
}

// SetClock overrides the bot's clock. Tests only.
func (b *Bot) SetClock(now func() time.Time) { b.now = now }

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// HandleEvent routes one inbound event. Called once per update by the
// transport adapter.
func (b *Bot) HandleEvent(ctx context.Context, ev Event) {
	switch {
	case ev.Inline != nil:
		b.handleInline(ctx, ev)
	case ev.Callback != nil:
		b.handleCallback(ctx, ev)
	case strings.HasPrefix(ev.Text, "/"):
		b.handleCommand(ctx, ev)
	default:
		b.handleMessage(ctx, ev)
	}
}

// handleMessage routes free-form input to whichever wizard owns the user's
// session. Input from users with no session is ignored, matching the
// platform convention that a bot only speaks when spoken to.
func (b *Bot) handleMessage(ctx context.Context, ev Event) {
	st, ok := b.sessions.Get(ev.UserID)
	if !ok {
		return
	}
	switch st.Kind {
	case session.KindRegistering:
		b.handleRegistration(ctx, ev, st.Registration)
	case session.KindAuthoring:
		if b.isAdmin(ev.UserID) {
			b.handlePollDraft(ctx, ev, st.Draft)
		}
	case session.KindAwaitingChannel:
		if b.isAdmin(ev.UserID) {
			b.handleChannelName(ctx, ev)
		}
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, kb *Keyboard) {
	if err := b.transport.SendText(ctx, chatID, text, kb); err != nil {
		logSendError("send", chatID, err)
	}
}

func (b *Bot) edit(ctx context.Context, ref MsgRef, text string, kb *Keyboard) {
	if err := b.transport.EditText(ctx, ref, text, kb); err != nil {
		logSendError("edit", ref.ChatID, err)
	}
}

func (b *Bot) answer(ctx context.Context, queryID, text string, alert bool) {
	if err := b.transport.AnswerQuery(ctx, queryID, text, alert); err != nil {
		logSendError("answer", 0, err)
	}
}

func logSendError(op string, chatID int64, err error) {
	slog.Warn("transport call failed", "op", op, "chat_id", chatID, "error", err)
}
