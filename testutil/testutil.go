// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package testutil provides in-memory fakes for the transport, mailer, and
// membership oracle, plus a pre-wired bot harness for handler tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ovozbot/ovoz/bot"
	"github.com/ovozbot/ovoz/engine"
	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/session"
	"github.com/ovozbot/ovoz/store"
	"github.com/ovozbot/ovoz/subs"
)

// SentMsg is one recorded SendText or SendMedia call.
type SentMsg struct {
	ChatID   int64
	Text     string
	MediaID  string
	Keyboard *bot.Keyboard
}

// EditMsg is one recorded EditText call.
type EditMsg struct {
	Ref      bot.MsgRef
	Text     string
	Keyboard *bot.Keyboard
}

// Answer is one recorded callback-query answer.
type Answer struct {
	QueryID string
	Text    string
	Alert   bool
}

// FakeTransport records every outbound call. Safe for concurrent use.
type FakeTransport struct {
	mu      sync.Mutex
	Sent    []SentMsg
	Edits   []EditMsg
	Answers []Answer
	Cards   [][]bot.InlineCard

	// FailSends makes SendText and SendMedia fail for the listed chat ids.
	FailSends map[int64]bool
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{FailSends: make(map[int64]bool)}
}

func (f *FakeTransport) SendText(_ context.Context, chatID int64, text string, kb *bot.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSends[chatID] {
		return fmt.Errorf("send to %d: blocked", chatID)
	}
	f.Sent = append(f.Sent, SentMsg{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (f *FakeTransport) SendMedia(_ context.Context, chatID int64, mediaID, caption string, kb *bot.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSends[chatID] {
		return fmt.Errorf("send to %d: blocked", chatID)
	}
	f.Sent = append(f.Sent, SentMsg{ChatID: chatID, Text: caption, MediaID: mediaID, Keyboard: kb})
	return nil
}

func (f *FakeTransport) EditText(_ context.Context, ref bot.MsgRef, text string, kb *bot.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, EditMsg{Ref: ref, Text: text, Keyboard: kb})
	return nil
}

func (f *FakeTransport) AnswerQuery(_ context.Context, queryID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Answers = append(f.Answers, Answer{QueryID: queryID, Text: text, Alert: alert})
	return nil
}

func (f *FakeTransport) AnswerInline(_ context.Context, _ string, cards []bot.InlineCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cards = append(f.Cards, cards)
	return nil
}

// LastSent returns the most recent send, failing the test if there is none.
func (f *FakeTransport) LastSent(t *testing.T) SentMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.Sent[len(f.Sent)-1]
}

// LastAnswer returns the most recent callback answer, failing the test if
// there is none.
func (f *FakeTransport) LastAnswer(t *testing.T) Answer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Answers) == 0 {
		t.Fatal("no callback answers")
	}
	return f.Answers[len(f.Answers)-1]
}

// LastEdit returns the most recent edit, failing the test if there is none.
func (f *FakeTransport) LastEdit(t *testing.T) EditMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Edits) == 0 {
		t.Fatal("no edits")
	}
	return f.Edits[len(f.Edits)-1]
}

// Notification is one recorded Notify call.
type Notification struct {
	UserID int64
	Text   string
}

// FakeNotifier records engine notifications.
type FakeNotifier struct {
	mu      sync.Mutex
	Sent    []Notification
	FailFor map[int64]bool
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{FailFor: make(map[int64]bool)}
}

func (f *FakeNotifier) Notify(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFor[userID] {
		return fmt.Errorf("notify %d: blocked", userID)
	}
	f.Sent = append(f.Sent, Notification{UserID: userID, Text: text})
	return nil
}

// Notifications returns a snapshot of everything delivered so far.
func (f *FakeNotifier) Notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.Sent))
	copy(out, f.Sent)
	return out
}

// SentMail is one recorded verification-code send.
type SentMail struct {
	To   string
	Code string
}

// FakeMailer records codes instead of delivering them. Fail makes every send
// report a delivery failure.
type FakeMailer struct {
	mu   sync.Mutex
	Mail []SentMail
	Fail bool
}

func (f *FakeMailer) SendCode(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return fmt.Errorf("%w: smtp unreachable", models.ErrDeliveryFailure)
	}
	f.Mail = append(f.Mail, SentMail{To: to, Code: code})
	return nil
}

// LastCode returns the most recent code sent, failing the test if there is
// none.
func (f *FakeMailer) LastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Mail) == 0 {
		t.Fatal("no verification mail sent")
	}
	return f.Mail[len(f.Mail)-1].Code
}

// FakeOracle reports a fixed membership status per user. Users not listed
// get "left". Err, when set, fails every lookup.
type FakeOracle struct {
	Statuses map[int64]string
	Err      error
}

func (f *FakeOracle) GetMembership(_ context.Context, _ string, userID int64) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	if status, ok := f.Statuses[userID]; ok {
		return status, nil
	}
	return "left", nil
}

// Harness is a fully wired bot over in-memory stores and fakes.
type Harness struct {
	Bot       *bot.Bot
	Engine    *engine.Engine
	Transport *FakeTransport
	Notifier  *FakeNotifier
	Mailer    *FakeMailer
	Oracle    *FakeOracle
	Users     *store.MemoryUsers
	Polls     *store.MemoryPolls
	Sessions  *session.Store
	Subs      *subs.Store
}

// NewHarness builds a bot with memory stores, fakes for every external
// surface, and the given admin ids. The subs file lives in t.TempDir(), so
// the gate starts with no required channels.
func NewHarness(t *testing.T, adminIDs ...int64) *Harness {
	t.Helper()

	transport := NewFakeTransport()
	notifier := NewFakeNotifier()
	oracle := &FakeOracle{Statuses: make(map[int64]string)}
	m := &FakeMailer{}
	users := store.NewMemoryUsers()
	polls := store.NewMemoryPolls()
	sessions := session.NewStore()
	subStore := subs.NewStore(filepath.Join(t.TempDir(), "subs.json"))

	gate := engine.NewGate(oracle, subStore)
	eng := engine.New(polls, users, gate, notifier, adminIDs)
	b := bot.New(transport, eng, users, sessions, subStore, m, adminIDs)

	return &Harness{
		Bot:       b,
		Engine:    eng,
		Transport: transport,
		Notifier:  notifier,
		Mailer:    m,
		Oracle:    oracle,
		Users:     users,
		Polls:     polls,
		Sessions:  sessions,
		Subs:      subStore,
	}
}

// FreezeClock pins both the bot's and the engine's clock to at.
func (h *Harness) FreezeClock(at time.Time) {
	h.Bot.SetClock(func() time.Time { return at })
	h.Engine.SetClock(func() time.Time { return at })
}

// CreatePoll inserts a poll directly through the engine, failing the test on
// error.
func (h *Harness) CreatePoll(t *testing.T, question string, options []string, minutes int) *models.Poll {
	t.Helper()
	p, err := h.Engine.CreatePoll(context.Background(), question, "", options, 1, minutes)
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return p
}

// RegisterUser inserts a verified user directly into the store.
func (h *Harness) RegisterUser(t *testing.T, userID int64, email string) {
	t.Helper()
	now := time.Now()
	err := h.Users.Upsert(context.Background(), &models.User{
		UserID:        userID,
		FirstName:     "Test",
		LastName:      "User",
		Phone:         "+15550100",
		Email:         email,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("register user %d: %v", userID, err)
	}
}

// RequireErrIs fails the test unless errors.Is(err, target).
func RequireErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got error %v, want %v", err, target)
	}
}
