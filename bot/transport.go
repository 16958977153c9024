// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import "context"

// Button is one keyboard button. Exactly one of Data, URL, SwitchInline, or
// RequestContact is meaningful.
type Button struct {
	Text           string
	Data           string // callback data
	URL            string
	SwitchInline   string // inline-mode share query
	RequestContact bool   // reply keyboards only
}

// Keyboard is a transport-agnostic keyboard payload. Reply selects a reply
// keyboard instead of an inline one; Remove clears a previously shown reply
// keyboard.
type Keyboard struct {
	Rows    [][]Button
	Reply   bool
	Remove  bool
	OneTime bool
	Resize  bool
}

// MsgRef addresses an existing message for editing. InlineID is used for
// inline-mode messages, ChatID+MessageID otherwise.
type MsgRef struct {
	ChatID    int64
	MessageID int
	InlineID  string
}

// InlineCard is one result for an inline-mode lookup.
type InlineCard struct {
	ID          string
	Title       string
	Description string
	Text        string
	Keyboard    *Keyboard
}

// Transport is the outbound side of the chat platform. Implementations must
// chunk long text below the platform's payload limit.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	EditText(ctx context.Context, ref MsgRef, text string, kb *Keyboard) error
	SendMedia(ctx context.Context, chatID int64, mediaID, caption string, kb *Keyboard) error
	AnswerQuery(ctx context.Context, queryID, text string, alert bool) error
	AnswerInline(ctx context.Context, queryID string, cards []InlineCard) error
}
