// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

// Event is one inbound interaction, already translated from the transport's
// wire format. Exactly one of the optional fields (Contact, Callback,
// Inline) is set for non-text events.
type Event struct {
	UserID int64
	ChatID int64

	Text    string
	Caption string
	MediaID string // attached photo, if any

	Contact  *Contact
	Callback *Callback
	Inline   *InlineQuery
}

// Contact is a shared phone number. UserID is the id of the contact's
// owner, which may differ from the sender when a contact is forwarded.
type Contact struct {
	UserID int64
	Phone  string
}

// Callback is a button press on an inline keyboard. InlineID is set instead
// of MessageID when the button lives on an inline-mode message.
type Callback struct {
	ID        string
	Data      string
	MessageID int
	InlineID  string
}

// InlineQuery is an inline-mode lookup, e.g. "poll_<id>".
type InlineQuery struct {
	ID    string
	Query string
}
