// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package telegram is the thin adapter over the Bot API: it long-polls for
// updates, translates them into bot events, and implements the outbound
// transport, the notifier, and the channel-membership oracle. Nothing in
// here knows about polls or registration.
package telegram
