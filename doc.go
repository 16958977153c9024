// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Ovoz is a Telegram poll bot: admins author time-boxed polls through a chat
wizard, registered users vote exactly once per poll, and results render
live with progress bars. Registration collects a name, a verified contact
share, and an email confirmed by a one-time code.

The binary wires the layers together:

  - config loads the environment
  - store persists users and polls in MongoDB
  - session keeps per-user wizard state in memory
  - engine owns the poll lifecycle and the subscription gate
  - bot routes inbound events to wizards, commands, and votes
  - telegram adapts the Bot API on both directions
  - mailer delivers verification codes over SMTP
  - subs keeps the required-channel list in a JSON file
*/
package main
