// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package bot is the interaction layer: it classifies inbound events by user
role and session state and drives the two wizards and the voting sub-flow.

# Dispatch

HandleEvent routes in this order:

  - inline queries ("poll_<id>" lookups)
  - callback queries (draft buttons, then the voting callbacks)
  - slash commands
  - free-form messages, owned by whichever wizard holds the user's session

# Wizards

The registration wizard walks firstName -> lastName -> phone -> email ->
verifyEmail. Invalid input re-prompts the same step. The phone step only
accepts a contact share owned by the sender. The poll authoring wizard
(admin-only) walks question -> options -> duration and hands the finished
draft to the engine.

# Commands

/start and /help for everyone; /poll, /cancel_poll, /allpoll, /clearpoll,
/stats, /broadcast, /create_sub, /all_sub, /delete for admins. Non-admins
get a fixed rejection message.

Rendering (result text, progress bars, keyboards) lives in render.go; the
engine computes numbers, this package draws them.
*/
package bot
