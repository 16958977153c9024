// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain types shared across the bot.

# Domain Types

  - User: registered user keyed by the platform user id, unique email
  - Poll: question, ordered options with counts, ballot box, expiry
  - PollOption: option text plus running vote count
  - Tally / OptionResult: read-only result snapshots

# Invariants

Polls are only constructed through NewPoll, which enforces:

  - 2-50 options, none empty
  - question of at least 3 characters
  - expiry strictly in the future

The ballot box (Poll.Ballots) maps voter id to option index. A voter id
appears at most once, and the sum of option counts always equals the number
of ballot entries. Both invariants are maintained by the store's conditional
updates, not by application-level checks.

# Errors

Sentinel errors (ErrAlreadyVoted, ErrPollClosed, ErrInvalidOption,
ErrNotFound, ErrDuplicateKey, ErrStateExpired, ErrNotEligible,
ErrDeliveryFailure) are classified with errors.Is by callers.
*/
package models
