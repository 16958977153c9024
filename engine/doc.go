// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine implements the poll lifecycle: creation, voting, tallying,
and expiry.

# Concurrency

CastVote and Close delegate their invariants to the store's conditional
updates rather than in-process locks, so multiple process instances (or a
restart mid-operation) cannot double-count a vote or announce results
twice. The two expiry triggers, the timer scheduled at creation and the
periodic Reaper sweep, both call the same idempotent Close; exactly one of
them wins the conditional flip and announces.

# Subscription Gate

Gate checks the voter's membership in every configured channel before a
vote is accepted. It fails closed: any oracle error means ineligible.
*/
package engine
