// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists users and polls.

Two implementations share the UserStore and PollStore interfaces:

  - MongoUsers / MongoPolls: the production backend. Ballot insertion and
    the active->closed flip are single conditional UpdateOne calls, so the
    database serializes concurrent voters and the two expiry triggers. No
    code path reads a poll and writes it back.
  - MemoryUsers / MemoryPolls: mutex-guarded maps with identical observable
    semantics, used by tests and for local development without a database.

The key property both uphold: InsertBallot either records the ballot AND
increments the matching option count, or does neither, and a voter id can
never be recorded twice for the same poll.
*/
package store
