// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session holds per-user transient workflow state: the registration
draft, the admin's poll draft, or the subscription-list prompt. Pure data
structure, no I/O.

One Store instance is created per process and passed to the dispatcher;
there are no package-level mutable globals. Setting any workflow replaces
the user's previous state, so a user can never be in two wizards at once.
Verification-code drafts carry an absolute deadline that the wizard checks
lazily on each interaction and the reaper purges proactively.
*/
package session
