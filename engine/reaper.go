// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ovozbot/ovoz/session"
)

// Reaper is the safety net behind the per-poll expiry timers: on a fixed
// period it closes any poll whose deadline passed (e.g. because the process
// restarted and lost its timers) and discards stale registration drafts.
// Correctness never depends on its cadence, only on its liveness, because
// expiry is a wall-clock comparison at every access.
type Reaper struct {
	engine   *Engine
	sessions *session.Store
	interval time.Duration
	now      func() time.Time
}

func NewReaper(e *Engine, sessions *session.Store, interval time.Duration) *Reaper {
	return &Reaper{engine: e, sessions: sessions, interval: interval, now: time.Now}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. A failure on one poll is logged and skipped so a
// single bad record cannot block the rest of the sweep.
func (r *Reaper) Sweep(ctx context.Context) {
	now := r.now()

	expired, err := r.engine.Polls().ExpiredActive(ctx, now)
	if err != nil {
		slog.Error("reaper: listing expired polls failed", "error", err)
	} else {
		for _, p := range expired {
			if err := r.engine.Close(ctx, p.ID); err != nil {
				slog.Error("reaper: closing poll failed", "poll_id", p.ID, "error", err)
			}
		}
		if len(expired) > 0 {
			slog.Info("reaper: closed expired polls", "count", len(expired))
		}
	}

	if purged := r.sessions.PurgeExpired(now); len(purged) > 0 {
		slog.Info("reaper: purged expired verification drafts", "count", len(purged))
	}
}
