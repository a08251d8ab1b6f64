package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/boothsim/internal/store"
)

const sweepInterval = 5 * time.Minute

// SweepCallback is called after a sweep removed at least one session.
type SweepCallback func(deleted int64)

// RunSweeper periodically deletes sessions idle for longer than ttl. It blocks
// until ctx is cancelled and always returns nil, so it fits an errgroup.
func RunSweeper(ctx context.Context, repo store.Repository, ttl, interval time.Duration, onSweep SweepCallback) error {
	if interval <= 0 {
		interval = sweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("session sweeper started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			sweep(ctx, repo, ttl, onSweep)
		case <-ctx.Done():
			slog.Info("session sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func sweep(ctx context.Context, repo store.Repository, ttl time.Duration, onSweep SweepCallback) {
	deleted, err := repo.DeleteExpiredSessions(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("session sweep interrupted", "error", err)
			return
		}
		slog.Error("session sweep failed", "error", err)
		return
	}
	if deleted == 0 {
		return
	}
	slog.Info("session sweep removed expired sessions", "count", deleted)
	if onSweep != nil {
		onSweep(deleted)
	}
}
