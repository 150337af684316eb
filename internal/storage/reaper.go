package storage

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredTokenPurger deletes verification tokens past their expiry
type ExpiredTokenPurger interface {
	DeleteExpiredEmailTokens(ctx context.Context) (int64, error)
}

// RunReaper purges expired tokens every interval until ctx is done.
// Stores without native TTL support rely on it for physical expiry.
func RunReaper(ctx context.Context, log *slog.Logger, interval time.Duration, purger ExpiredTokenPurger) {
	const op = "storage.RunReaper"
	log = log.With(slog.String("op", op))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("token reaper stopped")
			return
		case <-ticker.C:
			n, err := purger.DeleteExpiredEmailTokens(ctx)
			if err != nil {
				log.Error("failed to purge expired tokens", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				log.Debug("expired tokens purged", slog.Int64("count", n))
			}
		}
	}
}
