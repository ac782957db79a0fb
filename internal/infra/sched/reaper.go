package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/metrics"
)

// Reaper periodically trims the rate limit log to its retention horizon.
// The limiter only ever counts one window back, so anything older is dead
// weight in the table.
type Reaper struct {
	interval  time.Duration
	retention time.Duration
	logs      repository.RateLimitLogRepository
	log       *zerolog.Logger
}

func NewReaper(interval, retention time.Duration, logs repository.RateLimitLogRepository, logger *zerolog.Logger) *Reaper {
	reapLog := logger.With().Str("component", "Reaper").Logger()
	return &Reaper{
		interval:  interval,
		retention: retention,
		logs:      logs,
		log:       &reapLog,
	}
}

func (w *Reaper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting rate limit log reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping rate limit log reaper")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-w.retention)
			n, err := w.logs.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				w.log.Error().Err(err).Msg("reaper error")
				continue
			}
			if n > 0 {
				metrics.AddRateLimitRowsReaped(n)
				w.log.Info().Int64("rows", n).Msg("rate limit log trimmed")
			}
		}
	}
}
