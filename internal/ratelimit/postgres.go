package ratelimit

import (
	"context"
	"time"

	"video-generation-api/internal/domain/ports/repository"
)

var _ Limiter = (*PostgresLimiter)(nil)

// PostgresLimiter counts a sliding window over the rate_limit_log table.
// The count-and-insert runs in one transaction, so the window survives
// restarts and is shared by every instance pointing at the same database.
type PostgresLimiter struct {
	logs     repository.RateLimitLogRepository
	resolver LimitResolver
	endpoint string
}

func NewPostgresLimiter(logs repository.RateLimitLogRepository, resolver LimitResolver, endpoint string) *PostgresLimiter {
	return &PostgresLimiter{logs: logs, resolver: resolver, endpoint: endpoint}
}

func (l *PostgresLimiter) Allow(ctx context.Context, fingerprint string) (Decision, error) {
	limit := l.resolver(ctx, fingerprint)
	since := time.Now().UTC().Add(-Window)

	current, allowed, err := l.logs.CountAndRecord(ctx, fingerprint, l.endpoint, since, limit)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed: allowed,
		Current: current,
		Limit:   limit,
	}, nil
}
