package repository

import (
	"context"
	"time"
)

// RateLimitLogRepository is the persistent counter log behind the
// database-backed rate limiter: one row per admitted request, counted with
// a range query over the window.
type RateLimitLogRepository interface {
	// CountAndRecord counts requests for the fingerprint since `since` and,
	// atomically with that count, records the current request when the
	// count is still under limit. Denied requests are never recorded, so
	// retrying after a rejection cannot extend the lockout. The returned
	// current includes the row just written when admitted.
	CountAndRecord(ctx context.Context, fingerprint, endpoint string, since time.Time, limit int) (current int, allowed bool, err error)

	// DeleteOlderThan removes rows past the retention horizon and returns
	// how many were reclaimed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
