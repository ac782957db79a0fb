package ratelimit

import (
	"context"
	"time"
)

// Window is the sliding span a limit is evaluated over.
const Window = time.Minute

// RetryAfter is the fixed back-off hint handed to throttled callers.
const RetryAfter = time.Minute

// Decision is the outcome of one check-and-record call.
type Decision struct {
	Allowed bool
	Current int // requests observed in the window, including this one when admitted
	Limit   int
}

// LimitResolver supplies the per-fingerprint limit; per-credential
// overrides win over the global default.
type LimitResolver func(ctx context.Context, fingerprint string) int

// Limiter tracks requests per credential fingerprint over a sliding
// 60-second window. Check-and-record is atomic per fingerprint: two
// near-simultaneous requests can never both observe "under limit".
type Limiter interface {
	Allow(ctx context.Context, fingerprint string) (Decision, error)
}

// StaticLimit resolves every fingerprint to the same limit.
func StaticLimit(n int) LimitResolver {
	return func(context.Context, string) int { return n }
}
