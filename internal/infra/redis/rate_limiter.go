package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"video-generation-api/internal/ratelimit"
)

var _ ratelimit.Limiter = (*RateLimiter)(nil)

// slideScript trims the window, counts, and records the request only when
// the count is still under the limit. Running server-side it is one atomic
// unit: two near-simultaneous requests can never both read the same count,
// and a denied request leaves no member behind.
//
// KEYS[1] sorted set, ARGV: window start (ns), limit, now (ns), member,
// key TTL (ms). Returns {admitted 0|1, current count}.
const slideScript = `
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[2]) then
  redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
  redis.call('PEXPIRE', KEYS[1], ARGV[5])
  return {1, count + 1}
end
return {0, count}
`

// RateLimiter keeps a sliding window per fingerprint in a sorted set:
// members are unique request markers scored by their unix-nano timestamp.
// The set expires one window after the last admitted request so idle
// credentials cost nothing.
type RateLimiter struct {
	client   RedisClient
	resolver ratelimit.LimitResolver

	now func() time.Time
}

func NewRateLimiter(client RedisClient, resolver ratelimit.LimitResolver) *RateLimiter {
	return &RateLimiter{client: client, resolver: resolver, now: time.Now}
}

func limiterKey(fingerprint string) string {
	return fmt.Sprintf("rate_limit:%s", fingerprint)
}

func (r *RateLimiter) Allow(ctx context.Context, fingerprint string) (ratelimit.Decision, error) {
	limit := r.resolver(ctx, fingerprint)
	now := r.now()
	windowStart := now.Add(-ratelimit.Window)

	res, err := r.client.Eval(ctx, slideScript,
		[]string{limiterKey(fingerprint)},
		windowStart.UnixNano(), limit, now.UnixNano(), ulid.Make().String(), ratelimit.Window.Milliseconds(),
	)
	if err != nil {
		return ratelimit.Decision{}, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return ratelimit.Decision{}, fmt.Errorf("unexpected script reply: %v", res)
	}
	admitted, _ := vals[0].(int64)
	current, _ := vals[1].(int64)

	return ratelimit.Decision{
		Allowed: admitted == 1,
		Current: int(current),
		Limit:   limit,
	}, nil
}
