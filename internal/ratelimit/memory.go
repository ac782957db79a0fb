package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

// MemoryLimiter is the in-process backend: per-fingerprint request
// timestamps, pruned lazily on each check. State is sharded by
// fingerprint so unrelated credentials never contend on one lock.
// Non-durable; single-instance and dev deployments only.
type MemoryLimiter struct {
	shards [shardCount]memoryShard
	limits LimitResolver
	now    func() time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(limits LimitResolver) *MemoryLimiter {
	l := &MemoryLimiter{limits: limits, now: time.Now}
	for i := range l.shards {
		l.shards[i].entries = make(map[string][]time.Time)
	}
	return l
}

func (l *MemoryLimiter) shard(fingerprint string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fingerprint))
	return &l.shards[h.Sum32()%shardCount]
}

// Allow prunes timestamps outside the window, then admits and records the
// request iff the remaining count is under the limit.
func (l *MemoryLimiter) Allow(ctx context.Context, fingerprint string) (Decision, error) {
	limit := l.limits(ctx, fingerprint)
	now := l.now()
	cutoff := now.Add(-Window)

	s := l.shard(fingerprint)
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.entries[fingerprint]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		s.entries[fingerprint] = kept
		return Decision{Allowed: false, Current: len(kept), Limit: limit}, nil
	}

	kept = append(kept, now)
	s.entries[fingerprint] = kept
	return Decision{Allowed: true, Current: len(kept), Limit: limit}, nil
}
