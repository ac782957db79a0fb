package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("should deny the N+1th request in one window", func(t *testing.T) {
		l := NewMemoryLimiter(StaticLimit(10))
		for i := 0; i < 10; i++ {
			d, err := l.Allow(ctx, "fp-a")
			if err != nil {
				t.Fatal(err)
			}
			if !d.Allowed {
				t.Fatalf("request %d denied under limit", i+1)
			}
		}
		d, _ := l.Allow(ctx, "fp-a")
		if d.Allowed {
			t.Fatal("11th request within the window was admitted")
		}
		if d.Current != 10 || d.Limit != 10 {
			t.Errorf("decision counters wrong: %+v", d)
		}
	})

	t.Run("should keep fingerprints independent", func(t *testing.T) {
		l := NewMemoryLimiter(StaticLimit(1))
		if d, _ := l.Allow(ctx, "fp-a"); !d.Allowed {
			t.Fatal("first request for fp-a denied")
		}
		if d, _ := l.Allow(ctx, "fp-b"); !d.Allowed {
			t.Fatal("fp-b throttled by fp-a's traffic")
		}
	})

	t.Run("should admit again after the window elapses", func(t *testing.T) {
		now := time.Now()
		l := NewMemoryLimiter(StaticLimit(2))
		l.now = func() time.Time { return now }

		l.Allow(ctx, "fp-a")
		l.Allow(ctx, "fp-a")
		if d, _ := l.Allow(ctx, "fp-a"); d.Allowed {
			t.Fatal("over-limit request admitted")
		}

		now = now.Add(Window + time.Second)
		if d, _ := l.Allow(ctx, "fp-a"); !d.Allowed {
			t.Fatal("request after the window elapsed was denied")
		}
	})

	t.Run("should resolve per-credential overrides", func(t *testing.T) {
		resolver := func(_ context.Context, fp string) int {
			if fp == "vip" {
				return 100
			}
			return 1
		}
		l := NewMemoryLimiter(resolver)
		l.Allow(ctx, "plain")
		if d, _ := l.Allow(ctx, "plain"); d.Allowed {
			t.Fatal("plain credential exceeded its limit of 1")
		}
		for i := 0; i < 50; i++ {
			if d, _ := l.Allow(ctx, "vip"); !d.Allowed {
				t.Fatalf("vip throttled at %d/100", i+1)
			}
		}
	})

	t.Run("should stay exact under concurrent checks for one fingerprint", func(t *testing.T) {
		const limit, attempts = 10, 50
		l := NewMemoryLimiter(StaticLimit(limit))

		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := l.Allow(ctx, "fp-hot")
				if err != nil {
					t.Error(err)
					return
				}
				if d.Allowed {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if admitted != limit {
			t.Fatalf("race admitted %d requests, limit is %d", admitted, limit)
		}
	})
}
