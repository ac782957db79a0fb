package model

import "time"

// APIKey is the persisted credential record. Only the fingerprint of the
// key is stored; the raw secret exists solely on the caller's side.
type APIKey struct {
	Fingerprint        string
	Label              string
	Active             bool
	RateLimitPerMinute int // 0 means "use the global default"
	TotalRequests      int64
	CreatedAt          time.Time
	LastUsedAt         *time.Time
}
