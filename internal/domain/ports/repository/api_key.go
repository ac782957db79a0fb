package repository

import (
	"context"

	"video-generation-api/internal/domain/model"
)

// APIKeyRepository stores credential records keyed by fingerprint.
type APIKeyRepository interface {
	Save(ctx context.Context, tx Tx, key *model.APIKey) error
	FindByFingerprint(ctx context.Context, tx Tx, fingerprint string) (*model.APIKey, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.APIKey, error)
	SetActive(ctx context.Context, tx Tx, fingerprint string, active bool) error
	SetRateLimit(ctx context.Context, tx Tx, fingerprint string, perMinute int) error
	// TouchUsage bumps total_requests and last_used_at. Failures here must
	// never fail the request being served.
	TouchUsage(ctx context.Context, tx Tx, fingerprint string) error
}
