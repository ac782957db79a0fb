package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/repository"
)

var _ repository.APIKeyRepository = (*APIKeyRepo)(nil)

type APIKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

func (r *APIKeyRepo) Save(ctx context.Context, tx repository.Tx, key *model.APIKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO api_keys (fingerprint, label, active, rate_limit_per_minute, total_requests, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (fingerprint) DO UPDATE SET
  label = EXCLUDED.label,
  active = EXCLUDED.active,
  rate_limit_per_minute = EXCLUDED.rate_limit_per_minute;`

	_, err := execSQL(ctx, r.pool, tx, q,
		key.Fingerprint, key.Label, key.Active, key.RateLimitPerMinute, key.TotalRequests, key.CreatedAt)
	return err
}

func (r *APIKeyRepo) FindByFingerprint(ctx context.Context, tx repository.Tx, fingerprint string) (*model.APIKey, error) {
	const q = `
SELECT fingerprint, label, active, rate_limit_per_minute, total_requests, created_at, last_used_at
  FROM api_keys WHERE fingerprint = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, fingerprint)
	if err != nil {
		return nil, err
	}
	return scanAPIKey(row)
}

func (r *APIKeyRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.APIKey, error) {
	const q = `
SELECT fingerprint, label, active, rate_limit_per_minute, total_requests, created_at, last_used_at
  FROM api_keys ORDER BY created_at;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func (r *APIKeyRepo) SetActive(ctx context.Context, tx repository.Tx, fingerprint string, active bool) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE api_keys SET active = $2 WHERE fingerprint = $1;`, fingerprint, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepo) SetRateLimit(ctx context.Context, tx repository.Tx, fingerprint string, perMinute int) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE api_keys SET rate_limit_per_minute = $2 WHERE fingerprint = $1;`, fingerprint, perMinute)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepo) TouchUsage(ctx context.Context, tx repository.Tx, fingerprint string) error {
	_, err := execSQL(ctx, r.pool, tx,
		`UPDATE api_keys SET total_requests = total_requests + 1, last_used_at = now() WHERE fingerprint = $1;`,
		fingerprint)
	return err
}

func scanAPIKey(row rowScanner) (*model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.Fingerprint, &k.Label, &k.Active, &k.RateLimitPerMinute,
		&k.TotalRequests, &k.CreatedAt, &k.LastUsedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}
