package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"video-generation-api/internal/domain/ports/repository"
)

var _ repository.RateLimitLogRepository = (*RateLimitLogRepo)(nil)

// RateLimitLogRepo writes one row per admitted request. ULID row IDs keep
// the primary key index append-mostly, which matters at one insert per
// request.
type RateLimitLogRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewRateLimitLogRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *RateLimitLogRepo {
	return &RateLimitLogRepo{pool: pool, tm: tm}
}

// CountAndRecord serializes concurrent checks for one fingerprint with a
// transaction-scoped advisory lock, so two near-simultaneous requests can
// never both read the same pre-insert count. The insert happens only when
// the window still has room; denied requests leave no row behind.
func (r *RateLimitLogRepo) CountAndRecord(ctx context.Context, fingerprint, endpoint string, since time.Time, limit int) (int, bool, error) {
	var (
		current int
		allowed bool
	)

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const lockQ = `SELECT pg_advisory_xact_lock(hashtext($1));`
		if _, err := execSQL(ctx, r.pool, tx, lockQ, fingerprint); err != nil {
			return err
		}

		const countQ = `
SELECT count(*) FROM rate_limit_log
 WHERE key_fingerprint = $1 AND requested_at >= $2;`

		row, err := pickRow(ctx, r.pool, tx, countQ, fingerprint, since)
		if err != nil {
			return err
		}
		var prior int
		if err := row.Scan(&prior); err != nil {
			return err
		}
		if prior >= limit {
			current, allowed = prior, false
			return nil
		}

		const insertQ = `
INSERT INTO rate_limit_log (id, key_fingerprint, endpoint, requested_at)
VALUES ($1, $2, $3, now());`

		if _, err := execSQL(ctx, r.pool, tx, insertQ, ulid.Make().String(), fingerprint, endpoint); err != nil {
			return err
		}
		current, allowed = prior+1, true
		return nil
	})
	return current, allowed, err
}

func (r *RateLimitLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, nil,
		`DELETE FROM rate_limit_log WHERE requested_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
