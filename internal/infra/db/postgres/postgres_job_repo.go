package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

const jobColumns = `
id, key_fingerprint, image_url, prompt, width, height, num_frames, num_steps, seed,
webhook_url, status, created_at, started_at, completed_at, video_object_key, video_url,
generation_seconds, error_message, webhook_delivered, webhook_attempts, last_webhook_attempt`

type JobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *JobRepo {
	return &JobRepo{pool: pool, tm: tm}
}

func (r *JobRepo) Create(ctx context.Context, tx repository.Tx, job *model.VideoJob) error {
	const q = `
INSERT INTO video_jobs (
  id, key_fingerprint, image_url, prompt, width, height, num_frames, num_steps, seed,
  webhook_url, status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.KeyFingerprint,
		job.Params.ImageURL, job.Params.Prompt,
		job.Params.Width, job.Params.Height, job.Params.NumFrames, job.Params.NumSteps, job.Params.Seed,
		job.Params.WebhookURL, string(job.Status), job.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

// FetchQueued claims the oldest queued job inside one transaction: the
// status flip to 'processing' happens before the row lock is released, so
// two pollers can never drive the same job.
func (r *JobRepo) FetchQueued(ctx context.Context) (*model.VideoJob, error) {
	var job *model.VideoJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + jobColumns + `
FROM video_jobs
WHERE status = 'queued'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		fetched, err := scanJob(row)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := fetched.MarkProcessing(now); err != nil {
			return err
		}
		if err := r.MarkProcessing(ctx, tx, fetched.ID, now); err != nil {
			return err
		}

		job = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *JobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string, startedAt time.Time) error {
	const q = `
UPDATE video_jobs
   SET status = 'processing', started_at = COALESCE(started_at, $2)
 WHERE id = $1 AND status IN ('queued', 'processing');`

	tag, err := execSQL(ctx, r.pool, tx, q, id, startedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *JobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id, objectKey, videoURL string, generationSeconds float64) error {
	const q = `
UPDATE video_jobs
   SET status = 'completed', completed_at = now(),
       video_object_key = $2, video_url = $3, generation_seconds = $4
 WHERE id = $1 AND status = 'processing';`

	tag, err := execSQL(ctx, r.pool, tx, q, id, objectKey, videoURL, generationSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *JobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorMessage string) error {
	const q = `
UPDATE video_jobs
   SET status = 'failed', completed_at = now(), error_message = $2
 WHERE id = $1 AND status IN ('queued', 'processing');`

	tag, err := execSQL(ctx, r.pool, tx, q, id, domain.Truncate(errorMessage, 4000))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *JobRepo) Get(ctx context.Context, tx repository.Tx, id string) (*model.VideoJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM video_jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *JobRepo) ListByFingerprint(ctx context.Context, tx repository.Tx, fingerprint string, limit int, status model.JobStatus) ([]*model.VideoJob, error) {
	q := `SELECT ` + jobColumns + ` FROM video_jobs WHERE key_fingerprint = $1`
	args := []interface{}{fingerprint}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, string(status))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.VideoJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *JobRepo) UpdateWebhookState(ctx context.Context, tx repository.Tx, id string, delivered bool, attempts int) error {
	const q = `
UPDATE video_jobs
   SET webhook_delivered = $2, webhook_attempts = $3, last_webhook_attempt = now()
 WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, delivered, attempts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM video_jobs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.VideoJob, error) {
	var j model.VideoJob
	var statusStr string
	err := row.Scan(
		&j.ID, &j.KeyFingerprint,
		&j.Params.ImageURL, &j.Params.Prompt,
		&j.Params.Width, &j.Params.Height, &j.Params.NumFrames, &j.Params.NumSteps, &j.Params.Seed,
		&j.Params.WebhookURL, &statusStr, &j.CreatedAt, &j.StartedAt, &j.CompletedAt,
		&j.VideoObjectKey, &j.VideoURL, &j.GenerationSeconds, &j.ErrorMessage,
		&j.WebhookDelivered, &j.WebhookAttempts, &j.LastWebhookAttempt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Status = model.JobStatus(statusStr)
	return &j, nil
}
