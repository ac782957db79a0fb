package repository

import (
	"context"
	"time"

	"video-generation-api/internal/domain/model"
)

// JobRepository owns persistence of VideoJob records and guards the status
// state machine at the storage layer: every transition carries a WHERE
// clause on the expected prior status, so concurrent writers cannot move a
// job twice.
type JobRepository interface {
	// Create inserts a new record in 'queued'. A duplicate ID yields
	// domain.ErrAlreadyExists; with UUID entropy that is a programming
	// error, not a retry case.
	Create(ctx context.Context, tx Tx, job *model.VideoJob) error

	// FetchQueued atomically claims the oldest queued job and marks it
	// processing (FOR UPDATE SKIP LOCKED), so no two workers drive the
	// same job. Returns domain.ErrNotFound when the queue is empty.
	FetchQueued(ctx context.Context) (*model.VideoJob, error)

	// MarkProcessing transitions queued -> processing. Safe to call twice:
	// the second call leaves started_at untouched.
	MarkProcessing(ctx context.Context, tx Tx, id string, startedAt time.Time) error

	// MarkCompleted transitions processing -> completed. completed_at is
	// assigned by the database, never by the caller.
	MarkCompleted(ctx context.Context, tx Tx, id, objectKey, videoURL string, generationSeconds float64) error

	// MarkFailed transitions any non-terminal state -> failed, truncating
	// the description before persisting.
	MarkFailed(ctx context.Context, tx Tx, id, errorMessage string) error

	Get(ctx context.Context, tx Tx, id string) (*model.VideoJob, error)

	// ListByFingerprint returns the caller's own jobs, most recent first.
	// The fingerprint filter is mandatory; cross-tenant listing is
	// structurally impossible.
	ListByFingerprint(ctx context.Context, tx Tx, fingerprint string, limit int, status model.JobStatus) ([]*model.VideoJob, error)

	// UpdateWebhookState updates delivery bookkeeping without touching status.
	UpdateWebhookState(ctx context.Context, tx Tx, id string, delivered bool, attempts int) error

	// Delete erases the record. Artifact removal is the caller's concern.
	Delete(ctx context.Context, tx Tx, id string) error
}
