package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/adapter"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/metrics"
	"video-generation-api/internal/ratelimit"
	"video-generation-api/internal/validation"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type JobUseCase interface {
	// Submit validates, rate-limits and enqueues a generation request. The
	// returned job is in 'queued'; processing happens elsewhere.
	Submit(ctx context.Context, fingerprint string, raw validation.RawParams) (*model.VideoJob, error)
	// Get returns a job only to the credential that created it.
	Get(ctx context.Context, fingerprint, jobID string) (*model.VideoJob, error)
	// List returns the credential's recent jobs, optionally filtered by status.
	List(ctx context.Context, fingerprint string, limit int, status model.JobStatus) ([]*model.VideoJob, error)
	// Delete removes a terminal job and its stored artifact.
	Delete(ctx context.Context, fingerprint, jobID string) error
}

type jobUC struct {
	jobs      repository.JobRepository
	limiter   ratelimit.Limiter
	validator *validation.Validator
	storage   adapter.StorageAdapter
	wakeup    func()
	log       *zerolog.Logger
}

// NewJobUseCase wires the admission path. wakeup nudges the worker pool
// after a submit so a queued job does not wait out a full poll interval.
func NewJobUseCase(
	jobs repository.JobRepository,
	limiter ratelimit.Limiter,
	validator *validation.Validator,
	storage adapter.StorageAdapter,
	wakeup func(),
	log *zerolog.Logger,
) *jobUC {
	if wakeup == nil {
		wakeup = func() {}
	}
	return &jobUC{jobs: jobs, limiter: limiter, validator: validator, storage: storage, wakeup: wakeup, log: log}
}

func (u *jobUC) Submit(ctx context.Context, fingerprint string, raw validation.RawParams) (*model.VideoJob, error) {
	params, err := u.validator.ValidateParams(ctx, raw)
	if err != nil {
		return nil, err
	}

	decision, err := u.limiter.Allow(ctx, fingerprint)
	if err != nil {
		// A broken limiter backend must not fail open.
		return nil, domain.Persistencef(err, "rate limit check failed")
	}
	if !decision.Allowed {
		metrics.IncRateLimitRejection()
		return nil, domain.RateLimited(decision.Current, decision.Limit, ratelimit.RetryAfter)
	}

	job := model.NewVideoJob(fingerprint, params)
	if err := u.jobs.Create(ctx, nil, job); err != nil {
		return nil, domain.Persistencef(err, "job could not be stored")
	}
	metrics.IncJobQueued()
	u.log.Info().Str("job_id", job.ID).Str("key_fp", fingerprint).Msg("job queued")

	u.wakeup()
	return job, nil
}

func (u *jobUC) Get(ctx context.Context, fingerprint, jobID string) (*model.VideoJob, error) {
	if !validation.ValidJobID(jobID) {
		return nil, domain.ErrNotFound
	}
	job, err := u.jobs.Get(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	// A foreign job is indistinguishable from a missing one.
	if job.KeyFingerprint != fingerprint {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (u *jobUC) List(ctx context.Context, fingerprint string, limit int, status model.JobStatus) ([]*model.VideoJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.jobs.ListByFingerprint(ctx, nil, fingerprint, limit, status)
}

func (u *jobUC) Delete(ctx context.Context, fingerprint, jobID string) error {
	job, err := u.Get(ctx, fingerprint, jobID)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return domain.Validationf("only completed or failed jobs can be deleted")
	}

	if job.VideoObjectKey != "" {
		if err := u.storage.Delete(ctx, job.VideoObjectKey); err != nil {
			// The DB row is the source of truth; an orphaned artifact is
			// preferable to a job the caller cannot delete.
			u.log.Warn().Err(err).Str("job_id", job.ID).Msg("artifact removal failed")
		}
	}

	if err := u.jobs.Delete(ctx, nil, job.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
