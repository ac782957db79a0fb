package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/adapter"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/logging"
	"video-generation-api/internal/infra/metrics"
)

// Notifier delivers the terminal-state webhook for a job.
type Notifier interface {
	Deliver(ctx context.Context, job *model.VideoJob) error
}

// Broadcaster pushes job status updates to live subscribers.
type Broadcaster interface {
	BroadcastJobUpdate(job *model.VideoJob)
}

// JobProcessor drains the queue: claim, generate, store, finish, notify.
// Webhook delivery happens strictly after the terminal transition is
// committed; a crashed delivery never loses the job's outcome.
type JobProcessor struct {
	jobs      repository.JobRepository
	inference adapter.InferenceAdapter
	storage   adapter.StorageAdapter
	notifier  Notifier
	hub       Broadcaster
	log       *zerolog.Logger

	pollInterval time.Duration
	wakeup       chan struct{}
}

func NewJobProcessor(
	jobs repository.JobRepository,
	inference adapter.InferenceAdapter,
	storage adapter.StorageAdapter,
	notifier Notifier,
	hub Broadcaster,
	pollInterval time.Duration,
	log *zerolog.Logger,
) *JobProcessor {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &JobProcessor{
		jobs:         jobs,
		inference:    inference,
		storage:      storage,
		notifier:     notifier,
		hub:          hub,
		log:          log,
		pollInterval: pollInterval,
		wakeup:       make(chan struct{}, 1),
	}
}

// Wakeup nudges the poll loop, so a fresh submission is picked up without
// waiting out the interval. Safe to call from any goroutine.
func (p *JobProcessor) Wakeup() {
	select {
	case p.wakeup <- struct{}{}:
	default:
	}
}

// Start runs the fetch loop until the context is done. Run in a goroutine.
func (p *JobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("job processor started")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job processor stopping")
			return
		case <-ticker.C:
		case <-p.wakeup:
		}
		_ = pool.Submit(func(ctx context.Context) error {
			p.drain(ctx)
			return nil
		})
	}
}

// drain claims jobs until the queue is empty.
func (p *JobProcessor) drain(ctx context.Context) {
	for {
		if !p.processOne(ctx) {
			return
		}
	}
}

// processOne claims and finishes a single job. Returns false when the
// queue was empty.
func (p *JobProcessor) processOne(ctx context.Context) bool {
	job, err := p.jobs.FetchQueued(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to fetch queued job")
		}
		return false
	}

	ctx = logging.WithJobID(ctx, job.ID)
	log := logging.With(ctx, p.log)
	log.Info().Str("key_fp", job.KeyFingerprint).Msg("processing job")
	p.hub.BroadcastJobUpdate(job)

	start := time.Now()
	err = p.handleJob(ctx, job)
	elapsed := time.Since(start)

	if err != nil {
		// The stored message must not leak backend internals.
		safe := domain.SanitizeErrorMessage(err)
		if ferr := p.jobs.MarkFailed(context.Background(), nil, job.ID, safe); ferr != nil {
			log.Error().Err(ferr).Msg("could not mark job failed")
		}
		_ = job.MarkFailed(safe)
		metrics.IncJobProcessed(string(model.JobStatusFailed))
		log.Error().Err(err).Dur("duration", elapsed).Msg("job failed")
	} else {
		metrics.IncJobProcessed(string(model.JobStatusCompleted))
		metrics.ObserveGenerationSeconds(job.GenerationSeconds)
		log.Info().Dur("duration", elapsed).Msg("job completed")
	}

	p.hub.BroadcastJobUpdate(job)

	// Delivery is detached from the request context: the job is already
	// terminal and must be announced even while the server drains.
	if derr := p.notifier.Deliver(context.Background(), job); derr != nil {
		log.Warn().Err(derr).Msg("webhook delivery gave up")
	}
	return true
}

// handleJob runs generation and upload. The temp file is removed on every
// exit path.
func (p *JobProcessor) handleJob(ctx context.Context, job *model.VideoJob) error {
	outputName := fmt.Sprintf("%s.mp4", job.ID)

	localPath, err := p.inference.Generate(ctx, job.Params, outputName)
	if localPath != "" {
		defer os.Remove(localPath)
	}
	if err != nil {
		return domain.Backendf(err, "generation failed")
	}
	generationSeconds := time.Since(*job.StartedAt).Seconds()

	res, err := p.storage.Upload(ctx, localPath, job.ID)
	if err != nil {
		return domain.Storagef(err, "artifact upload failed")
	}

	if err := p.jobs.MarkCompleted(ctx, nil, job.ID, res.ObjectKey, res.SignedURL, generationSeconds); err != nil {
		return domain.Persistencef(err, "completion could not be stored")
	}
	return job.MarkCompleted(res.ObjectKey, res.SignedURL, generationSeconds)
}
