package model

import (
	"time"

	"github.com/google/uuid"

	"video-generation-api/internal/domain"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further status transition is permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo encodes the one-directional state machine:
// queued -> processing -> {completed | failed}. failed is additionally
// reachable from queued (admission succeeded but processing never started).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// GenerationParams is the normalized parameter set produced by validation.
type GenerationParams struct {
	ImageURL   string
	Prompt     string
	Width      int
	Height     int
	NumFrames  int
	NumSteps   int
	Seed       int64
	WebhookURL string
}

// VideoJob tracks one generation request from admission to delivery.
// KeyFingerprint is a one-way hash of the caller credential; the raw
// credential is never stored.
type VideoJob struct {
	ID             string
	KeyFingerprint string
	Params         GenerationParams
	Status         JobStatus

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	VideoObjectKey    string
	VideoURL          string
	GenerationSeconds float64
	ErrorMessage      string

	WebhookDelivered   bool
	WebhookAttempts    int
	LastWebhookAttempt *time.Time
}

// NewVideoJob builds a queued job with a fresh ID.
func NewVideoJob(fingerprint string, params GenerationParams) *VideoJob {
	return &VideoJob{
		ID:             uuid.NewString(),
		KeyFingerprint: fingerprint,
		Params:         params,
		Status:         JobStatusQueued,
		CreatedAt:      time.Now().UTC(),
	}
}

// MarkProcessing transitions queued -> processing. Calling it twice is a
// no-op on the timestamp; started_at never moves backward.
func (j *VideoJob) MarkProcessing(startedAt time.Time) error {
	if j.Status == JobStatusProcessing {
		return nil
	}
	if !j.Status.CanTransitionTo(JobStatusProcessing) {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusProcessing
	if j.StartedAt == nil {
		t := startedAt.UTC()
		j.StartedAt = &t
	}
	return nil
}

// MarkCompleted transitions processing -> completed and records the result
// location. The completion timestamp is set here, server-side.
func (j *VideoJob) MarkCompleted(objectKey, videoURL string, generationSeconds float64) error {
	if !j.Status.CanTransitionTo(JobStatusCompleted) {
		return domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.VideoObjectKey = objectKey
	j.VideoURL = videoURL
	j.GenerationSeconds = generationSeconds
	return nil
}

// MarkFailed transitions any non-terminal state -> failed with a bounded,
// pre-sanitized error description.
func (j *VideoJob) MarkFailed(errorMessage string) error {
	if j.Status.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.ErrorMessage = domain.Truncate(errorMessage, 4000)
	return nil
}

// RecordWebhookAttempt updates delivery bookkeeping. Allowed after terminal
// states; never touches Status.
func (j *VideoJob) RecordWebhookAttempt(delivered bool, at time.Time) {
	t := at.UTC()
	j.WebhookDelivered = delivered
	j.WebhookAttempts++
	j.LastWebhookAttempt = &t
}
