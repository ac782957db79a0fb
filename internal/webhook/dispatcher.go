package webhook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"video-generation-api/internal/config"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/metrics"
)

const (
	headerSignature = "X-Webhook-Signature"
	headerJobID     = "X-Job-ID"
	userAgent       = "video-gen-webhook/1.0"
)

// Payload is the completion notice POSTed to a caller's endpoint. Result
// fields are present only on the matching outcome.
type Payload struct {
	JobID                 string   `json:"job_id"`
	Status                string   `json:"status"`
	CreatedAt             string   `json:"created_at"`
	CompletedAt           string   `json:"completed_at"`
	VideoURL              string   `json:"video_url,omitempty"`
	GenerationTimeSeconds *float64 `json:"generation_time_seconds,omitempty"`
	ErrorMessage          string   `json:"error_message,omitempty"`
}

// PayloadFor builds the wire payload from a terminal job record.
func PayloadFor(job *model.VideoJob) Payload {
	p := Payload{
		JobID:     job.ID,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		p.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	switch job.Status {
	case model.JobStatusCompleted:
		p.VideoURL = job.VideoURL
		secs := job.GenerationSeconds
		p.GenerationTimeSeconds = &secs
	case model.JobStatusFailed:
		p.ErrorMessage = job.ErrorMessage
	}
	return p
}

// Dispatcher delivers signed completion notices with a bounded retry
// schedule. Delivery is best-effort: the job's terminal state is already
// committed before the first attempt, and exhausting retries never
// resurrects the job.
type Dispatcher struct {
	secret      string
	maxRetries  int
	backoffBase time.Duration
	client      *http.Client
	jobs        repository.JobRepository
	log         *zerolog.Logger
}

func NewDispatcher(cfg config.WebhookConfig, jobs repository.JobRepository, log *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		secret:      cfg.Secret,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		client:      &http.Client{Timeout: cfg.Timeout},
		jobs:        jobs,
		log:         log,
	}
}

// Deliver signs and POSTs the payload for job to its webhook URL, retrying
// with doubling backoff until an attempt succeeds or the retries run out.
// Each attempt is recorded on the job row so operators can see delivery
// history. A job without a webhook URL is a no-op.
func (d *Dispatcher) Deliver(ctx context.Context, job *model.VideoJob) error {
	if job.Params.WebhookURL == "" {
		return nil
	}

	body, err := CanonicalJSON(PayloadFor(job))
	if err != nil {
		return &domain.Fault{Kind: domain.FaultWebhook, Message: "payload serialization failed", Err: err}
	}
	signature := Sign(d.secret, body)

	attempts := 0
	for attempts < d.maxRetries {
		attempts++
		err := d.post(ctx, job, body, signature)
		delivered := err == nil
		job.RecordWebhookAttempt(delivered, time.Now().UTC())
		if uerr := d.jobs.UpdateWebhookState(ctx, nil, job.ID, delivered, job.WebhookAttempts); uerr != nil {
			d.log.Error().Err(uerr).Str("job_id", job.ID).Msg("webhook bookkeeping update failed")
		}
		if delivered {
			metrics.IncWebhookDelivery("delivered")
			d.log.Info().Str("job_id", job.ID).Int("attempt", attempts).Msg("webhook delivered")
			return nil
		}

		metrics.IncWebhookAttemptFailure()
		d.log.Warn().Err(err).Str("job_id", job.ID).
			Int("attempt", attempts).Int("max", d.maxRetries).
			Msg("webhook attempt failed")

		if attempts >= d.maxRetries {
			break
		}
		// 5s, 10s, 20s with the default base.
		wait := d.backoffBase << (attempts - 1)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			metrics.IncWebhookDelivery("abandoned")
			return ctx.Err()
		}
	}

	metrics.IncWebhookDelivery("exhausted")
	return &domain.Fault{
		Kind:    domain.FaultWebhook,
		Message: fmt.Sprintf("delivery failed after %d attempts", attempts),
	}
}

func (d *Dispatcher) post(ctx context.Context, job *model.VideoJob, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.Params.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(headerSignature, signature)
	req.Header.Set(headerJobID, job.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}
