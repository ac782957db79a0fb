package model

import (
	"strings"
	"testing"
	"time"

	"video-generation-api/internal/domain"
)

func newTestJob() *VideoJob {
	return NewVideoJob("fp-abc", GenerationParams{
		ImageURL:  "https://example.com/a.jpg",
		Prompt:    "zoom in",
		Width:     1280,
		Height:    720,
		NumFrames: 121,
		NumSteps:  8,
		Seed:      7,
	})
}

func TestVideoJobStateMachine(t *testing.T) {
	t.Run("should start queued with a 36-char ID", func(t *testing.T) {
		job := newTestJob()
		if job.Status != JobStatusQueued {
			t.Fatalf("expected queued, got %s", job.Status)
		}
		if len(job.ID) != 36 {
			t.Errorf("expected UUID job ID, got %q", job.ID)
		}
		if job.StartedAt != nil || job.CompletedAt != nil {
			t.Error("timestamps must be unset before they are reached")
		}
	})

	t.Run("should not reach a terminal state without passing processing or queued", func(t *testing.T) {
		job := newTestJob()
		if err := job.MarkCompleted("k", "u", 1); err != domain.ErrInvalidTransition {
			t.Fatalf("queued -> completed must be rejected, got %v", err)
		}
	})

	t.Run("should keep started_at on a second MarkProcessing", func(t *testing.T) {
		job := newTestJob()
		first := time.Now().Add(-time.Minute)
		if err := job.MarkProcessing(first); err != nil {
			t.Fatalf("MarkProcessing: %v", err)
		}
		got := *job.StartedAt
		if err := job.MarkProcessing(time.Now()); err != nil {
			t.Fatalf("second MarkProcessing: %v", err)
		}
		if !job.StartedAt.Equal(got) {
			t.Error("started_at moved on repeated MarkProcessing")
		}
	})

	t.Run("should populate exactly the result fields on completion", func(t *testing.T) {
		job := newTestJob()
		_ = job.MarkProcessing(time.Now())
		if err := job.MarkCompleted("videos/x.mp4", "https://signed/x", 45.3); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}
		if job.CompletedAt == nil {
			t.Fatal("completed_at not set")
		}
		if job.VideoObjectKey == "" || job.VideoURL == "" {
			t.Error("result location missing after completion")
		}
		if job.ErrorMessage != "" {
			t.Error("error description set on a completed job")
		}
	})

	t.Run("should refuse a second terminal transition but allow webhook bookkeeping", func(t *testing.T) {
		job := newTestJob()
		_ = job.MarkProcessing(time.Now())
		_ = job.MarkCompleted("k", "u", 1)
		if err := job.MarkFailed("boom"); err != domain.ErrInvalidTransition {
			t.Fatalf("terminal job must not fail again, got %v", err)
		}
		if job.ErrorMessage != "" {
			t.Error("terminal payload mutated by rejected transition")
		}
		job.RecordWebhookAttempt(false, time.Now())
		job.RecordWebhookAttempt(true, time.Now())
		if job.WebhookAttempts != 2 || !job.WebhookDelivered {
			t.Errorf("webhook bookkeeping not updated: attempts=%d delivered=%v",
				job.WebhookAttempts, job.WebhookDelivered)
		}
	})

	t.Run("should fail directly from queued", func(t *testing.T) {
		job := newTestJob()
		if err := job.MarkFailed("validation blew up downstream"); err != nil {
			t.Fatalf("queued -> failed: %v", err)
		}
		if job.CompletedAt == nil {
			t.Error("failed job needs a completion timestamp")
		}
	})

	t.Run("should truncate oversized error descriptions", func(t *testing.T) {
		job := newTestJob()
		if err := job.MarkFailed(strings.Repeat("x", 5000)); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
		if len(job.ErrorMessage) > 4000 {
			t.Errorf("error message not truncated: %d bytes", len(job.ErrorMessage))
		}
	})
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := domain.Backendf(nil, "open /srv/models/weights.bin at 0xdeadbeef, line 42 failed")
	got := domain.SanitizeErrorMessage(err)
	for _, leak := range []string{"/srv/models", "0xdeadbeef", "line 42"} {
		if strings.Contains(got, leak) {
			t.Errorf("sanitized message still contains %q: %s", leak, got)
		}
	}
}
