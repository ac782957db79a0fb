package usecase

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/rs/zerolog"

	"video-generation-api/internal/config"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/ratelimit"
	"video-generation-api/internal/validation"
)

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		DefaultWidth: 1280, DefaultHeight: 720,
		DefaultNumFrames: 121, DefaultNumSteps: 8,
		MaxWidth: 1920, MaxHeight: 1080, MaxFrames: 257, MaxSteps: 50,
	}
}

// publicLookup resolves every hostname to a public address so the SSRF
// gate passes without real DNS.
func publicLookup(_ context.Context, _ string) ([]net.IPAddr, error) {
	return []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}, nil
}

func testValidator() *validation.Validator {
	return validation.NewWithURLValidator(testGenerationConfig(),
		validation.NewURLValidatorWithLookup(publicLookup))
}

func allowAll() *mockLimiter {
	return &mockLimiter{
		AllowFunc: func(context.Context, string) (ratelimit.Decision, error) {
			return ratelimit.Decision{Allowed: true, Current: 1, Limit: 10}, nil
		},
	}
}

func validRaw() validation.RawParams {
	return validation.RawParams{
		ImageURL: "https://images.example.com/in.jpg",
		Prompt:   "a slow pan over a mountain lake",
	}
}

func TestJobUC_Submit(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	t.Run("should queue a valid submission and nudge the workers", func(t *testing.T) {
		var created *model.VideoJob
		repo := &mockJobRepo{
			CreateFunc: func(_ context.Context, _ repository.Tx, job *model.VideoJob) error {
				created = job
				return nil
			},
		}
		woken := false
		uc := NewJobUseCase(repo, allowAll(), testValidator(), &mockStorage{}, func() { woken = true }, &log)

		job, err := uc.Submit(ctx, "fp-a", validRaw())
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if job.Status != model.JobStatusQueued {
			t.Errorf("status = %s", job.Status)
		}
		if job.KeyFingerprint != "fp-a" {
			t.Errorf("fingerprint = %s", job.KeyFingerprint)
		}
		if job.Params.Width != 1280 || job.Params.Seed != 42 {
			t.Errorf("defaults not applied: %+v", job.Params)
		}
		if created == nil || created.ID != job.ID {
			t.Error("job was not persisted")
		}
		if !woken {
			t.Error("worker wakeup not fired")
		}
	})

	t.Run("should reject invalid parameters before touching storage", func(t *testing.T) {
		repo := &mockJobRepo{
			CreateFunc: func(context.Context, repository.Tx, *model.VideoJob) error {
				t.Fatal("Create called for an invalid submission")
				return nil
			},
		}
		uc := NewJobUseCase(repo, allowAll(), testValidator(), &mockStorage{}, nil, &log)

		raw := validRaw()
		raw.ImageURL = "ftp://host/file"
		_, err := uc.Submit(ctx, "fp-a", raw)
		if !domain.IsKind(err, domain.FaultValidation) {
			t.Fatalf("err = %v, want a validation fault", err)
		}
	})

	t.Run("should reject over-limit callers with a retry hint", func(t *testing.T) {
		limiter := &mockLimiter{
			AllowFunc: func(context.Context, string) (ratelimit.Decision, error) {
				return ratelimit.Decision{Allowed: false, Current: 11, Limit: 10}, nil
			},
		}
		uc := NewJobUseCase(&mockJobRepo{}, limiter, testValidator(), &mockStorage{}, nil, &log)

		_, err := uc.Submit(ctx, "fp-a", validRaw())
		if !domain.IsKind(err, domain.FaultRateLimit) {
			t.Fatalf("err = %v, want a rate limit fault", err)
		}
		if domain.RetryAfterOf(err) != ratelimit.RetryAfter {
			t.Errorf("retry hint = %v", domain.RetryAfterOf(err))
		}
	})

	t.Run("should fail closed when the limiter backend errors", func(t *testing.T) {
		limiter := &mockLimiter{
			AllowFunc: func(context.Context, string) (ratelimit.Decision, error) {
				return ratelimit.Decision{}, errors.New("connection refused")
			},
		}
		uc := NewJobUseCase(&mockJobRepo{}, limiter, testValidator(), &mockStorage{}, nil, &log)

		_, err := uc.Submit(ctx, "fp-a", validRaw())
		if err == nil {
			t.Fatal("broken limiter admitted a request")
		}
	})
}

func TestJobUC_Get(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	owned := model.NewVideoJob("fp-owner", model.GenerationParams{})

	repo := &mockJobRepo{
		GetFunc: func(_ context.Context, _ repository.Tx, id string) (*model.VideoJob, error) {
			if id == owned.ID {
				return owned, nil
			}
			return nil, domain.ErrNotFound
		},
	}
	uc := NewJobUseCase(repo, allowAll(), testValidator(), &mockStorage{}, nil, &log)

	t.Run("should return the owner's job", func(t *testing.T) {
		job, err := uc.Get(ctx, "fp-owner", owned.ID)
		if err != nil {
			t.Fatal(err)
		}
		if job.ID != owned.ID {
			t.Errorf("got %s", job.ID)
		}
	})

	t.Run("should hide foreign jobs behind not-found", func(t *testing.T) {
		if _, err := uc.Get(ctx, "fp-other", owned.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("should short-circuit malformed IDs", func(t *testing.T) {
		if _, err := uc.Get(ctx, "fp-owner", "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestJobUC_Delete(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	terminal := model.NewVideoJob("fp-owner", model.GenerationParams{})
	terminal.MarkFailed("backend error")
	terminal.VideoObjectKey = "videos/x.mp4"

	t.Run("should remove the artifact and the record", func(t *testing.T) {
		deletedKey := ""
		deletedRow := ""
		repo := &mockJobRepo{
			GetFunc: func(_ context.Context, _ repository.Tx, id string) (*model.VideoJob, error) {
				return terminal, nil
			},
			DeleteFunc: func(_ context.Context, _ repository.Tx, id string) error {
				deletedRow = id
				return nil
			},
		}
		store := &mockStorage{DeleteFunc: func(_ context.Context, key string) error {
			deletedKey = key
			return nil
		}}
		uc := NewJobUseCase(repo, allowAll(), testValidator(), store, nil, &log)

		if err := uc.Delete(ctx, "fp-owner", terminal.ID); err != nil {
			t.Fatal(err)
		}
		if deletedKey != "videos/x.mp4" || deletedRow != terminal.ID {
			t.Errorf("artifact=%q row=%q", deletedKey, deletedRow)
		}
	})

	t.Run("should refuse to delete an in-flight job", func(t *testing.T) {
		running := model.NewVideoJob("fp-owner", model.GenerationParams{})
		repo := &mockJobRepo{
			GetFunc: func(_ context.Context, _ repository.Tx, id string) (*model.VideoJob, error) {
				return running, nil
			},
		}
		uc := NewJobUseCase(repo, allowAll(), testValidator(), &mockStorage{}, nil, &log)

		err := uc.Delete(ctx, "fp-owner", running.ID)
		if !domain.IsKind(err, domain.FaultValidation) {
			t.Fatalf("err = %v", err)
		}
	})
}
