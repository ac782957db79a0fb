package usecase

import (
	"context"
	"time"

	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/adapter"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/ratelimit"
)

// Hand-rolled mocks with overridable funcs, one per port.

type mockJobRepo struct {
	CreateFunc             func(ctx context.Context, tx repository.Tx, job *model.VideoJob) error
	FetchQueuedFunc        func(ctx context.Context) (*model.VideoJob, error)
	MarkProcessingFunc     func(ctx context.Context, tx repository.Tx, id string, startedAt time.Time) error
	MarkCompletedFunc      func(ctx context.Context, tx repository.Tx, id, objectKey, videoURL string, generationSeconds float64) error
	MarkFailedFunc         func(ctx context.Context, tx repository.Tx, id, errorMessage string) error
	GetFunc                func(ctx context.Context, tx repository.Tx, id string) (*model.VideoJob, error)
	ListByFingerprintFunc  func(ctx context.Context, tx repository.Tx, fingerprint string, limit int, status model.JobStatus) ([]*model.VideoJob, error)
	UpdateWebhookStateFunc func(ctx context.Context, tx repository.Tx, id string, delivered bool, attempts int) error
	DeleteFunc             func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.JobRepository = (*mockJobRepo)(nil)

func (m *mockJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.VideoJob) error {
	return m.CreateFunc(ctx, tx, job)
}
func (m *mockJobRepo) FetchQueued(ctx context.Context) (*model.VideoJob, error) {
	return m.FetchQueuedFunc(ctx)
}
func (m *mockJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string, startedAt time.Time) error {
	return m.MarkProcessingFunc(ctx, tx, id, startedAt)
}
func (m *mockJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id, objectKey, videoURL string, generationSeconds float64) error {
	return m.MarkCompletedFunc(ctx, tx, id, objectKey, videoURL, generationSeconds)
}
func (m *mockJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorMessage string) error {
	return m.MarkFailedFunc(ctx, tx, id, errorMessage)
}
func (m *mockJobRepo) Get(ctx context.Context, tx repository.Tx, id string) (*model.VideoJob, error) {
	return m.GetFunc(ctx, tx, id)
}
func (m *mockJobRepo) ListByFingerprint(ctx context.Context, tx repository.Tx, fingerprint string, limit int, status model.JobStatus) ([]*model.VideoJob, error) {
	return m.ListByFingerprintFunc(ctx, tx, fingerprint, limit, status)
}
func (m *mockJobRepo) UpdateWebhookState(ctx context.Context, tx repository.Tx, id string, delivered bool, attempts int) error {
	return m.UpdateWebhookStateFunc(ctx, tx, id, delivered, attempts)
}
func (m *mockJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return m.DeleteFunc(ctx, tx, id)
}

type mockLimiter struct {
	AllowFunc func(ctx context.Context, fingerprint string) (ratelimit.Decision, error)
}

var _ ratelimit.Limiter = (*mockLimiter)(nil)

func (m *mockLimiter) Allow(ctx context.Context, fingerprint string) (ratelimit.Decision, error) {
	return m.AllowFunc(ctx, fingerprint)
}

type mockStorage struct {
	UploadFunc func(ctx context.Context, localPath, jobID string) (adapter.UploadResult, error)
	DeleteFunc func(ctx context.Context, objectKey string) error
}

var _ adapter.StorageAdapter = (*mockStorage)(nil)

func (m *mockStorage) Provider() string { return "mock" }
func (m *mockStorage) Upload(ctx context.Context, localPath, jobID string) (adapter.UploadResult, error) {
	return m.UploadFunc(ctx, localPath, jobID)
}
func (m *mockStorage) Delete(ctx context.Context, objectKey string) error {
	return m.DeleteFunc(ctx, objectKey)
}

type mockAPIKeyRepo struct {
	SaveFunc              func(ctx context.Context, tx repository.Tx, key *model.APIKey) error
	FindByFingerprintFunc func(ctx context.Context, tx repository.Tx, fingerprint string) (*model.APIKey, error)
	ListAllFunc           func(ctx context.Context, tx repository.Tx) ([]*model.APIKey, error)
	SetActiveFunc         func(ctx context.Context, tx repository.Tx, fingerprint string, active bool) error
	SetRateLimitFunc      func(ctx context.Context, tx repository.Tx, fingerprint string, perMinute int) error
	TouchUsageFunc        func(ctx context.Context, tx repository.Tx, fingerprint string) error
}

var _ repository.APIKeyRepository = (*mockAPIKeyRepo)(nil)

func (m *mockAPIKeyRepo) Save(ctx context.Context, tx repository.Tx, key *model.APIKey) error {
	return m.SaveFunc(ctx, tx, key)
}
func (m *mockAPIKeyRepo) FindByFingerprint(ctx context.Context, tx repository.Tx, fingerprint string) (*model.APIKey, error) {
	return m.FindByFingerprintFunc(ctx, tx, fingerprint)
}
func (m *mockAPIKeyRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.APIKey, error) {
	return m.ListAllFunc(ctx, tx)
}
func (m *mockAPIKeyRepo) SetActive(ctx context.Context, tx repository.Tx, fingerprint string, active bool) error {
	return m.SetActiveFunc(ctx, tx, fingerprint, active)
}
func (m *mockAPIKeyRepo) SetRateLimit(ctx context.Context, tx repository.Tx, fingerprint string, perMinute int) error {
	return m.SetRateLimitFunc(ctx, tx, fingerprint, perMinute)
}
func (m *mockAPIKeyRepo) TouchUsage(ctx context.Context, tx repository.Tx, fingerprint string) error {
	return m.TouchUsageFunc(ctx, tx, fingerprint)
}
