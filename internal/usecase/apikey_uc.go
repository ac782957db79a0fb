package usecase

import (
	"context"
	"time"

	"video-generation-api/internal/auth"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/repository"
)

var _ APIKeyUseCase = (*apiKeyUC)(nil)

type APIKeyUseCase interface {
	// Issue mints a fresh key, stores only its fingerprint and returns the
	// raw secret exactly once.
	Issue(ctx context.Context, label string) (rawKey string, key *model.APIKey, err error)
	List(ctx context.Context) ([]*model.APIKey, error)
	Revoke(ctx context.Context, fingerprint string) error
	Restore(ctx context.Context, fingerprint string) error
	SetRateLimit(ctx context.Context, fingerprint string, perMinute int) error
}

type apiKeyUC struct {
	keys repository.APIKeyRepository
}

func NewAPIKeyUseCase(keys repository.APIKeyRepository) *apiKeyUC {
	return &apiKeyUC{keys: keys}
}

func (u *apiKeyUC) Issue(ctx context.Context, label string) (string, *model.APIKey, error) {
	rawKey, err := auth.GenerateKey()
	if err != nil {
		return "", nil, err
	}
	key := &model.APIKey{
		Fingerprint: auth.Fingerprint(rawKey),
		Label:       label,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := u.keys.Save(ctx, nil, key); err != nil {
		return "", nil, err
	}
	return rawKey, key, nil
}

func (u *apiKeyUC) List(ctx context.Context) ([]*model.APIKey, error) {
	return u.keys.ListAll(ctx, nil)
}

func (u *apiKeyUC) Revoke(ctx context.Context, fingerprint string) error {
	return u.keys.SetActive(ctx, nil, fingerprint, false)
}

func (u *apiKeyUC) Restore(ctx context.Context, fingerprint string) error {
	return u.keys.SetActive(ctx, nil, fingerprint, true)
}

func (u *apiKeyUC) SetRateLimit(ctx context.Context, fingerprint string, perMinute int) error {
	if perMinute < 0 {
		return domain.Validationf("rate limit must not be negative")
	}
	return u.keys.SetRateLimit(ctx, nil, fingerprint, perMinute)
}
