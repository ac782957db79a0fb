package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"video-generation-api/internal/auth"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/ws"
)

type mockKeyRepo struct {
	FindByFingerprintFunc func(ctx context.Context, tx repository.Tx, fingerprint string) (*model.APIKey, error)
	TouchUsageFunc        func(ctx context.Context, tx repository.Tx, fingerprint string) error
}

var _ repository.APIKeyRepository = (*mockKeyRepo)(nil)

func (m *mockKeyRepo) Save(ctx context.Context, tx repository.Tx, key *model.APIKey) error {
	return nil
}
func (m *mockKeyRepo) FindByFingerprint(ctx context.Context, tx repository.Tx, fingerprint string) (*model.APIKey, error) {
	return m.FindByFingerprintFunc(ctx, tx, fingerprint)
}
func (m *mockKeyRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.APIKey, error) {
	return nil, nil
}
func (m *mockKeyRepo) SetActive(ctx context.Context, tx repository.Tx, fingerprint string, active bool) error {
	return nil
}
func (m *mockKeyRepo) SetRateLimit(ctx context.Context, tx repository.Tx, fingerprint string, perMinute int) error {
	return nil
}
func (m *mockKeyRepo) TouchUsage(ctx context.Context, tx repository.Tx, fingerprint string) error {
	if m.TouchUsageFunc != nil {
		return m.TouchUsageFunc(ctx, tx, fingerprint)
	}
	return nil
}

func TestAPIKeyAuth_IssuedKeys(t *testing.T) {
	// Key known only through its stored fingerprint, never via env.
	issuedKey := "issued-key-abcdef0123456789"
	issuedFP := auth.Fingerprint(issuedKey)

	listUC := &mockJobUC{
		ListFunc: func(_ context.Context, fingerprint string, _ int, _ model.JobStatus) ([]*model.VideoJob, error) {
			return nil, nil
		},
	}

	newServer := func(keys repository.APIKeyRepository) *httptest.Server {
		log := zerolog.Nop()
		authn := auth.NewAuthenticator([]string{testAPIKey}, &log)
		srv := NewServer(testConfig(t), listUC, authn, keys, ws.NewHub(&log), nil, &log)
		return httptest.NewServer(srv.Router())
	}

	t.Run("should accept a key whose stored record is active", func(t *testing.T) {
		var touched bool
		keys := &mockKeyRepo{
			FindByFingerprintFunc: func(_ context.Context, _ repository.Tx, fp string) (*model.APIKey, error) {
				if fp != issuedFP {
					t.Errorf("lookup fingerprint = %s, want %s", fp, issuedFP)
				}
				return &model.APIKey{Fingerprint: fp, Active: true}, nil
			},
			TouchUsageFunc: func(_ context.Context, _ repository.Tx, _ string) error {
				touched = true
				return nil
			},
		}
		ts := newServer(keys)
		defer ts.Close()

		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/jobs", issuedKey, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if !touched {
			t.Error("usage accounting not touched for an issued key")
		}
	})

	t.Run("should reject a revoked issued key", func(t *testing.T) {
		keys := &mockKeyRepo{
			FindByFingerprintFunc: func(_ context.Context, _ repository.Tx, fp string) (*model.APIKey, error) {
				return &model.APIKey{Fingerprint: fp, Active: false}, nil
			},
		}
		ts := newServer(keys)
		defer ts.Close()

		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/jobs", issuedKey, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("should reject a key with no stored record", func(t *testing.T) {
		keys := &mockKeyRepo{
			FindByFingerprintFunc: func(_ context.Context, _ repository.Tx, _ string) (*model.APIKey, error) {
				return nil, domain.ErrNotFound
			},
		}
		ts := newServer(keys)
		defer ts.Close()

		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/jobs", "unknown-key-0123456789ab", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("should still accept an env-configured key", func(t *testing.T) {
		keys := &mockKeyRepo{
			FindByFingerprintFunc: func(_ context.Context, _ repository.Tx, fp string) (*model.APIKey, error) {
				return &model.APIKey{Fingerprint: fp, Active: true}, nil
			},
		}
		ts := newServer(keys)
		defer ts.Close()

		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/jobs", testAPIKey, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})
}
