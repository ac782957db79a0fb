package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/infra/metrics"
	"video-generation-api/internal/usecase"
)

// AdminServer is the management surface, bound to a separate listener so
// it never shares a port with untrusted traffic. It exposes credential
// management and Prometheus metrics behind JWT auth.
type AdminServer struct {
	keyUC usecase.APIKeyUseCase
	authm *AuthManager
	log   *zerolog.Logger
}

func NewAdminServer(keyUC usecase.APIKeyUseCase, authm *AuthManager, logger *zerolog.Logger) *AdminServer {
	return &AdminServer{keyUC: keyUC, authm: authm, log: logger}
}

func (s *AdminServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return Chain(next, TraceID(), Recover(s.log), RequestLog(s.log)) })

	r.Post("/auth/token", s.handleToken)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authm.RequireAdmin)
		r.Handle("/metrics", metrics.Handler())
		r.Route("/api/v1/keys", func(r chi.Router) {
			r.Post("/", s.handleIssueKey)
			r.Get("/", s.handleListKeys)
			r.Post("/{fingerprint}/revoke", s.handleRevokeKey)
			r.Post("/{fingerprint}/restore", s.handleRestoreKey)
			r.Put("/{fingerprint}/rate-limit", s.handleSetRateLimit)
		})
	})

	return r
}

func (s *AdminServer) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, domain.Validationf("request body is not valid JSON"))
		return
	}
	token, err := s.authm.Exchange(req.Secret)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *AdminServer) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, domain.Validationf("request body is not valid JSON"))
		return
	}

	rawKey, key, err := s.keyUC.Issue(r.Context(), req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	// The raw key appears in this response and nowhere else.
	writeJSON(w, http.StatusCreated, map[string]any{
		"api_key":     rawKey,
		"fingerprint": key.Fingerprint,
		"label":       key.Label,
	})
}

func (s *AdminServer) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.keyUC.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	type keyView struct {
		Fingerprint        string `json:"fingerprint"`
		Label              string `json:"label"`
		Active             bool   `json:"active"`
		RateLimitPerMinute int    `json:"rate_limit_per_minute"`
		TotalRequests      int64  `json:"total_requests"`
	}
	out := make([]keyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyView{
			Fingerprint:        k.Fingerprint,
			Label:              k.Label,
			Active:             k.Active,
			RateLimitPerMinute: k.RateLimitPerMinute,
			TotalRequests:      k.TotalRequests,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

func (s *AdminServer) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if err := s.keyUC.Revoke(r.Context(), chi.URLParam(r, "fingerprint")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) handleRestoreKey(w http.ResponseWriter, r *http.Request) {
	if err := s.keyUC.Restore(r.Context(), chi.URLParam(r, "fingerprint")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) handleSetRateLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PerMinute int `json:"per_minute"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, domain.Validationf("request body is not valid JSON"))
		return
	}
	if err := s.keyUC.SetRateLimit(r.Context(), chi.URLParam(r, "fingerprint"), req.PerMinute); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
