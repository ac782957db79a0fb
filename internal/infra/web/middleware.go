package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"video-generation-api/internal/auth"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/logging"
	"video-generation-api/internal/infra/metrics"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithTraceID(r.Context(), uuid.NewString())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logging.With(r.Context(), logger)
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			metrics.ObserveHTTPRequest(route, ww.status, float64(elapsed.Milliseconds()))
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", elapsed).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth authenticates the X-API-Key header against the union of the
// env-configured key set and the issued records in the key store, rejects
// revoked credentials, and stores the fingerprint in the request context.
// Usage accounting is best-effort and never fails the request.
func APIKeyAuth(authn *auth.Authenticator, keys repository.APIKeyRepository, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			fingerprint, err := authn.Verify(presented)
			if err != nil {
				// Issued keys live only in the store; the env scan cannot
				// know them.
				fingerprint = ""
				if keys != nil && auth.ValidKeyFormat(presented) {
					fp := auth.Fingerprint(presented)
					if record, ferr := keys.FindByFingerprint(r.Context(), nil, fp); ferr == nil && record.Active {
						fingerprint = fp
					}
				}
				if fingerprint == "" {
					writeError(w, err)
					return
				}
			}

			if keys != nil {
				record, err := keys.FindByFingerprint(r.Context(), nil, fingerprint)
				switch {
				case err == nil && !record.Active:
					writeError(w, domain.Authenticationf("invalid or missing API key"))
					return
				case err == nil:
					if terr := keys.TouchUsage(r.Context(), nil, fingerprint); terr != nil {
						logging.With(r.Context(), logger).Warn().Err(terr).Msg("usage accounting failed")
					}
				}
			}

			ctx := logging.WithFingerprint(r.Context(), fingerprint)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FingerprintFrom returns the authenticated credential fingerprint, or ""
// outside the authenticated chain.
func FingerprintFrom(ctx context.Context) string {
	return logging.FingerprintFromContext(ctx)
}
