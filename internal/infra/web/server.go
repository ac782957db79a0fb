package web

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"video-generation-api/internal/auth"
	"video-generation-api/internal/config"
	"video-generation-api/internal/domain/ports/repository"
	"video-generation-api/internal/infra/adapters/storage"
	"video-generation-api/internal/infra/ws"
	"video-generation-api/internal/usecase"
)

// Server is the public API surface: job admission and retrieval, uploads,
// artifact downloads and the live event stream.
type Server struct {
	cfg      *config.Config
	jobUC    usecase.JobUseCase
	authn    *auth.Authenticator
	keys     repository.APIKeyRepository
	hub      *ws.Hub
	files    *storage.LocalFS // nil unless the localfs provider is active
	upgrader websocket.Upgrader
	log      *zerolog.Logger
}

func NewServer(
	cfg *config.Config,
	jobUC usecase.JobUseCase,
	authn *auth.Authenticator,
	keys repository.APIKeyRepository,
	hub *ws.Hub,
	files *storage.LocalFS,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		cfg:   cfg,
		jobUC: jobUC,
		authn: authn,
		keys:  keys,
		hub:   hub,
		files: files,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

// Router assembles the public API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return Chain(next, TraceID(), Recover(s.log), RequestLog(s.log)) })

	r.Get("/health", s.handleHealth)
	r.Get("/files/*", s.handleServeFile)
	// Token-gated, not credential-gated: the inference backend fetches
	// these without an API key.
	r.Get("/uploads/{name}", s.handleServeUpload)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return APIKeyAuth(s.authn, s.keys, s.log)(next)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/jobs", s.handleSubmitJob)
			r.Get("/jobs", s.handleListJobs)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Delete("/jobs/{id}", s.handleDeleteJob)
			r.Post("/uploads", s.handleUpload)
			r.Get("/events", s.handleEvents)
		})
	})

	return r
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
