// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"video-generation-api/internal/auth"
	"video-generation-api/internal/config"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/infra/adapters/inference"
	"video-generation-api/internal/infra/adapters/storage"
	pg "video-generation-api/internal/infra/db/postgres"
	"video-generation-api/internal/infra/logging"
	"video-generation-api/internal/infra/metrics"
	red "video-generation-api/internal/infra/redis"
	"video-generation-api/internal/infra/sched"
	"video-generation-api/internal/infra/web"
	"video-generation-api/internal/infra/worker"
	"video-generation-api/internal/infra/ws"
	"video-generation-api/internal/ratelimit"
	"video-generation-api/internal/usecase"
	"video-generation-api/internal/validation"
	"video-generation-api/internal/webhook"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop backends allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	txm := pg.NewTxManager(pool)
	jobRepo := pg.NewJobRepo(pool, txm)
	keyRepo := pg.NewAPIKeyRepo(pool)
	logRepo := pg.NewRateLimitLogRepo(pool, txm)

	go poolStatsLoop(ctx, pool)

	// ---- Rate limiter ----
	resolver := perKeyResolver(keyRepo, cfg.RateLimit.PerMinute)
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "memory":
		limiter = ratelimit.NewMemoryLimiter(resolver)
	case "postgres":
		limiter = ratelimit.NewPostgresLimiter(logRepo, resolver, "/api/v1/jobs")
		reaper := sched.NewReaper(cfg.RateLimit.ReapInterval, cfg.RateLimit.Retention, logRepo, logger)
		go func() { _ = reaper.Run(ctx) }()
	case "redis":
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient, resolver)
	default:
		logger.Fatal().Str("backend", cfg.RateLimit.Backend).Msg("unknown rate limit backend")
	}
	logger.Info().Str("backend", cfg.RateLimit.Backend).Int("per_minute", cfg.RateLimit.PerMinute).Msg("rate limiter ready")

	// ---- Storage ----
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage init failed")
	}
	files, _ := store.(*storage.LocalFS) // signed-link serving is localfs-only
	logger.Info().Str("provider", cfg.Storage.Provider).Msg("storage ready")

	// ---- Inference backend ----
	infer, err := inference.New(cfg.Inference, cfg.Generation.TempDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("inference init failed")
	}
	logger.Info().Str("mode", cfg.Inference.Mode).Msg("inference backend ready")

	// ---- API keys ----
	// Env keys are optional: credentials issued through the admin API
	// authenticate against their stored fingerprints.
	if len(cfg.Auth.APIKeys) == 0 {
		logger.Warn().Msg("no API_KEYS configured; only admin-issued keys will authenticate")
	}
	authn := auth.NewAuthenticator(cfg.Auth.APIKeys, logger)
	seedAPIKeys(ctx, keyRepo, cfg.Auth.APIKeys, logger)

	// ---- Delivery paths ----
	hub := ws.NewHub(logger)
	dispatcher := webhook.NewDispatcher(cfg.Webhook, jobRepo, logger)

	// ---- Worker pool ----
	processor := worker.NewJobProcessor(jobRepo, infer, store, dispatcher, hub, cfg.Worker.PollInterval, logger)
	pool2 := worker.NewPool(cfg.Worker.Count, logger)
	pool2.Start(ctx)
	go processor.Start(ctx, pool2)

	// ---- Use cases ----
	validator := validation.New(cfg.Generation)
	// Self-issued upload links point back at this host; without the
	// exemption the loopback denylist would reject them.
	validator.AllowImagePrefix(cfg.Storage.LocalBaseURL + "/uploads/")
	jobUC := usecase.NewJobUseCase(jobRepo, limiter, validator, store, processor.Wakeup, logger)
	keyUC := usecase.NewAPIKeyUseCase(keyRepo)

	// ---- Public API server ----
	apiSrv := web.NewServer(cfg, jobUC, authn, keyRepo, hub, files, logger)
	api := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiSrv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", api.Addr).Msg("api server listening")
		if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server stopped")
		}
	}()

	// ---- Admin server ----
	if cfg.Auth.AdminSecret == "" {
		logger.Warn().Msg("ADMIN_JWT_SECRET not set; admin API disabled")
	}
	authm := web.NewAuthManager(cfg.Auth.AdminSecret, cfg.Auth.AdminTTL)
	adminSrv := web.NewAdminServer(keyUC, authm, logger)
	admin := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.AdminPort),
		Handler:           adminSrv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", admin.Addr).Msg("admin server listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = api.Shutdown(shutCtx)
	_ = admin.Shutdown(shutCtx)
	pool2.Stop()
}

// perKeyResolver prefers a credential's own rate_limit_per_minute over the
// global default. Lookup failures fall back to the default rather than
// blocking admission.
func perKeyResolver(keys *pg.APIKeyRepo, fallback int) ratelimit.LimitResolver {
	return func(ctx context.Context, fingerprint string) int {
		rec, err := keys.FindByFingerprint(ctx, nil, fingerprint)
		if err == nil && rec.RateLimitPerMinute > 0 {
			return rec.RateLimitPerMinute
		}
		return fallback
	}
}

// seedAPIKeys makes sure every env-configured key has a usage row. Existing
// rows keep their label, active flag and per-key limit.
func seedAPIKeys(ctx context.Context, keys *pg.APIKeyRepo, raw []string, logger *zerolog.Logger) {
	for i, k := range raw {
		fp := auth.Fingerprint(k)
		if _, err := keys.FindByFingerprint(ctx, nil, fp); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn().Err(err).Msg("api key lookup failed during seeding")
			continue
		}
		rec := &model.APIKey{
			Fingerprint: fp,
			Label:       fmt.Sprintf("env-key-%d", i+1),
			Active:      true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := keys.Save(ctx, nil, rec); err != nil {
			logger.Warn().Err(err).Msg("api key seeding failed")
		}
	}
}

func poolStatsLoop(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := pool.Stat()
			metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}
