package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"video-generation-api/internal/config"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger configured from config.
// Supports "trace" | "debug" | "info" | "warn" | "error" levels
// and "json" | "console" formats. Sampling can be enabled to reduce noise in prod.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" || dev {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		base = zerolog.New(out).With().Timestamp().Logger()
	} else {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if cfg.Sampling && !dev {
		sampled := base.Sample(&zerolog.BasicSampler{N: 100})
		return &sampled
	}
	return &base
}

type ctxKey string

const (
	ctxTraceID     ctxKey = "trace_id"
	ctxJobID       ctxKey = "job_id"
	ctxFingerprint ctxKey = "key_fp"
)

// With attaches common context fields such as trace_id, job_id, key_fp.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	l := base.With()
	if v := ctx.Value(ctxTraceID); v != nil {
		l = l.Str("trace_id", v.(string))
	}
	if v := ctx.Value(ctxJobID); v != nil {
		l = l.Str("job_id", v.(string))
	}
	if v := ctx.Value(ctxFingerprint); v != nil {
		l = l.Str("key_fp", Redact(v.(string), false))
	}
	logger := l.Logger()
	return &logger
}

// Redact hides secrets when not in dev; keep a short preview only.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxJobID, id)
}
func WithFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, ctxFingerprint, fp)
}

// FingerprintFromContext returns the authenticated credential fingerprint
// placed on the context by the auth middleware, or "".
func FingerprintFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxFingerprint); v != nil {
		return v.(string)
	}
	return ""
}
