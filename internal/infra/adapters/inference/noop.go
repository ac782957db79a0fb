package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"video-generation-api/internal/config"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/adapter"
)

var _ adapter.InferenceAdapter = (*NoopAdapter)(nil)

// NoopAdapter stands in for the real backend during development: it waits
// a moment and writes a placeholder file. Useful for exercising the whole
// submit-process-notify path without GPU hardware.
type NoopAdapter struct {
	tempDir string
	delay   time.Duration
}

func NewNoopAdapter(tempDir string) *NoopAdapter {
	return &NoopAdapter{tempDir: tempDir, delay: 100 * time.Millisecond}
}

func (a *NoopAdapter) Generate(ctx context.Context, params model.GenerationParams, outputName string) (string, error) {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := os.MkdirAll(a.tempDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(a.tempDir, outputName)
	content := fmt.Sprintf("placeholder %dx%d %d frames seed %d\n",
		params.Width, params.Height, params.NumFrames, params.Seed)
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// New builds the configured inference backend.
func New(cfg config.InferenceConfig, tempDir string) (adapter.InferenceAdapter, error) {
	switch cfg.Mode {
	case "noop", "":
		return NewNoopAdapter(tempDir), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("inference.base_url is required for http mode")
		}
		return NewHTTPAdapter(cfg, tempDir), nil
	default:
		return nil, fmt.Errorf("unknown inference mode: %s", cfg.Mode)
	}
}
