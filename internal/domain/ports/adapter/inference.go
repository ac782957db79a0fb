package adapter

import (
	"context"

	"video-generation-api/internal/domain/model"
)

// InferenceAdapter is the port for the generation backend. The backend is
// slow, hardware-bound and non-deterministic; this layer only hands it a
// validated parameter set and receives a local file path back. Its error
// strings are unstructured and must be sanitized before they reach a job
// record or a webhook payload.
type InferenceAdapter interface {
	// Generate blocks until the video exists at the returned local path,
	// or the context is cancelled. Retrying is the caller's concern.
	Generate(ctx context.Context, params model.GenerationParams, outputName string) (string, error)
}
