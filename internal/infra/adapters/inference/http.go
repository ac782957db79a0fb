package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-generation-api/internal/config"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/domain/ports/adapter"
)

var _ adapter.InferenceAdapter = (*HTTPAdapter)(nil)

// HTTPAdapter drives a generation backend over HTTP: POST the parameter
// set to /generate, stream the video bytes from the response into the
// output file. The backend is slow, so the client timeout is measured in
// minutes, and every call also honors context cancellation.
type HTTPAdapter struct {
	baseURL string
	tempDir string
	client  *http.Client
}

func NewHTTPAdapter(cfg config.InferenceConfig, tempDir string) *HTTPAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPAdapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tempDir: tempDir,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	ImageURL  string `json:"image_url"`
	Prompt    string `json:"prompt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	NumFrames int    `json:"num_frames"`
	NumSteps  int    `json:"num_steps"`
	Seed      int64  `json:"seed"`
}

func (a *HTTPAdapter) Generate(ctx context.Context, params model.GenerationParams, outputName string) (string, error) {
	body, err := json.Marshal(generateRequest{
		ImageURL:  params.ImageURL,
		Prompt:    params.Prompt,
		Width:     params.Width,
		Height:    params.Height,
		NumFrames: params.NumFrames,
		NumSteps:  params.NumSteps,
		Seed:      params.Seed,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("backend http %d: %s", res.StatusCode, msg)
	}

	if err := os.MkdirAll(a.tempDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(a.tempDir, outputName)
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, res.Body); err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}
