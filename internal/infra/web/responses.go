package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain failures onto HTTP statuses. Unclassified errors
// become an opaque 500; their details belong in logs, not responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "already exists"})
		return
	}

	var f *domain.Fault
	if !errors.As(err, &f) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	switch f.Kind {
	case domain.FaultValidation:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: f.Message, Kind: string(f.Kind)})
	case domain.FaultAuthentication:
		w.Header().Set("WWW-Authenticate", `ApiKey realm="api"`)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: f.Message, Kind: string(f.Kind)})
	case domain.FaultRateLimit:
		if f.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(f.RetryAfter.Seconds())))
		}
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: f.Message, Kind: string(f.Kind)})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: string(f.Kind)})
	}
}

type jobResponse struct {
	JobID             string   `json:"job_id"`
	Status            string   `json:"status"`
	CreatedAt         string   `json:"created_at"`
	StartedAt         *string  `json:"started_at,omitempty"`
	CompletedAt       *string  `json:"completed_at,omitempty"`
	VideoURL          string   `json:"video_url,omitempty"`
	GenerationSeconds *float64 `json:"generation_seconds,omitempty"`
	Error             string   `json:"error,omitempty"`
	WebhookDelivered  bool     `json:"webhook_delivered"`
	WebhookAttempts   int      `json:"webhook_attempts,omitempty"`
}

func toJobResponse(job *model.VideoJob) jobResponse {
	resp := jobResponse{
		JobID:            job.ID,
		Status:           string(job.Status),
		CreatedAt:        job.CreatedAt.UTC().Format(time.RFC3339),
		StartedAt:        formatTime(job.StartedAt),
		CompletedAt:      formatTime(job.CompletedAt),
		WebhookDelivered: job.WebhookDelivered,
		WebhookAttempts:  job.WebhookAttempts,
	}
	switch job.Status {
	case model.JobStatusCompleted:
		resp.VideoURL = job.VideoURL
		secs := job.GenerationSeconds
		resp.GenerationSeconds = &secs
	case model.JobStatusFailed:
		resp.Error = job.ErrorMessage
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
