package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
	"video-generation-api/internal/validation"
)

type submitRequest struct {
	ImageURL   string `json:"image_url"`
	Prompt     string `json:"prompt"`
	Width      *int   `json:"width"`
	Height     *int   `json:"height"`
	NumFrames  *int   `json:"num_frames"`
	NumSteps   *int   `json:"num_steps"`
	Seed       *int64 `json:"seed"`
	WebhookURL string `json:"webhook_url"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, domain.Validationf("request body is not valid JSON"))
		return
	}

	job, err := s.jobUC.Submit(r.Context(), FingerprintFrom(r.Context()), validation.RawParams{
		ImageURL:   req.ImageURL,
		Prompt:     req.Prompt,
		Width:      req.Width,
		Height:     req.Height,
		NumFrames:  req.NumFrames,
		NumSteps:   req.NumSteps,
		Seed:       req.Seed,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobUC.Get(r.Context(), FingerprintFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := model.JobStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.JobStatusQueued && status != model.JobStatusProcessing &&
		status != model.JobStatusCompleted && status != model.JobStatusFailed {
		writeError(w, domain.Validationf("unknown status filter"))
		return
	}

	jobs, err := s.jobUC.List(r.Context(), FingerprintFrom(r.Context()), limit, status)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobUC.Delete(r.Context(), FingerprintFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload accepts a multipart image, verifies magic numbers against
// the declared type, and stores it under a fresh random name.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Upload.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+4096)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.Validationf("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, domain.Validationf("upload could not be read"))
		return
	}

	declared := header.Header.Get("Content-Type")
	if err := validation.ValidateUploadedFile(header.Filename, declared, data, maxBytes, s.cfg.Upload.AllowedTypeList()); err != nil {
		writeError(w, err)
		return
	}

	name, err := validation.SafeFilename(filepath.Ext(header.Filename), "upload")
	if err != nil {
		writeError(w, err)
		return
	}
	dst, err := validation.SafeJoin(s.cfg.Upload.Dir, name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := writeFile(dst, data); err != nil {
		writeError(w, domain.Storagef(err, "upload could not be stored"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"filename": name,
		"url":      s.signedUploadURL(name),
	})
}

// signedUploadURL mints an expiring link for a stored upload. The link is
// fetched without credentials (by the inference backend among others), so
// the token is the only gate.
func (s *Server) signedUploadURL(name string) string {
	expires := time.Now().Add(s.cfg.Storage.URLTTL).Unix()
	return fmt.Sprintf("%s/uploads/%s?expires=%d&sig=%s",
		s.cfg.Storage.LocalBaseURL, name, expires, s.uploadToken(name, expires))
}

func (s *Server) verifyUploadURL(name string, query url.Values) bool {
	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > expires {
		return false
	}
	want, err := hex.DecodeString(query.Get("sig"))
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(s.uploadToken(name, expires))
	return hmac.Equal(got, want)
}

func (s *Server) uploadToken(name string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Storage.SigningSecret))
	fmt.Fprintf(mac, "uploads/%s|%d", name, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// handleServeUpload returns a previously stored input image when its
// signed link still verifies. No credential is required: the token is what
// lets the inference backend fetch the image.
func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.verifyUploadURL(name, r.URL.Query()) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "link expired or invalid"})
		return
	}
	p, err := validation.SafeJoin(s.cfg.Upload.Dir, name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	http.ServeFile(w, r, p)
}

// handleServeFile serves a stored video when the HMAC link still
// verifies. Only wired for the localfs provider.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	key := chi.URLParam(r, "*")
	if !s.files.VerifyURL(key, r.URL.Query()) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "link expired or invalid"})
		return
	}
	f, err := s.files.Open(key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	_, _ = io.Copy(w, f)
}

// handleEvents upgrades to a websocket scoped to the caller's credential;
// the hub pushes that credential's job updates until the peer goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hub.Register(conn, FingerprintFrom(r.Context()))

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unregister(conn)
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
