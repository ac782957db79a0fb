package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"video-generation-api/internal/domain/model"
)

// Hub fans job status updates out to websocket subscribers. Each
// connection is registered under the credential fingerprint it
// authenticated with, and only receives updates for that credential's
// jobs.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> fingerprint
	log     *zerolog.Logger
}

func NewHub(log *zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]string),
		log:     log,
	}
}

// Register adds a connection scoped to a fingerprint.
func (h *Hub) Register(conn *websocket.Conn, fingerprint string) {
	h.mu.Lock()
	h.clients[conn] = fingerprint
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("clients", n).Msg("websocket client connected")
}

// Unregister drops and closes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("clients", n).Msg("websocket client disconnected")
}

type jobUpdate struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	VideoURL  string `json:"video_url,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BroadcastJobUpdate notifies the subscribers of the job's owning
// credential. Writes that fail drop the connection.
func (h *Hub) BroadcastJobUpdate(job *model.VideoJob) {
	update := jobUpdate{
		Type:      "job_update",
		JobID:     job.ID,
		Status:    string(job.Status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	switch job.Status {
	case model.JobStatusCompleted:
		update.VideoURL = job.VideoURL
	case model.JobStatusFailed:
		update.Error = job.ErrorMessage
	}

	data, err := json.Marshal(update)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal job update")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, fp := range h.clients {
		if fp != job.KeyFingerprint {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warn().Err(err).Msg("websocket write failed, dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
