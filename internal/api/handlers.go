package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/jfmyers9/onair/internal/document"
	"github.com/rs/zerolog"
)

type handlers struct {
	reader SnapshotReader
	logger zerolog.Logger
}

// itemStub is the fixed body of the item routes
type itemStub struct {
	Tracks struct {
		ID string `json:"id"`
	} `json:"tracks"`
}

// Health is the body of /healthz
type Health struct {
	Status    string     `json:"status"`
	Version   uint64     `json:"version"`
	UpdatedAt *time.Time `json:"updated_at"`
	Songs     int        `json:"songs"`
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, document.MediaType, h.reader.Snapshot().Document)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusCreated)
}

func (h *handlers) show(w http.ResponseWriter, r *http.Request) {
	h.echo(w, r)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	h.echo(w, r)
}

func (h *handlers) destroy(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) echo(w http.ResponseWriter, r *http.Request) {
	var body itemStub
	body.Tracks.ID = chi.URLParam(r, "id")
	h.writeJSON(w, http.StatusOK, "application/json", body)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	snap := h.reader.Snapshot()

	body := Health{
		Status:  "ok",
		Version: snap.Version,
		Songs:   len(snap.Document.Data),
	}
	if !snap.UpdatedAt.IsZero() {
		updated := snap.UpdatedAt.UTC()
		body.UpdatedAt = &updated
	}

	h.writeJSON(w, http.StatusOK, "application/json", body)
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
