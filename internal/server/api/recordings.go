package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/nodwatch/internal/gesture"
	"github.com/ayusman/nodwatch/internal/store"
)

// Replayer streams a stored recording into the engine's input.
type Replayer interface {
	// StartReplay begins streaming recording id in the background. interval <= 0 uses
	// the recording's own sample interval.
	StartReplay(id string, interval time.Duration) error
}

// RecordingHandler handles HTTP requests for recorded sensor streams.
type RecordingHandler struct {
	store    *store.Store
	replayer Replayer
}

// NewRecordingHandler creates a new RecordingHandler. replayer may be nil, in which case
// replay requests are rejected.
func NewRecordingHandler(s *store.Store, replayer Replayer) *RecordingHandler {
	return &RecordingHandler{store: s, replayer: replayer}
}

type createRecordingRequest struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ExpectedKind string         `json:"expected_kind"`
	IntervalMs   int            `json:"interval_ms"`
	Samples      []store.Sample `json:"samples"`
}

type listRecordingsResponse struct {
	Recordings []*store.Recording `json:"recordings"`
}

type recordingResponse struct {
	Recording *store.Recording `json:"recording"`
	Samples   []store.Sample   `json:"samples"`
}

type replayRequest struct {
	IntervalMs int `json:"interval_ms"`
}

// ServeHTTP routes /api/recordings, /api/recordings/{id} and /api/recordings/{id}/replay.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := subpath(r, "/api/recordings")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/replay"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.replay(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recs == nil {
		recs = []*store.Recording{}
	}
	writeJSON(w, http.StatusOK, listRecordingsResponse{Recordings: recs})
}

func (h *RecordingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "samples must not be empty")
		return
	}
	if req.ExpectedKind != "" && !gesture.Kind(req.ExpectedKind).Valid() {
		writeError(w, http.StatusBadRequest, "expected_kind must be one of nod, head_shake, wink")
		return
	}
	if req.IntervalMs < 0 {
		writeError(w, http.StatusBadRequest, "interval_ms must not be negative")
		return
	}

	rec := &store.Recording{
		Name:         req.Name,
		Description:  req.Description,
		ExpectedKind: req.ExpectedKind,
		IntervalMs:   req.IntervalMs,
	}
	if err := h.store.Recordings().Create(rec, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create recording")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	samples, err := h.store.Recordings().Samples(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}

	writeJSON(w, http.StatusOK, recordingResponse{Recording: rec, Samples: samples})
}

func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// replay handles POST /api/recordings/{id}/replay with an optional {"interval_ms": n} body.
func (h *RecordingHandler) replay(w http.ResponseWriter, r *http.Request, id string) {
	if h.replayer == nil {
		writeError(w, http.StatusServiceUnavailable, "Replay is not available")
		return
	}

	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.IntervalMs < 0 {
		writeError(w, http.StatusBadRequest, "interval_ms must not be negative")
		return
	}

	err := h.replayer.StartReplay(id, time.Duration(req.IntervalMs)*time.Millisecond)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "replaying", "id": id})
}
