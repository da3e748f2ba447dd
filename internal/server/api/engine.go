package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/nodwatch/internal/engine"
)

// Controller starts and stops gesture listening.
type Controller interface {
	Start() error
	Stop() error
	Listening() bool
	Stats() engine.Stats
}

// EngineHandler exposes the listening state and its transitions.
type EngineHandler struct {
	ctrl Controller
}

// NewEngineHandler creates a new EngineHandler for ctrl.
func NewEngineHandler(ctrl Controller) *EngineHandler {
	return &EngineHandler{ctrl: ctrl}
}

type statusResponse struct {
	Listening bool         `json:"listening"`
	Stats     engine.Stats `json:"stats"`
}

// Status handles GET /api/status.
func (h *EngineHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeStatus(w)
}

// ServeHTTP handles POST /api/engine/start and POST /api/engine/stop.
func (h *EngineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch subpath(r, "/api/engine") {
	case "start":
		if err := h.ctrl.Start(); err != nil {
			if errors.Is(err, engine.ErrSensorUnavailable) {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case "stop":
		if err := h.ctrl.Stop(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		http.NotFound(w, r)
		return
	}

	h.writeStatus(w)
}

func (h *EngineHandler) writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, statusResponse{
		Listening: h.ctrl.Listening(),
		Stats:     h.ctrl.Stats(),
	})
}
