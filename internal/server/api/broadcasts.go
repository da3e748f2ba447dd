package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/nodwatch/internal/broadcast"
)

// BroadcastHandler injects platform broadcasts into the bus.
type BroadcastHandler struct {
	bus *broadcast.Bus
}

// NewBroadcastHandler creates a new BroadcastHandler for bus.
func NewBroadcastHandler(bus *broadcast.Bus) *BroadcastHandler {
	return &BroadcastHandler{bus: bus}
}

type broadcastRequest struct {
	Action string            `json:"action"`
	Extras map[string]string `json:"extras"`
}

// ServeHTTP handles POST /api/broadcasts. The action defaults to eye_gesture. A consumed
// broadcast answers 202, an unconsumed one 200.
func (h *BroadcastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Action == "" {
		req.Action = broadcast.EyeGestureAction
	}

	consumed := h.bus.Send(&broadcast.Message{Action: req.Action, Extras: req.Extras})

	status := http.StatusOK
	if consumed {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]bool{"consumed": consumed})
}
