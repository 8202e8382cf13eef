package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// StateHandler serves channel state over HTTP, mirroring the catch-up
// payload a joiner receives over the socket.
type StateHandler struct {
	stateManager *ChannelStateManager
}

// NewStateHandler creates a new state handler.
func NewStateHandler(sm *ChannelStateManager) *StateHandler {
	return &StateHandler{
		stateManager: sm,
	}
}

// HandleGetChannelState handles GET /api/channels/{handle}/state.
func (h *StateHandler) HandleGetChannelState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handle := extractHandleFromPath(r.URL.Path)
	if handle == "" {
		http.Error(w, "Channel handle is required", http.StatusBadRequest)
		return
	}

	snapshot := h.stateManager.Snapshot(handle)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		log.Error().Err(err).Str("channel", handle).Msg("failed to encode channel state response")
	}
}

// HandleGetActiveChannels handles GET /api/channels/active.
func (h *StateHandler) HandleGetActiveChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handles := h.stateManager.ActiveChannels()
	if handles == nil {
		handles = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(handles); err != nil {
		log.Error().Err(err).Msg("failed to encode active channels response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/channels/active", h.HandleGetActiveChannels)

	mux.HandleFunc("/api/channels/", func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("path", r.URL.Path).Msg("state handler received request")

		if len(r.URL.Path) > len("/api/channels/") && r.URL.Path[len(r.URL.Path)-6:] == "/state" {
			h.HandleGetChannelState(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
}

// extractHandleFromPath extracts the seller handle from a path like
// /api/channels/{handle}/state.
func extractHandleFromPath(path string) string {
	const prefix = "/api/channels/"
	const suffix = "/state"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}

	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}

	return path[len(prefix) : len(path)-len(suffix)]
}
