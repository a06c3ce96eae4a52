package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/engine/state"
)

// createSessionRequest is the POST /sessions body: seats in turn order.
type createSessionRequest struct {
	Seats []state.Seat `json:"seats"`
}

type createSessionResponse struct {
	SessionID string           `json:"session_id"`
	State     *state.GameState `json:"state"`
}

// Routes returns the HTTP mux for the coordination layer.
func (h *Hub) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", h.handleCreateSession)
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Hub) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.CreateSession(req.Seats)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createSessionResponse{
		SessionID: sess.ID,
		State:     sess.CurrentState(),
	}); err != nil {
		h.logger.Warn("failed to encode session response", zap.Error(err))
	}
}
