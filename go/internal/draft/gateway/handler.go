package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Handler exposes the hub over HTTP: one websocket endpoint plus a stats
// endpoint for health checks.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeWS upgrades GET /ws?channel_id=<id> to a websocket subscription.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.ParseInt(r.URL.Query().Get("channel_id"), 10, 64)
	if err != nil || channelID <= 0 {
		http.Error(w, "channel_id query parameter required", http.StatusBadRequest)
		return
	}
	if err := h.hub.Upgrade(w, r, channelID); err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("websocket upgrade failed")
	}
}

// ServeStats reports connection counts as JSON.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.hub.Stats()); err != nil {
		log.Error().Err(err).Msg("encode gateway stats")
	}
}
