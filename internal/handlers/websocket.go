package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/auth"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// WebSocketHandler handles realtime connections
type WebSocketHandler struct {
	hub         *services.WSHub
	verifier    auth.Verifier
	userService *services.UserService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, verifier auth.Verifier, userService *services.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		verifier:    verifier,
		userService: userService,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, apperr.KindUnauthenticated, "token required")
		return
	}

	accountID, err := h.verifier.Verify(token)
	if err != nil {
		respondError(w, apperr.KindUnauthenticated, "invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(accountID, conn)
	defer h.hub.Unregister(accountID, conn)

	info, err := h.userService.GetInfo(r.Context(), accountID)
	partnerID := ""
	if err == nil && info.PartnerID != nil {
		partnerID = *info.PartnerID
	}
	status := map[string]any{"has_couple": partnerID != ""}
	if err == nil && info.CoupleID != nil {
		status["couple_id"] = *info.CoupleID
		status["partner_online"] = h.hub.IsOnline(partnerID)
	}
	h.hub.Publish(accountID, services.WSMessage{Type: services.EventCoupleStatus, Data: status})
	h.hub.NotifyPartnerStatus(partnerID, true)

	log.Info().Str("account_id", accountID).Msg("WebSocket connection established")

	for {
		var msg services.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("account_id", accountID).Msg("WebSocket error")
			}
			break
		}
		if msg.Type != "ping" {
			h.hub.Publish(accountID, services.WSMessage{Type: services.EventError, Message: "Unknown message type"})
			continue
		}
		h.hub.Publish(accountID, services.WSMessage{Type: "pong"})
	}

	h.hub.NotifyPartnerStatus(partnerID, false)
}
