package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Realtime event types
const (
	EventPartnerStatus = "partner_status"
	EventCoupleStatus  = "couple_status"
	EventPairCreated   = "pair_created"
	EventPairDeleted   = "pair_deleted"
	EventPetUpdated    = "pet_updated"
	EventAnswerUpdated = "answer_updated"
	EventPoke          = "poke"
	EventError         = "error"
)

// ErrNotConnected is returned when an account has no open websocket
var ErrNotConnected = errors.New("account is not connected")

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Online    *bool  `json:"online,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// wsClient serializes writes to one connection
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per account
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[string]*wsClient)}
}

// Register registers a connection for an account, replacing any older one
func (h *WSHub) Register(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[accountID]; ok {
		existing.conn.Close()
	}
	h.clients[accountID] = &wsClient{conn: conn}

	log.Info().Str("account_id", accountID).Msg("WebSocket connection registered")
}

// Unregister removes the connection of an account if it is still conn
func (h *WSHub) Unregister(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[accountID]; ok && c.conn == conn {
		c.conn.Close()
		delete(h.clients, accountID)
		log.Info().Str("account_id", accountID).Msg("WebSocket connection unregistered")
	}
}

// IsOnline checks if an account has an open connection
func (h *WSHub) IsOnline(accountID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[accountID]
	return ok
}

// Send writes a message to one account
func (h *WSHub) Send(accountID string, message WSMessage) error {
	h.mu.RLock()
	c, ok := h.clients[accountID]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(accountID, c.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Publish sends a message if the account is connected and logs failures
func (h *WSHub) Publish(accountID string, message WSMessage) {
	if h == nil || accountID == "" {
		return
	}
	if err := h.Send(accountID, message); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Str("account_id", accountID).Str("type", message.Type).Msg("Failed to publish realtime event")
	}
}

// NotifyPartnerStatus tells the partner whether accountID is online
func (h *WSHub) NotifyPartnerStatus(partnerID string, online bool) {
	h.Publish(partnerID, WSMessage{Type: EventPartnerStatus, Online: &online})
}
