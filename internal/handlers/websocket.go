package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsReadLimit = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsHub interface {
	Register(viewer models.Viewer, conn services.WSConn)
	Unregister(userID string, conn services.WSConn)
	Refresh(userID string)
	SendToUser(userID string, message services.WSMessage) error
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      wsHub
	tokens   middleware.TokenValidator
	resolver middleware.ProfileResolver
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub wsHub, tokens middleware.TokenValidator, resolver middleware.ProfileResolver) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		tokens:   tokens,
		resolver: resolver,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	res := h.resolver.Resolve(r.Context(), claims.Identity)
	if res.Degraded() {
		log.Warn().Err(res.Reason).Str("user_id", claims.Identity.ID).Msg("WebSocket using default profile")
	}
	viewer := models.ViewerOf(res.Profile)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	h.hub.Register(viewer, conn)
	defer h.hub.Unregister(viewer.ID, conn)

	log.Info().Str("user_id", viewer.ID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", viewer.ID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(viewer.ID, "Invalid message format")
			continue
		}
		h.handleMessage(viewer.ID, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(userID string, msg services.WSMessage) {
	switch msg.Type {
	case "ping":
		if err := h.hub.SendToUser(userID, services.WSMessage{Type: services.MsgPong, Timestamp: time.Now().UnixMilli()}); err != nil {
			log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send pong")
		}
	case "refresh":
		h.hub.Refresh(userID)
	default:
		h.sendError(userID, "Unknown message type")
	}
}

func (h *WebSocketHandler) sendError(userID, message string) {
	if err := h.hub.SendToUser(userID, services.WSMessage{Type: services.MsgError, Message: message}); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send error message")
	}
}
