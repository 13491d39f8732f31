package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"food-rescue-backend/internal/metrics"
	"food-rescue-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsSendBuffer = 64
	wsWriteWait  = 10 * time.Second
)

// WebSocket message types
const (
	MsgSnapshot         = "snapshot"
	MsgDonationInserted = "donation_inserted"
	MsgDonationUpdated  = "donation_updated"
	MsgDonationRemoved  = "donation_removed"
	MsgDonationDeleted  = "donation_deleted"
	MsgPong             = "pong"
	MsgError            = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type       string             `json:"type"`
	Timestamp  int64              `json:"timestamp,omitempty"`
	Donation   *models.Donation   `json:"donation,omitempty"`
	DonationID string             `json:"donation_id,omitempty"`
	Donations  []*models.Donation `json:"donations,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// WSConn is the part of *websocket.Conn the hub writes to.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type donationSource interface {
	Subscribe(fn Listener) (unsubscribe func())
	Visible(viewer models.Viewer) []*models.Donation
}

type wsClient struct {
	userID string
	conn   WSConn
	send   chan []byte

	mu     sync.Mutex
	viewer models.Viewer
	closed bool
}

func (c *wsClient) currentViewer() models.Viewer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewer
}

func (c *wsClient) setViewer(v models.Viewer) {
	c.mu.Lock()
	c.viewer = v
	c.mu.Unlock()
}

// trySend queues data without blocking. It reports false when the queue is
// full or the client is closed.
func (c *wsClient) trySend(data []byte) (sent, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, true
	}
	select {
	case c.send <- data:
		return true, false
	default:
		return false, false
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WSHub manages WebSocket connections and pushes donation changes to every
// connection whose role filter admits them.
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
	source      donationSource
	metrics     *metrics.Metrics
	unsubscribe func()
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(source donationSource, m *metrics.Metrics) *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
		source:      source,
		metrics:     m,
	}
}

// Start subscribes the hub to donation changes.
func (h *WSHub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsubscribe == nil {
		h.unsubscribe = h.source.Subscribe(h.HandleEvent)
	}
}

// Stop unsubscribes from donation changes and closes every connection.
func (h *WSHub) Stop() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	clients := h.connections
	h.connections = make(map[string]*wsClient)
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, c := range clients {
		c.close()
		h.metrics.ConnectionClosed()
	}
}

// Register registers a new WebSocket connection for a user and sends the
// user's current snapshot. An existing connection for the same user is closed.
func (h *WSHub) Register(viewer models.Viewer, conn WSConn) {
	client := &wsClient{
		userID: viewer.ID,
		conn:   conn,
		viewer: viewer,
		send:   make(chan []byte, wsSendBuffer),
	}
	go h.writePump(client)

	h.mu.Lock()
	existing, exists := h.connections[viewer.ID]
	h.connections[viewer.ID] = client
	h.mu.Unlock()

	if exists {
		existing.close()
		h.metrics.ConnectionClosed()
	}
	h.metrics.ConnectionOpened()
	log.Info().Str("user_id", viewer.ID).Str("role", viewer.Role.String()).Msg("WebSocket connection registered")

	h.sendSnapshot(client)
}

// Unregister removes the user's connection if it is still conn.
func (h *WSHub) Unregister(userID string, conn WSConn) {
	h.mu.Lock()
	client, exists := h.connections[userID]
	if !exists || client.conn != conn {
		h.mu.Unlock()
		return
	}
	delete(h.connections, userID)
	h.mu.Unlock()

	client.close()
	h.metrics.ConnectionClosed()
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// UpdateViewer replaces the viewer of a user's connection, e.g. after a
// role change, and resends the snapshot.
func (h *WSHub) UpdateViewer(viewer models.Viewer) {
	h.mu.RLock()
	client, exists := h.connections[viewer.ID]
	h.mu.RUnlock()

	if exists {
		client.setViewer(viewer)
		h.sendSnapshot(client)
	}
}

// Refresh resends the user's snapshot.
func (h *WSHub) Refresh(userID string) {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()
	if exists {
		h.sendSnapshot(client)
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}
	return h.enqueue(client, message)
}

// Disconnect closes the user's connection, if any, and reports whether one
// was open.
func (h *WSHub) Disconnect(userID string) bool {
	h.mu.Lock()
	client, exists := h.connections[userID]
	delete(h.connections, userID)
	h.mu.Unlock()

	if !exists {
		return false
	}
	client.close()
	h.metrics.ConnectionClosed()
	log.Info().Str("user_id", userID).Msg("WebSocket connection closed by server")
	return true
}

// HandleEvent forwards a donation change to the connections that can see it.
func (h *WSHub) HandleEvent(event models.DonationEvent) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.connections))
	for _, c := range h.connections {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	now := time.Now().UnixMilli()
	for _, c := range clients {
		viewer := c.currentViewer()
		msg, ok := messageFor(event, viewer)
		if !ok {
			if event.Op == models.EventResync {
				h.sendSnapshot(c)
			}
			continue
		}
		msg.Timestamp = now
		if err := h.enqueue(c, msg); err != nil {
			log.Warn().Err(err).Str("user_id", viewer.ID).Msg("Failed to push donation change")
		}
	}
}

// messageFor builds the message a viewer receives for event.
func messageFor(event models.DonationEvent, viewer models.Viewer) (WSMessage, bool) {
	switch event.Op {
	case models.EventInsert:
		if VisibleTo(viewer, event.Record) {
			return WSMessage{Type: MsgDonationInserted, Donation: event.Record}, true
		}
	case models.EventUpdate:
		if VisibleTo(viewer, event.Record) {
			return WSMessage{Type: MsgDonationUpdated, Donation: event.Record}, true
		}
		if event.Old != nil && VisibleTo(viewer, event.Old) {
			return WSMessage{Type: MsgDonationRemoved, DonationID: event.ID()}, true
		}
	case models.EventDelete:
		if VisibleTo(viewer, event.Old) {
			return WSMessage{Type: MsgDonationDeleted, DonationID: event.ID()}, true
		}
	case models.EventResync:
	}
	return WSMessage{}, false
}

func (h *WSHub) sendSnapshot(c *wsClient) {
	viewer := c.currentViewer()
	msg := WSMessage{
		Type:      MsgSnapshot,
		Timestamp: time.Now().UnixMilli(),
		Donations: h.source.Visible(viewer),
	}
	if err := h.enqueue(c, msg); err != nil {
		log.Warn().Err(err).Str("user_id", viewer.ID).Msg("Failed to send snapshot")
	}
}

// enqueue queues a message without blocking. A connection whose queue is
// full is dropped.
func (h *WSHub) enqueue(c *wsClient, message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sent, closed := c.trySend(data)
	switch {
	case sent:
		return nil
	case closed:
		return fmt.Errorf("connection closed")
	default:
		h.Unregister(c.userID, c.conn)
		return fmt.Errorf("send buffer full")
	}
}

func (h *WSHub) writePump(c *wsClient) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Str("user_id", c.userID).Msg("WebSocket write failed")
			h.Unregister(c.userID, c.conn)
			for range c.send {
			}
			return
		}
	}
}
