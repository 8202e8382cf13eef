package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/channel"
)

// FrameHandler processes frames received from viewer connections
// (join/leave/bid/new_msg).
type FrameHandler interface {
	HandleFrame(conn *Connection, msg channel.Message)
}

// ConnectionManager manages viewer WebSocket connections and their topic
// subscriptions.
type ConnectionManager struct {
	// Connection pools organized by topic, e.g. "auctioneer:<handle>"
	topicConnections map[string]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	frameHandler FrameHandler

	// Event broadcasting
	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a viewer.
type Connection struct {
	ID       string
	UserID   string
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time

	topicsMu     sync.Mutex
	topics       map[string]bool
	unregistered bool
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to a topic's
// connections.
type BroadcastMessage struct {
	Topic   string
	Message channel.Message
	UserID  string // Optional: if set, only send to this user
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		topicConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000), // Buffer for bid bursts
	}
}

// SetFrameHandler wires the handler for inbound client frames. Must be
// called before any connection is accepted.
func (cm *ConnectionManager) SetFrameHandler(h FrameHandler) {
	cm.frameHandler = h
}

// Start begins processing broadcast messages.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket. The viewer
// subscribes to channels afterwards with join frames.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, username string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Username:    username,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
		topics:      make(map[string]bool),
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Msg("WebSocket connection established")

	return nil
}

// Subscribe adds a connection to a topic pool.
func (cm *ConnectionManager) Subscribe(conn *Connection, topic string) {
	conn.topicsMu.Lock()
	if conn.unregistered {
		conn.topicsMu.Unlock()
		return
	}
	conn.topics[topic] = true
	conn.topicsMu.Unlock()

	cm.mu.Lock()
	if cm.topicConnections[topic] == nil {
		cm.topicConnections[topic] = make(map[*Connection]bool)
	}
	cm.topicConnections[topic][conn] = true
	total := len(cm.topicConnections[topic])
	cm.mu.Unlock()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("topic", topic).
		Int("total_connections", total).
		Msg("connection subscribed")
}

// Unsubscribe removes a connection from a topic pool.
func (cm *ConnectionManager) Unsubscribe(conn *Connection, topic string) {
	cm.mu.Lock()
	if connections, exists := cm.topicConnections[topic]; exists {
		delete(connections, conn)
		if len(connections) == 0 {
			delete(cm.topicConnections, topic)
		}
	}
	cm.mu.Unlock()

	conn.topicsMu.Lock()
	delete(conn.topics, topic)
	conn.topicsMu.Unlock()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("topic", topic).
		Msg("connection unsubscribed")
}

// unregisterConnection removes a connection from every topic pool and
// closes its send channel. Both pumps call this on exit; only the first
// call does the work. The close happens under topicsMu, the same lock
// trySend holds, so a queued send can never hit a closed channel.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	conn.topicsMu.Lock()
	if conn.unregistered {
		conn.topicsMu.Unlock()
		return
	}
	conn.unregistered = true
	topics := make([]string, 0, len(conn.topics))
	for topic := range conn.topics {
		topics = append(topics, topic)
	}
	conn.topics = make(map[string]bool)
	close(conn.Send)
	conn.topicsMu.Unlock()

	cm.mu.Lock()
	for _, topic := range topics {
		if connections, exists := cm.topicConnections[topic]; exists {
			delete(connections, conn)
			if len(connections) == 0 {
				delete(cm.topicConnections, topic)
			}
		}
	}
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Msg("connection unregistered")
}

// Broadcast sends a message to all connections subscribed to a topic.
func (cm *ConnectionManager) Broadcast(topic string, msg channel.Message) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Topic: topic, Message: msg}:
	default:
		log.Warn().Str("topic", topic).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToUser sends a message to a specific user on a topic.
func (cm *ConnectionManager) BroadcastToUser(topic, userID string, msg channel.Message) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Topic: topic, Message: msg, UserID: userID}:
	default:
		log.Warn().
			Str("topic", topic).
			Str("user_id", userID).
			Msg("broadcast channel full, dropping user message")
	}
}

// handleBroadcast processes a broadcast message.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.topicConnections[message.Topic]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot the pool so the lock is not held during sends
	var targets []*Connection
	for conn := range connections {
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	for _, conn := range targets {
		if conn.trySend(data) {
			continue
		}
		// Connection is slow/dead, close it
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		if conn.Conn != nil {
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event", message.Message.Event).
		Str("topic", message.Topic).
		Int("connections", len(targets)).
		Msg("message broadcasted")
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	totalConnections := 0
	topicCounts := make(map[string]int)

	for topic, connections := range cm.topicConnections {
		count := len(connections)
		totalConnections += count
		topicCounts[topic] = count
	}

	return map[string]interface{}{
		"total_connections": totalConnections,
		"active_topics":     len(cm.topicConnections),
		"topic_connections": topicCounts,
	}
}

// SendMessage queues a frame for one connection, e.g. a join reply.
func (c *Connection) SendMessage(msg channel.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal frame")
		return
	}
	if !c.trySend(data) {
		log.Warn().Str("connection_id", c.ID).Msg("dropping frame, connection gone or buffer full")
	}
}

// trySend queues raw bytes without blocking. Returns false when the
// connection is already unregistered or its buffer is full.
func (c *Connection) trySend(data []byte) bool {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	if c.unregistered {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		var msg channel.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().
				Err(err).
				Str("connection_id", c.ID).
				Msg("discarding malformed client frame")
			c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
			continue
		}

		if c.Manager.frameHandler != nil {
			c.Manager.frameHandler.HandleFrame(c, msg)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
