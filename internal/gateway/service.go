package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/auction"
	"github.com/firmsnap/liveshop/internal/channel"
)

// Service is the realtime gateway: it owns the WebSocket pools, the
// JetStream consumer that feeds them, the per-channel catch-up state, and
// the publisher that forwards client bids and chat to the backend.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	stateManager      *ChannelStateManager
	stateHandler      *StateHandler
	publisher         *Publisher
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig

	// IntentSubjectPrefix is where client bid/chat frames are republished.
	IntentSubjectPrefix string
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig:    DefaultConnectionConfig(),
		JetStreamConfig:     DefaultJetStreamConsumerConfig(),
		IntentSubjectPrefix: "shop.intents",
	}
}

// NewService creates a new gateway service.
func NewService(config Config, clock clockwork.Clock) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	wsHandler := NewWebSocketHandler(connectionManager)
	stateManager := NewChannelStateManager(clock)

	eventConsumer, err := NewEventConsumer(connectionManager, stateManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
		stateManager:      stateManager,
		stateHandler:      NewStateHandler(stateManager),
		publisher:         NewPublisher(eventConsumer.Conn(), config.IntentSubjectPrefix),
	}
	connectionManager.SetFrameHandler(s)

	return s, nil
}

// Start begins the gateway service.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service.
func (s *Service) Stop() error {
	if err := s.eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}

	// Connection manager will stop when context is cancelled
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service.
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "liveshop_gateway"
	stats["status"] = "running"
	return stats
}

// HandleFrame routes an inbound client frame. Runs on the connection's
// read goroutine.
func (s *Service) HandleFrame(conn *Connection, msg channel.Message) {
	switch msg.Event {
	case channel.EventJoin:
		s.handleJoin(conn, msg)
	case channel.EventLeave:
		s.connectionManager.Unsubscribe(conn, msg.Topic)
	case string(auction.EventTypeBid):
		s.handleBid(conn, msg)
	case channel.EventNewMessage:
		s.handleChat(conn, msg)
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("event", msg.Event).
			Msg("ignoring unknown client frame")
	}
}

// handleJoin subscribes the connection and replies with the channel's
// catch-up snapshot so a late joiner starts from current state.
func (s *Service) handleJoin(conn *Connection, msg channel.Message) {
	handle, err := HandleFromTopic(msg.Topic)
	if err != nil {
		conn.SendMessage(channel.Message{
			Topic:   msg.Topic,
			Event:   channel.EventJoinError,
			Payload: json.RawMessage(`{"reason":"unsupported topic"}`),
			Ref:     msg.Ref,
		})
		return
	}

	s.connectionManager.Subscribe(conn, msg.Topic)

	snapshot := s.stateManager.Snapshot(handle)
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Str("channel", handle).Msg("failed to marshal catch-up snapshot")
		payload = json.RawMessage(`{}`)
	}

	conn.SendMessage(channel.Message{
		Topic:   msg.Topic,
		Event:   channel.EventJoinOK,
		Payload: payload,
		Ref:     msg.Ref,
	})

	log.Info().
		Str("connection_id", conn.ID).
		Str("channel", handle).
		Str("user_id", conn.UserID).
		Msg("viewer joined channel")
}

// handleBid forwards a bid to the backend. No reply: acceptance shows up
// as a new_bid broadcast, rejection produces nothing.
func (s *Service) handleBid(conn *Connection, msg channel.Message) {
	handle, err := HandleFromTopic(msg.Topic)
	if err != nil {
		log.Warn().Str("topic", msg.Topic).Msg("bid on unsupported topic")
		return
	}
	if conn.UserID == "" {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("channel", handle).
			Msg("dropping bid from anonymous connection")
		return
	}

	if err := s.publisher.Publish(handle, string(auction.EventTypeBid), msg.Payload); err != nil {
		log.Error().Err(err).Str("channel", handle).Msg("failed to publish bid")
	}
}

// handleChat forwards a chat line to the backend, which fans it back out
// through the event stream to every gateway instance.
func (s *Service) handleChat(conn *Connection, msg channel.Message) {
	handle, err := HandleFromTopic(msg.Topic)
	if err != nil {
		log.Warn().Str("topic", msg.Topic).Msg("chat on unsupported topic")
		return
	}

	if err := s.publisher.Publish(handle, channel.EventNewMessage, msg.Payload); err != nil {
		log.Error().Err(err).Str("channel", handle).Msg("failed to publish chat message")
	}
}
