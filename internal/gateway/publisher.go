package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher republishes inbound client frames (bids, chat) to NATS for
// the commerce backend. Bids are never broadcast directly; the backend
// validates them and emits the resulting new_bid through the event stream.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewPublisher creates a publisher on an existing NATS connection.
func NewPublisher(nc *nats.Conn, subjectPrefix string) *Publisher {
	if subjectPrefix == "" {
		subjectPrefix = "shop.intents"
	}
	return &Publisher{nc: nc, subjectPrefix: subjectPrefix}
}

// Publish wraps a client frame in the event envelope and publishes it on
// <prefix>.<eventType>.<handle>.
func (p *Publisher) Publish(handle, eventType string, payload json.RawMessage) error {
	envelope := EventEnvelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Channel:   handle,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, eventType, handle)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("subject", subject).
		Str("channel", handle).
		Msg("client frame published")
	return nil
}
