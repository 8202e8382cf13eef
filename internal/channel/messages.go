package channel

import "encoding/json"

// Message is the wire envelope shared by the channel client and the
// realtime gateway. Every frame carries the topic it belongs to; replies
// to client frames echo the client's ref.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ref     string          `json:"ref,omitempty"`
}

// Control events understood by the gateway.
const (
	EventJoin      = "join"
	EventJoinOK    = "join_ok"
	EventJoinError = "join_error"
	EventLeave     = "leave"

	// EventNewMessage carries a chat message in both directions.
	EventNewMessage = "new_msg"
)

// JoinParams accompany a join frame.
type JoinParams struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ChatPayload is the body of a new_msg frame.
type ChatPayload struct {
	Body     string `json:"body"`
	Username string `json:"username,omitempty"`
}
