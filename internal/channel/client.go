package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned for operations on a closed client or channel.
var ErrClosed = errors.New("channel: connection closed")

const (
	writeTimeout = 10 * time.Second
	joinTimeout  = 10 * time.Second
)

// Client is a realtime pub/sub client. One logical socket carries any
// number of topic subscriptions; each mounted view holds its own Client
// and recreates it on remount.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	channels map[string]*Channel
	pending  map[string]chan Message // join replies keyed by ref
	closed   bool
}

// Dial connects to the realtime gateway at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		channels: make(map[string]*Channel),
		pending:  make(map[string]chan Message),
	}
	go c.readLoop()

	log.Info().Str("url", url).Msg("realtime socket connected")
	return c, nil
}

// Join subscribes to a topic, e.g. "auctioneer:handbag-hannah". The reply
// payload carries the channel's catch-up state so a late joiner does not
// depend on having seen earlier events.
func (c *Client) Join(ctx context.Context, topic string, params JoinParams) (*Channel, json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, ErrClosed
	}
	if _, exists := c.channels[topic]; exists {
		c.mu.Unlock()
		return nil, nil, fmt.Errorf("already joined topic %s", topic)
	}

	ref := uuid.New().String()
	replyCh := make(chan Message, 1)
	c.pending[ref] = replyCh
	c.mu.Unlock()

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal join params: %w", err)
	}
	if err := c.send(Message{Topic: topic, Event: EventJoin, Payload: payload, Ref: ref}); err != nil {
		c.dropPending(ref)
		return nil, nil, err
	}

	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	select {
	case <-joinCtx.Done():
		c.dropPending(ref)
		return nil, nil, fmt.Errorf("join %s: %w", topic, joinCtx.Err())
	case reply, ok := <-replyCh:
		if !ok {
			return nil, nil, ErrClosed
		}
		if reply.Event != EventJoinOK {
			return nil, nil, fmt.Errorf("join %s rejected: %s", topic, string(reply.Payload))
		}

		ch := &Channel{
			client:   c,
			topic:    topic,
			handlers: make(map[string][]func(json.RawMessage)),
		}
		c.mu.Lock()
		c.channels[topic] = ch
		c.mu.Unlock()

		log.Info().Str("topic", topic).Msg("joined channel")
		return ch, reply.Payload, nil
	}
}

// Close tears down the socket and every joined channel. Subscriptions are
// not resumable; callers reconnect with a fresh Client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for ref, ch := range c.pending {
		close(ch)
		delete(c.pending, ref)
	}
	c.mu.Unlock()

	return c.conn.Close()
}

func (c *Client) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s frame: %w", msg.Event, err)
	}
	return nil
}

func (c *Client) dropPending(ref string) {
	c.mu.Lock()
	delete(c.pending, ref)
	c.mu.Unlock()
}

// readLoop dispatches incoming frames to join waiters and channel
// handlers. A read error freezes all channel state at last-known values;
// there is no automatic rejoin.
func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			alreadyClosed := c.closed
			c.closed = true
			for ref, ch := range c.pending {
				close(ch)
				delete(c.pending, ref)
			}
			c.mu.Unlock()

			if !alreadyClosed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Msg("realtime socket read failed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("discarding malformed frame")
			continue
		}

		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	c.mu.Lock()
	if msg.Ref != "" {
		if replyCh, ok := c.pending[msg.Ref]; ok {
			delete(c.pending, msg.Ref)
			c.mu.Unlock()
			replyCh <- msg
			return
		}
	}
	ch := c.channels[msg.Topic]
	c.mu.Unlock()

	if ch == nil {
		log.Debug().Str("topic", msg.Topic).Str("event", msg.Event).Msg("frame for unknown topic")
		return
	}
	ch.deliver(msg)
}

func (c *Client) removeChannel(topic string) {
	c.mu.Lock()
	delete(c.channels, topic)
	c.mu.Unlock()
}

// Channel is a single topic subscription.
type Channel struct {
	client *Client
	topic  string

	mu       sync.Mutex
	handlers map[string][]func(json.RawMessage)
	left     bool
}

// Topic returns the channel's topic name.
func (ch *Channel) Topic() string {
	return ch.topic
}

// On registers a handler for an event name. Handlers run on the socket
// read goroutine and must not block.
func (ch *Channel) On(event string, fn func(payload json.RawMessage)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.handlers[event] = append(ch.handlers[event], fn)
}

// Push sends an event on this topic. Fire-and-forget: the server never
// replies to pushes, it only broadcasts the results it accepts.
func (ch *Channel) Push(ctx context.Context, event string, payload interface{}) error {
	ch.mu.Lock()
	left := ch.left
	ch.mu.Unlock()
	if left {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return ch.client.send(Message{Topic: ch.topic, Event: event, Payload: data})
}

// Leave unsubscribes from the topic and drops all handlers. Required on
// teardown so remounts do not stack duplicate handlers.
func (ch *Channel) Leave() error {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return nil
	}
	ch.left = true
	ch.handlers = make(map[string][]func(json.RawMessage))
	ch.mu.Unlock()

	ch.client.removeChannel(ch.topic)
	err := ch.client.send(Message{Topic: ch.topic, Event: EventLeave})
	if err != nil && !errors.Is(err, ErrClosed) {
		log.Warn().Err(err).Str("topic", ch.topic).Msg("leave frame not delivered")
	}

	log.Info().Str("topic", ch.topic).Msg("left channel")
	return nil
}

func (ch *Channel) deliver(msg Message) {
	ch.mu.Lock()
	fns := append([]func(json.RawMessage){}, ch.handlers[msg.Event]...)
	ch.mu.Unlock()

	for _, fn := range fns {
		fn(msg.Payload)
	}
}
