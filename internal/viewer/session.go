package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/auction"
	"github.com/firmsnap/liveshop/internal/channel"
	"github.com/firmsnap/liveshop/internal/money"
)

var (
	// ErrNotAuthenticated means the viewer must go through the login flow
	// before bidding. No frame is sent.
	ErrNotAuthenticated = errors.New("viewer: not authenticated")

	// ErrNoActiveAuction means there is nothing to bid on right now.
	ErrNoActiveAuction = errors.New("viewer: no active auction")

	// ErrBidTooLow means a custom bid did not clear the current floor.
	ErrBidTooLow = errors.New("viewer: bid below current floor")

	// ErrSessionClosed means the session has been torn down.
	ErrSessionClosed = errors.New("viewer: session closed")
)

// Channel is the slice of the realtime channel the session needs. The
// production implementation is *channel.Channel.
type Channel interface {
	On(event string, fn func(payload json.RawMessage))
	Push(ctx context.Context, event string, payload interface{}) error
	Leave() error
}

// Bidder identifies the authenticated viewer. A nil bidder can watch and
// chat-read but never bid.
type Bidder struct {
	UserID   string
	Username string
}

// ChatMessage is a chat line received on the channel.
type ChatMessage struct {
	Body     string
	Username string
}

// Config wires a Session.
type Config struct {
	Clock  clockwork.Clock
	Bidder *Bidder

	// OnUpdate fires after every state change with a copy of the auction
	// state and the derived seconds remaining.
	OnUpdate func(state auction.State, secondsLeft int64)

	// OnChat fires for every chat message on the channel.
	OnChat func(msg ChatMessage)

	// Snapshot is the catch-up payload from the join reply; nil when the
	// channel reported no running auction.
	Snapshot json.RawMessage
}

// Session is one viewer's view of a seller channel: the auction state
// machine, its countdown, and the realtime channel. Channel events, ticks,
// and bid submissions all mutate the same state; the session serializes
// them under one mutex so each applies atomically.
type Session struct {
	ch     Channel
	clock  clockwork.Clock
	bidder *Bidder

	onUpdate func(auction.State, int64)
	onChat   func(ChatMessage)

	mu        sync.Mutex
	machine   *auction.Machine
	countdown *auction.Countdown
	closed    bool
}

// NewSession attaches a session to an already-joined channel and registers
// its event handlers. Call Close on teardown or handlers and timers leak
// across remounts.
func NewSession(ch Channel, cfg Config) (*Session, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Session{
		ch:       ch,
		clock:    clock,
		bidder:   cfg.Bidder,
		onUpdate: cfg.OnUpdate,
		onChat:   cfg.OnChat,
		machine:  auction.NewMachine(clock),
	}

	if len(cfg.Snapshot) > 0 {
		var snap auction.Snapshot
		if err := json.Unmarshal(cfg.Snapshot, &snap); err != nil {
			return nil, fmt.Errorf("parse catch-up snapshot: %w", err)
		}
		s.machine.Restore(snap)
	}

	ch.On(string(auction.EventTypeAuctionStarted), s.auctionEventHandler(auction.EventTypeAuctionStarted))
	ch.On(string(auction.EventTypeNewBid), s.auctionEventHandler(auction.EventTypeNewBid))
	ch.On(string(auction.EventTypeAuctionClosed), s.auctionEventHandler(auction.EventTypeAuctionClosed))
	ch.On(channel.EventNewMessage, s.handleChat)

	s.mu.Lock()
	if st := s.machine.State(); st.Active {
		s.restartCountdownLocked(st)
	}
	s.mu.Unlock()
	s.notify()

	return s, nil
}

// State returns a copy of the current auction state and the derived
// seconds remaining.
func (s *Session) State() (auction.State, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.machine.State()
	return st, st.TimeLeft(s.clock.Now())
}

// NextBidAmount returns what PlaceBid would submit right now, for display
// on the bid button.
func (s *Session) NextBidAmount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State().NextBid()
}

// PlaceBid submits the next legal bid. Fire-and-forget: the only
// confirmation is a later new_bid broadcast, and a server-side rejection
// produces no event at all.
func (s *Session) PlaceBid(ctx context.Context) (int64, error) {
	payload, err := s.buildBid(func(st auction.State) (int64, error) {
		return st.NextBid(), nil
	})
	if err != nil {
		return 0, err
	}
	return payload.Amount.Amount, s.push(ctx, payload)
}

// PlaceCustomBid submits an arbitrary amount after checking it clears the
// current floor. The check is a UX guard only; the server may still reject.
func (s *Session) PlaceCustomBid(ctx context.Context, amount int64) error {
	payload, err := s.buildBid(func(st auction.State) (int64, error) {
		if amount <= auction.CustomBidFloor(st.HighestBid, &st.StartingBid) {
			return 0, ErrBidTooLow
		}
		return amount, nil
	})
	if err != nil {
		return err
	}
	return s.push(ctx, payload)
}

// SendChat pushes a chat line on the channel.
func (s *Session) SendChat(ctx context.Context, body string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	var username string
	if s.bidder != nil {
		username = s.bidder.Username
	}
	return s.ch.Push(ctx, channel.EventNewMessage, channel.ChatPayload{
		Body:     body,
		Username: username,
	})
}

// Close leaves the channel and stops the countdown. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	s.mu.Unlock()

	return s.ch.Leave()
}

// buildBid validates preconditions under the lock and assembles the
// outgoing payload. The push happens outside the lock.
func (s *Session) buildBid(amountFor func(auction.State) (int64, error)) (auction.BidPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return auction.BidPayload{}, ErrSessionClosed
	}
	if s.bidder == nil {
		return auction.BidPayload{}, ErrNotAuthenticated
	}
	st := s.machine.State()
	if !st.Active {
		return auction.BidPayload{}, ErrNoActiveAuction
	}
	amount, err := amountFor(st)
	if err != nil {
		return auction.BidPayload{}, err
	}

	currency := st.StartingBid.Currency
	return auction.BidPayload{
		Amount:         money.New(amount, currency),
		AuctionID:      st.AuctionID,
		BidderUserID:   s.bidder.UserID,
		BidderUsername: s.bidder.Username,
	}, nil
}

func (s *Session) push(ctx context.Context, payload auction.BidPayload) error {
	if err := s.ch.Push(ctx, string(auction.EventTypeBid), payload); err != nil {
		return fmt.Errorf("push bid: %w", err)
	}
	log.Info().
		Str("auction_id", payload.AuctionID).
		Str("amount", payload.Amount.String()).
		Msg("bid submitted")
	return nil
}

func (s *Session) auctionEventHandler(typ auction.EventType) func(json.RawMessage) {
	return func(payload json.RawMessage) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if err := s.machine.Apply(auction.Event{Type: typ, Payload: payload}); err != nil {
			s.mu.Unlock()
			log.Error().Err(err).Str("event", string(typ)).Msg("failed to apply auction event")
			return
		}

		st := s.machine.State()
		switch typ {
		case auction.EventTypeAuctionStarted:
			s.restartCountdownLocked(st)
		case auction.EventTypeAuctionClosed:
			if s.countdown != nil && st.ServerClosed {
				s.countdown.Stop()
				s.countdown = nil
			}
		}
		s.mu.Unlock()

		s.notify()
	}
}

// restartCountdownLocked replaces the running countdown with one for the
// current auction's deadline. Caller holds s.mu.
func (s *Session) restartCountdownLocked(st auction.State) {
	if s.countdown != nil {
		s.countdown.Stop()
	}
	cd := auction.NewCountdown(s.clock)
	s.countdown = cd

	go cd.Run(context.Background(), st.EndsAt, func(left int64) {
		if left > 0 {
			s.notify()
			return
		}
		s.mu.Lock()
		expired := s.machine.ExpireLocally()
		s.mu.Unlock()
		if expired {
			s.notify()
		}
	})
}

func (s *Session) handleChat(payload json.RawMessage) {
	if s.onChat == nil {
		return
	}
	var msg channel.ChatPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn().Err(err).Msg("discarding malformed chat message")
		return
	}
	s.onChat(ChatMessage{Body: msg.Body, Username: msg.Username})
}

func (s *Session) notify() {
	if s.onUpdate == nil {
		return
	}
	st, left := s.State()
	s.onUpdate(st, left)
}
