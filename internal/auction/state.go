package auction

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/money"
)

// State is the client-local, ephemeral view of the currently active auction.
// It is rebuilt entirely from server events; the server remains authoritative.
type State struct {
	AuctionID   string
	ListingID   string
	Title       string
	Description string

	StartingBid money.Money
	HighestBid  *money.Money
	BidCount    int

	ShippingDomesticPrice money.Money
	ShippingEUPrice       money.Money

	EndsAt time.Time

	// Active is true between auction_started and close/expiry. Local timer
	// expiry clears it as a UI cue; ServerClosed records the authoritative
	// auction_closed separately.
	Active       bool
	ServerClosed bool

	lastBidID string
}

// TimeLeft derives the remaining whole seconds from the absolute deadline.
// Recomputing from EndsAt each call keeps the countdown drift-free across
// delayed or coalesced ticks.
func (s State) TimeLeft(now time.Time) int64 {
	if s.EndsAt.IsZero() {
		return 0
	}
	remaining := s.EndsAt.Sub(now) / time.Second
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

// NextBid returns the next legal bid amount for the current state.
func (s State) NextBid() int64 {
	return NextBid(s.HighestBid, &s.StartingBid)
}

// Machine applies server-pushed auction events to a State. It is not safe
// for concurrent use; callers serialize access (viewer.Session holds a
// mutex so channel events, ticks, and bid submissions apply atomically).
type Machine struct {
	clock clockwork.Clock
	state State
}

// NewMachine returns a machine with no active auction.
func NewMachine(clock clockwork.Clock) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Machine{clock: clock}
}

// State returns a copy of the current auction state.
func (m *Machine) State() State {
	return m.state
}

// Apply routes a server event to the matching transition. Events for a
// different auction than the current one are discarded as stale.
func (m *Machine) Apply(e Event) error {
	payload, err := ParseEventPayload(e)
	if err != nil {
		return fmt.Errorf("parse %s payload: %w", e.Type, err)
	}

	switch p := payload.(type) {
	case AuctionStartedPayload:
		m.applyStarted(p)
	case NewBidPayload:
		m.applyNewBid(p)
	case AuctionClosedPayload:
		m.applyClosed(p)
	default:
		log.Debug().Str("event", string(e.Type)).Msg("ignoring unknown auction event")
	}
	return nil
}

// applyStarted adopts the new auction wholesale. A fresh auction_started
// always wins, regardless of the prior state.
func (m *Machine) applyStarted(p AuctionStartedPayload) {
	m.state = State{
		AuctionID:             p.AuctionID,
		ListingID:             p.ListingID,
		Title:                 p.Title,
		Description:           p.Description,
		StartingBid:           p.StartingBid,
		ShippingDomesticPrice: p.ShippingDomesticPrice,
		ShippingEUPrice:       p.ShippingEUPrice,
		EndsAt:                m.clock.Now().Add(time.Duration(p.DurationMS) * time.Millisecond),
		Active:                true,
	}

	log.Info().
		Str("auction_id", p.AuctionID).
		Str("listing_id", p.ListingID).
		Str("starting_bid", p.StartingBid.String()).
		Int64("duration_ms", p.DurationMS).
		Msg("auction started")
}

// applyNewBid records an accepted bid. Mismatched auction ids protect
// against cross-talk from a prior auction's late events; a repeated bid id
// is a retransmit and applies once.
func (m *Machine) applyNewBid(p NewBidPayload) bool {
	if p.AuctionID == "" || p.AuctionID != m.state.AuctionID {
		log.Debug().
			Str("auction_id", p.AuctionID).
			Str("current_auction_id", m.state.AuctionID).
			Msg("discarding stale new_bid")
		return false
	}
	if p.BidID != "" && p.BidID == m.state.lastBidID {
		log.Debug().Str("bid_id", p.BidID).Msg("discarding duplicate new_bid")
		return false
	}

	amount := p.Amount
	m.state.HighestBid = &amount
	m.state.BidCount++
	m.state.lastBidID = p.BidID
	return true
}

// applyClosed ends the auction on the server's authority. The state is kept
// so the UI can still show the final amounts.
func (m *Machine) applyClosed(p AuctionClosedPayload) bool {
	if p.AuctionID == "" || p.AuctionID != m.state.AuctionID {
		log.Debug().
			Str("auction_id", p.AuctionID).
			Str("current_auction_id", m.state.AuctionID).
			Msg("discarding stale auction_closed")
		return false
	}

	m.state.Active = false
	m.state.ServerClosed = true
	if p.FinalAmount != nil {
		m.state.HighestBid = p.FinalAmount
	}

	log.Info().
		Str("auction_id", p.AuctionID).
		Str("winner", p.Winner).
		Msg("auction closed")
	return true
}

// ExpireLocally flips the auction inactive once the countdown hits zero.
// This is advisory only: the auction id and bids are retained, a later
// authoritative auction_closed is still accepted, and a fresh
// auction_started replaces everything.
func (m *Machine) ExpireLocally() bool {
	if !m.state.Active {
		return false
	}
	if m.state.TimeLeft(m.clock.Now()) > 0 {
		return false
	}
	m.state.Active = false
	log.Debug().Str("auction_id", m.state.AuctionID).Msg("auction expired locally")
	return true
}

// Restore seeds the machine from a catch-up snapshot delivered in a join
// reply. An empty auction id means the channel has no auction running.
func (m *Machine) Restore(snap Snapshot) {
	if snap.AuctionID == "" {
		m.state = State{}
		return
	}
	m.state = State{
		AuctionID:   snap.AuctionID,
		ListingID:   snap.ListingID,
		Title:       snap.Title,
		Description: snap.Description,
		StartingBid: snap.StartingBid,
		HighestBid:  snap.HighestBid,
		BidCount:    snap.BidCount,
		EndsAt:      snap.EndsAt,
		Active:      snap.Active && snap.EndsAt.After(m.clock.Now()),
		lastBidID:   snap.LastBidID,
	}
}

// Snapshot captures the machine's state in catch-up form.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		AuctionID:   m.state.AuctionID,
		ListingID:   m.state.ListingID,
		Title:       m.state.Title,
		Description: m.state.Description,
		StartingBid: m.state.StartingBid,
		HighestBid:  m.state.HighestBid,
		BidCount:    m.state.BidCount,
		EndsAt:      m.state.EndsAt,
		Active:      m.state.Active,
		LastBidID:   m.state.lastBidID,
	}
}
