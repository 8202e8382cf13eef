package auction

import (
	"encoding/json"
	"time"

	"github.com/firmsnap/liveshop/internal/money"
)

// Event is the envelope for all auction events flowing over a channel.
type Event struct {
	Type    EventType       `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EventType identifies an auction event on the wire.
type EventType string

const (
	EventTypeAuctionStarted EventType = "auction_started"
	EventTypeNewBid         EventType = "new_bid"
	EventTypeAuctionClosed  EventType = "auction_closed"

	// EventTypeBid is the outgoing bid intent pushed by viewers.
	EventTypeBid EventType = "bid"
)

// AuctionStartedPayload announces a new auction on a seller channel.
// It replaces any prior auction state wholesale.
type AuctionStartedPayload struct {
	AuctionID             string      `json:"auction_id"`
	ListingID             string      `json:"listing_id"`
	Title                 string      `json:"title"`
	Description           string      `json:"description"`
	StartingBid           money.Money `json:"starting_bid"`
	DurationMS            int64       `json:"duration_ms"`
	ShippingDomesticPrice money.Money `json:"shipping_domestic_price"`
	ShippingEUPrice       money.Money `json:"shipping_eu_price"`
}

// NewBidPayload is broadcast for every bid the server accepted.
// BidID is the server-assigned identifier used to discard retransmits.
type NewBidPayload struct {
	AuctionID string      `json:"auction_id"`
	Amount    money.Money `json:"amount"`
	Bidder    string      `json:"bidder"`
	BidID     string      `json:"bid_id,omitempty"`
}

// AuctionClosedPayload ends an auction. The server event is authoritative
// and may arrive after the local countdown has already hit zero.
type AuctionClosedPayload struct {
	AuctionID   string       `json:"auction_id"`
	Winner      string       `json:"winner"`
	FinalAmount *money.Money `json:"final_amount,omitempty"`
}

// BidPayload is the outgoing bid intent. The only confirmation a bidder
// ever gets is a later new_bid broadcast; rejections are silent.
type BidPayload struct {
	Amount         money.Money `json:"amount"`
	AuctionID      string      `json:"auction_id"`
	BidderUserID   string      `json:"bidder_user_id"`
	BidderUsername string      `json:"bidder_username"`
}

// Snapshot is the catch-up form of a channel's auction state, returned in
// join replies so a reconnecting viewer does not depend on having seen the
// auction_started event.
type Snapshot struct {
	AuctionID   string       `json:"auction_id"`
	ListingID   string       `json:"listing_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	StartingBid money.Money  `json:"starting_bid"`
	HighestBid  *money.Money `json:"highest_bid,omitempty"`
	BidCount    int          `json:"bid_count"`
	EndsAt      time.Time    `json:"ends_at"`
	Active      bool         `json:"active"`
	LastBidID   string       `json:"last_bid_id,omitempty"`
}

// ParseEventPayload parses an event's data into the matching payload struct.
func ParseEventPayload(e Event) (interface{}, error) {
	switch e.Type {
	case EventTypeAuctionStarted:
		var payload AuctionStartedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeNewBid:
		var payload NewBidPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionClosed:
		var payload AuctionClosedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBid:
		var payload BidPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
