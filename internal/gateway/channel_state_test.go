package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/check"

	"github.com/firmsnap/liveshop/internal/auction"
	"github.com/firmsnap/liveshop/internal/money"
)

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func startedEvent(t *testing.T, auctionID string, durationMS int64) auction.Event {
	t.Helper()
	return auction.Event{
		Type: auction.EventTypeAuctionStarted,
		Payload: mustMarshal(t, auction.AuctionStartedPayload{
			AuctionID:   auctionID,
			ListingID:   "listing-1",
			Title:       "Vintage Designer Handbag",
			StartingBid: money.New(500, "EUR"),
			DurationMS:  durationMS,
		}),
	}
}

func TestTopicHelpers(t *testing.T) {
	check.Equal(t, "auctioneer:handbag-hannah", TopicForHandle("handbag-hannah"))

	handle, err := HandleFromTopic("auctioneer:handbag-hannah")
	check.Nil(t, err)
	check.Equal(t, "handbag-hannah", handle)

	_, err = HandleFromTopic("lobby:general")
	check.Error(t, err)
	_, err = HandleFromTopic("auctioneer:")
	check.Error(t, err)
}

func TestChannelStateManager_SnapshotFollowsEvents(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sm := NewChannelStateManager(clock)

	// Unknown channels report an inactive zero snapshot.
	snap := sm.Snapshot("handbag-hannah")
	check.False(t, snap.Active)
	check.Equal(t, "", snap.AuctionID)

	check.Nil(t, sm.ProcessEvent("handbag-hannah", startedEvent(t, "auction-a", 165000)))
	check.Nil(t, sm.ProcessEvent("handbag-hannah", auction.Event{
		Type: auction.EventTypeNewBid,
		Payload: mustMarshal(t, auction.NewBidPayload{
			AuctionID: "auction-a",
			Amount:    money.New(600, "EUR"),
			Bidder:    "alice",
			BidID:     "bid-1",
		}),
	}))

	snap = sm.Snapshot("handbag-hannah")
	check.True(t, snap.Active)
	check.Equal(t, "auction-a", snap.AuctionID)
	check.Equal(t, 1, snap.BidCount)
	check.Equal(t, int64(600), snap.HighestBid.Amount)
	check.Equal(t, clock.Now().Add(165*time.Second), snap.EndsAt)
}

func TestChannelStateManager_ChannelsAreIndependent(t *testing.T) {
	sm := NewChannelStateManager(clockwork.NewFakeClock())

	check.Nil(t, sm.ProcessEvent("hannah", startedEvent(t, "auction-a", 165000)))
	check.Nil(t, sm.ProcessEvent("marta", startedEvent(t, "auction-b", 60000)))

	check.Equal(t, "auction-a", sm.Snapshot("hannah").AuctionID)
	check.Equal(t, "auction-b", sm.Snapshot("marta").AuctionID)
}

func TestChannelStateManager_ExpiredAuctionNotServedAsActive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sm := NewChannelStateManager(clock)

	check.Nil(t, sm.ProcessEvent("hannah", startedEvent(t, "auction-a", 165000)))
	clock.Advance(166 * time.Second)

	// No auction_closed has arrived, but a joiner must not see the
	// auction as still running.
	snap := sm.Snapshot("hannah")
	check.False(t, snap.Active)
	check.Equal(t, "auction-a", snap.AuctionID)
}

func TestChannelStateManager_ActiveChannels(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sm := NewChannelStateManager(clock)

	check.Nil(t, sm.ProcessEvent("hannah", startedEvent(t, "auction-a", 165000)))
	check.Nil(t, sm.ProcessEvent("marta", startedEvent(t, "auction-b", 60000)))

	check.Equal(t, 2, len(sm.ActiveChannels()))

	clock.Advance(61 * time.Second)
	active := sm.ActiveChannels()
	check.Equal(t, 1, len(active))
	check.Equal(t, "hannah", active[0])
}

func TestChannelStateManager_CloseEventDeactivates(t *testing.T) {
	sm := NewChannelStateManager(clockwork.NewFakeClock())

	check.Nil(t, sm.ProcessEvent("hannah", startedEvent(t, "auction-a", 165000)))
	check.Nil(t, sm.ProcessEvent("hannah", auction.Event{
		Type: auction.EventTypeAuctionClosed,
		Payload: mustMarshal(t, auction.AuctionClosedPayload{
			AuctionID: "auction-a",
			Winner:    "alice",
		}),
	}))

	snap := sm.Snapshot("hannah")
	check.False(t, snap.Active)
	check.Equal(t, 0, len(sm.ActiveChannels()))
}
