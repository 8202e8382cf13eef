package channel

import (
	"encoding/json"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestChannel_DeliverFansOutToHandlers(t *testing.T) {
	ch := &Channel{
		topic:    "auctioneer:handbag-hannah",
		handlers: make(map[string][]func(json.RawMessage)),
	}

	var got []string
	ch.On("new_bid", func(payload json.RawMessage) { got = append(got, "first:"+string(payload)) })
	ch.On("new_bid", func(payload json.RawMessage) { got = append(got, "second:"+string(payload)) })
	ch.On("auction_closed", func(json.RawMessage) { got = append(got, "closed") })

	ch.deliver(Message{Topic: ch.topic, Event: "new_bid", Payload: json.RawMessage(`{"amount":600}`)})

	check.Equal(t, []string{`first:{"amount":600}`, `second:{"amount":600}`}, got)
}

func TestChannel_DeliverWithoutHandlersIsNoOp(t *testing.T) {
	ch := &Channel{
		topic:    "auctioneer:handbag-hannah",
		handlers: make(map[string][]func(json.RawMessage)),
	}
	ch.deliver(Message{Topic: ch.topic, Event: "new_msg", Payload: json.RawMessage(`{}`)})
}
