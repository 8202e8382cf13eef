package gateway

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/auction"
)

// TopicPrefix namespaces seller channels on the wire, so the topic for
// seller "handbag-hannah" is "auctioneer:handbag-hannah".
const TopicPrefix = "auctioneer:"

// TopicForHandle builds the wire topic for a seller handle.
func TopicForHandle(handle string) string {
	return TopicPrefix + handle
}

// HandleFromTopic extracts the seller handle from a wire topic. Returns
// an error for topics outside the auctioneer namespace.
func HandleFromTopic(topic string) (string, error) {
	if len(topic) <= len(TopicPrefix) || topic[:len(TopicPrefix)] != TopicPrefix {
		return "", fmt.Errorf("unsupported topic %q", topic)
	}
	return topic[len(TopicPrefix):], nil
}

// ChannelStateManager folds the auction event flow into per-seller state
// machines so late joiners get a catch-up snapshot instead of depending on
// having seen every broadcast.
type ChannelStateManager struct {
	clock clockwork.Clock

	mu       sync.RWMutex
	machines map[string]*auction.Machine
}

// NewChannelStateManager creates a state manager. A nil clock uses the
// real clock.
func NewChannelStateManager(clock clockwork.Clock) *ChannelStateManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ChannelStateManager{
		clock:    clock,
		machines: make(map[string]*auction.Machine),
	}
}

// ProcessEvent applies an auction event to the seller's state machine,
// creating the machine on first sight of the channel.
func (m *ChannelStateManager) ProcessEvent(handle string, event auction.Event) error {
	m.mu.Lock()
	machine, exists := m.machines[handle]
	if !exists {
		machine = auction.NewMachine(m.clock)
		m.machines[handle] = machine
	}
	err := machine.Apply(event)
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("apply %s for channel %s: %w", event.Type, handle, err)
	}

	log.Debug().
		Str("channel", handle).
		Str("event", string(event.Type)).
		Msg("channel state updated")
	return nil
}

// Snapshot returns the catch-up payload for a seller channel. Channels
// that never saw an auction return an inactive zero snapshot.
func (m *ChannelStateManager) Snapshot(handle string) auction.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	machine, exists := m.machines[handle]
	if !exists {
		return auction.Snapshot{}
	}

	// The deadline may have passed without an auction_closed arriving yet;
	// never hand a joiner an expired auction as active.
	machine.ExpireLocally()
	return machine.Snapshot()
}

// ActiveChannels lists handles with a currently running auction.
func (m *ChannelStateManager) ActiveChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var handles []string
	now := m.clock.Now()
	for handle, machine := range m.machines {
		st := machine.State()
		if st.Active && st.TimeLeft(now) > 0 {
			handles = append(handles, handle)
		}
	}
	return handles
}
