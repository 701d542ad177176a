package room

import (
	"log"
	"sync"

	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

// Receiver is what a Session's room-listener goroutine drains. A closed
// channel means the room was torn down; Lagged is set on events the
// subscriber dropped past the buffer capacity (spec §4.4 lag-drop).
type Receiver struct {
	C      <-chan wire.ServerEvent
	Lagged <-chan struct{}
}

type roomChannel struct {
	mu          sync.Mutex
	subscribers map[int]chan wire.ServerEvent
	laggedChans map[int]chan struct{}
	nextID      int
}

func newRoomChannel() *roomChannel {
	return &roomChannel{
		subscribers: make(map[int]chan wire.ServerEvent),
		laggedChans: make(map[int]chan struct{}),
	}
}

// Broker owns one bounded fan-out channel per room plus the
// user->current-room index, grounded on
// original_source/.../room/broadcast.rs's RoomBroadcastManager.
type Broker struct {
	capacity int

	mu       sync.Mutex
	channels map[types.RoomId]*roomChannel
	current  map[types.UserId]types.RoomId
}

// NewBroker builds a Broker whose per-room channels buffer up to capacity
// events before dropping the oldest (spec §4.4: default 1000).
func NewBroker(capacity int) *Broker {
	return &Broker{
		capacity: capacity,
		channels: make(map[types.RoomId]*roomChannel),
		current:  make(map[types.UserId]types.RoomId),
	}
}

func (b *Broker) channelFor(roomID types.RoomId) *roomChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[roomID]
	if !ok {
		ch = newRoomChannel()
		b.channels[roomID] = ch
	}
	return ch
}

// Subscribe returns a fresh Receiver for room. Idempotent: many receivers
// may coexist for the same room.
func (b *Broker) Subscribe(roomID types.RoomId) (Receiver, func()) {
	ch := b.channelFor(roomID)
	ch.mu.Lock()
	defer ch.mu.Unlock()

	id := ch.nextID
	ch.nextID++
	events := make(chan wire.ServerEvent, b.capacity)
	lagged := make(chan struct{}, 1)
	ch.subscribers[id] = events
	ch.laggedChans[id] = lagged

	cancel := func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		if c, ok := ch.subscribers[id]; ok {
			close(c)
			delete(ch.subscribers, id)
			delete(ch.laggedChans, id)
		}
	}
	return Receiver{C: events, Lagged: lagged}, cancel
}

// Publish delivers event to every live subscriber of room, returning the
// subscriber count at publish time. A subscriber whose buffer is full has
// its oldest pending event dropped in favor of the new one and is signaled
// on its Lagged channel (spec §4.4 lag-drop).
func (b *Broker) Publish(roomID types.RoomId, event wire.ServerEvent) int {
	ch := b.channelFor(roomID)
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for id, sub := range ch.subscribers {
		select {
		case sub <- event:
		default:
			// Buffer full: drop the oldest queued event, then retry once.
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- event:
			default:
			}
			select {
			case ch.laggedChans[id] <- struct{}{}:
			default:
			}
			log.Printf("room %s: subscriber %d lagged, dropped oldest event", roomID, id)
		}
	}
	return len(ch.subscribers)
}

// Enter atomically subscribes user to room (creating the channel if
// missing) and records it as their current room, returning the new
// Receiver and its cancel func (spec §4.4 current-room index).
func (b *Broker) Enter(user types.UserId, roomID types.RoomId) (Receiver, func()) {
	recv, cancel := b.Subscribe(roomID)
	b.mu.Lock()
	b.current[user] = roomID
	b.mu.Unlock()
	return recv, cancel
}

// Leave clears user's current-room mapping, returning the prior room id
// (and ok=false if the user had none).
func (b *Broker) Leave(user types.UserId) (types.RoomId, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	roomID, ok := b.current[user]
	if ok {
		delete(b.current, user)
	}
	return roomID, ok
}

// CurrentRoom reports user's current room, if any.
func (b *Broker) CurrentRoom(user types.UserId) (types.RoomId, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	roomID, ok := b.current[user]
	return roomID, ok
}

// PublishToCurrent publishes event on user's current room, if any.
func (b *Broker) PublishToCurrent(user types.UserId, event wire.ServerEvent) (int, bool) {
	roomID, ok := b.CurrentRoom(user)
	if !ok {
		return 0, false
	}
	return b.Publish(roomID, event), true
}

// CleanupEmptyChannels drops broker-side bookkeeping for rooms with no
// subscribers left, grounded on broadcast.rs's cleanup_empty_channels. Safe
// to call periodically; it never touches the Registry's notion of
// membership, only the broker's own channel map.
func (b *Broker) CleanupEmptyChannels() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.channels {
		ch.mu.Lock()
		empty := len(ch.subscribers) == 0
		ch.mu.Unlock()
		if empty {
			delete(b.channels, id)
		}
	}
}
