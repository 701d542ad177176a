// Package chat owns the process-wide live-clients map and global broadcast
// channel (the Hub) and the Router that classifies decoded client frames
// into persist+broadcast actions. The global broadcaster is a
// mutex-guarded map of buffered subscriber channels; publishing takes the
// lock and pushes into each channel, with no dedicated goroutine. The live-clients
// arena-by-key pattern follows spec §9's "cyclic ownership" guidance
// (sessions hold only a UserId key, never a back-pointer).
package chat

import (
	"log"
	"sync"

	"github.com/rustchat/chatd/internal/metrics"
	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

// Client is the capability the Hub needs from a connected session: a
// mailbox to push events into and an identity. Implemented by
// internal/session.Session, kept as a narrow interface here so this
// package never imports internal/session (spec §9: arena-style map, no
// back-pointers).
type Client interface {
	ID() types.UserId
	Nickname() string
	Send(event wire.ServerEvent)
}

// Hub is the process-wide live-clients map plus global broadcast channel
// (spec §2 Router / §5 "Live clients map").
type Hub struct {
	mu      sync.Mutex
	clients map[types.UserId]Client

	global *globalChannel
}

type globalChannel struct {
	mu          sync.Mutex
	subscribers map[int]chan wire.ServerEvent
	laggedChans map[int]chan struct{}
	nextID      int
	capacity    int
}

// NewHub builds an empty Hub whose global channel buffers up to capacity
// events per subscriber (spec §6 Configuration: default 1000).
func NewHub(capacity int) *Hub {
	return &Hub{
		clients: make(map[types.UserId]Client),
		global: &globalChannel{
			subscribers: make(map[int]chan wire.ServerEvent),
			laggedChans: make(map[int]chan struct{}),
			capacity:    capacity,
		},
	}
}

// GlobalReceiver is what a session's global-listener goroutine drains to
// receive globally broadcast events.
type GlobalReceiver struct {
	C      <-chan wire.ServerEvent
	Lagged <-chan struct{}
}

// SubscribeGlobal returns a fresh receiver on the global broadcast channel.
// Per the Session Manager's startup ordering (spec §4.5), this must be
// called before the session is registered in the clients map.
func (h *Hub) SubscribeGlobal() (GlobalReceiver, func()) {
	h.global.mu.Lock()
	defer h.global.mu.Unlock()

	id := h.global.nextID
	h.global.nextID++
	events := make(chan wire.ServerEvent, h.global.capacity)
	lagged := make(chan struct{}, 1)
	h.global.subscribers[id] = events
	h.global.laggedChans[id] = lagged

	cancel := func() {
		h.global.mu.Lock()
		defer h.global.mu.Unlock()
		if c, ok := h.global.subscribers[id]; ok {
			close(c)
			delete(h.global.subscribers, id)
			delete(h.global.laggedChans, id)
		}
	}
	return GlobalReceiver{C: events, Lagged: lagged}, cancel
}

// BroadcastGlobal publishes event to every global subscriber, lag-dropping
// the way Room Broker.Publish does.
func (h *Hub) BroadcastGlobal(event wire.ServerEvent) int {
	g := h.global
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, sub := range g.subscribers {
		select {
		case sub <- event:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- event:
			default:
			}
			select {
			case g.laggedChans[id] <- struct{}{}:
			default:
			}
			log.Printf("global channel: subscriber %d lagged, dropped oldest event", id)
		}
	}
	return len(g.subscribers)
}

// Register adds c to the live-clients map and broadcasts UserJoined. Must
// be called only after c has already subscribed to the global channel
// (spec §4.5 startup ordering) so the broadcast is never missed.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	count := len(h.clients)
	h.mu.Unlock()

	var nick *string
	if n := c.Nickname(); n != "" {
		nick = &n
	}
	metrics.ActiveConnections.Set(float64(count))
	h.BroadcastGlobal(wire.UserJoinedEvent{UserID: c.ID(), Nickname: nick})
	log.Printf("client connected: %s, total connections: %d", c.ID(), count)
}

// Unregister removes c from the live-clients map and broadcasts UserLeft.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	delete(h.clients, c.ID())
	count := len(h.clients)
	h.mu.Unlock()

	metrics.ActiveConnections.Set(float64(count))
	h.BroadcastGlobal(wire.UserLeftEvent{UserID: c.ID()})
	log.Printf("client disconnected: %s, total connections: %d", c.ID(), count)
}

// Count returns the number of currently registered clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
