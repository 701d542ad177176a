// Package session implements the Session Manager: one goroutine group per
// accepted connection (reader, writer, heartbeat, room-listener) sharing a
// mailbox and a shutdown signal, grounded on the teacher's Session struct
// and queueOut mailbox idiom in server/session.go, with the exact
// startup/shutdown ordering pinned by
// original_source/crates/rustchat-server/src/main.rs's handle_socket.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustchat/chatd/internal/chat"
	"github.com/rustchat/chatd/internal/room"
	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

// Router is the subset of chat.Router the session depends on, named here
// to avoid a direct compile-time dependency beyond what's needed.
type Router interface {
	Route(ctx context.Context, sess chat.SessionContext, frame *wire.ClientFrame) error
	OnDisconnect(user types.UserId)
}

// Config carries the heartbeat timings from the resolved server Config.
type Config struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// Session is one live bidirectional connection plus its task group and
// identity (GLOSSARY: "Session").
type Session struct {
	conn   *websocket.Conn
	hub    *chat.Hub
	broker *room.Broker
	router Router
	cfg    Config

	id types.UserId

	mailbox *mailbox
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu           sync.Mutex
	nickname     string
	lastPong     time.Time
	currentRoom  types.RoomId
	hasRoom      bool
	roomRecv     room.Receiver
	roomCancel   func()
	roomGenMutex sync.Mutex
	roomGen      int
}

// New constructs a Session for an already-upgraded connection. id is the
// resolved identity (spec §4.5: the account id for bearer-authenticated
// connections, otherwise a freshly minted random UserId).
func New(conn *websocket.Conn, hub *chat.Hub, broker *room.Broker, router Router, cfg Config, id types.UserId) *Session {
	return &Session{
		conn:     conn,
		hub:      hub,
		broker:   broker,
		router:   router,
		cfg:      cfg,
		id:       id,
		mailbox:  newMailbox(),
		done:     make(chan struct{}),
		lastPong: time.Now(),
	}
}

// ID implements chat.Client and chat.SessionContext.
func (s *Session) ID() types.UserId { return s.id }

// Nickname implements chat.Client and chat.SessionContext.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// SetNickname implements chat.SessionContext.
func (s *Session) SetNickname(nick string) {
	s.mu.Lock()
	s.nickname = nick
	s.mu.Unlock()
}

// TouchPong implements chat.SessionContext: records that a Pong was
// received just now (spec §4.7 liveness state machine).
func (s *Session) TouchPong() {
	s.mu.Lock()
	s.lastPong = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastPongAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPong
}

// Send implements chat.Client: the mailbox is the sole path by which other
// goroutines deliver events to this client (spec §4.5).
func (s *Session) Send(event wire.ServerEvent) {
	s.mailbox.push(event)
}

// BindRoom implements chat.SessionContext: swaps in a new room receiver,
// canceling any previous subscription, and starts the room-listener
// goroutine for it.
func (s *Session) BindRoom(roomID types.RoomId, recv room.Receiver, cancel func()) {
	s.mu.Lock()
	prevCancel := s.roomCancel
	s.currentRoom = roomID
	s.hasRoom = true
	s.roomRecv = recv
	s.roomCancel = cancel
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}

	s.roomGenMutex.Lock()
	s.roomGen++
	gen := s.roomGen
	s.roomGenMutex.Unlock()

	s.wg.Add(1)
	go s.roomListener(recv, gen)
}

// ClearRoom implements chat.SessionContext.
func (s *Session) ClearRoom() (types.RoomId, bool) {
	s.mu.Lock()
	roomID, ok := s.currentRoom, s.hasRoom
	cancel := s.roomCancel
	s.hasRoom = false
	s.roomCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return roomID, ok
}

// Run drives the session to completion: it performs the startup sequence,
// then blocks until any of the four goroutines exits, then runs shutdown.
// Grounded byte-for-byte on main.rs's handle_socket ordering (spec §4.5).
func (s *Session) Run(ctx context.Context) {
	// (ii) enqueue Connected and flush it immediately, ahead of anything
	// else that might get queued.
	if err := s.writeOne(wire.ConnectedEvent{UserID: s.id}); err != nil {
		log.Printf("session %s: failed to send Connected: %v", s.id, err)
		s.conn.Close()
		return
	}

	// (iii) subscribe to the global broadcaster before this session is
	// visible to anyone, so no broadcast in the gap is lost.
	globalRecv, globalCancel := s.hub.SubscribeGlobal()
	defer globalCancel()

	// (iv) only now register in the live-clients map (broadcasts UserJoined).
	s.hub.Register(s)

	s.wg.Add(4)
	go s.readerLoop(ctx)
	go s.writerLoop()
	go s.heartbeatLoop()
	go s.globalListener(globalRecv)

	<-s.done
	// Unblock a reader still waiting in ReadMessage so wg.Wait can return.
	s.conn.SetReadDeadline(time.Now())
	s.wg.Wait()

	s.shutdown()
}

// stop signals every sibling goroutine to exit; safe to call multiple times
// and from multiple goroutines.
func (s *Session) stop() {
	s.once.Do(func() {
		close(s.done)
		s.mailbox.close()
	})
}

func (s *Session) shutdown() {
	s.ClearRoom()
	s.hub.Unregister(s)
	s.router.OnDisconnect(s.id)
	s.conn.Close()
}

func (s *Session) readerLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.stop()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := wire.DecodeClientFrame(raw)
		if err != nil {
			log.Printf("session %s: decode error: %v", s.id, err)
			continue
		}
		if err := s.router.Route(ctx, s, frame); err != nil {
			s.Send(wire.ErrorEvent{Message: err.Error()})
		}
	}
}

func (s *Session) writerLoop() {
	defer s.wg.Done()
	for {
		ev, ok := s.mailbox.pop()
		if !ok {
			return
		}
		if err := s.writeOne(ev); err != nil {
			s.stop()
			return
		}
	}
}

func (s *Session) writeOne(ev wire.ServerEvent) error {
	b, err := wire.Encode(ev)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) heartbeatLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if time.Since(s.lastPongAt()) > s.cfg.HeartbeatTimeout {
				log.Printf("session %s: heartbeat timeout, evicting", s.id)
				s.stop()
				return
			}
			s.Send(wire.PingEvent{})
		case <-s.done:
			return
		}
	}
}

func (s *Session) globalListener(recv chat.GlobalReceiver) {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-recv.C:
			if !ok {
				return
			}
			s.Send(ev)
		case <-recv.Lagged:
			log.Printf("session %s: lagged on global channel", s.id)
		case <-s.done:
			return
		}
	}
}

// roomListener forwards events from recv into the mailbox until the
// session's room binding moves on to a new generation or recv is closed
// (spec §4.5 "room listener").
func (s *Session) roomListener(recv room.Receiver, gen int) {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-recv.C:
			if !ok {
				return
			}
			s.roomGenMutex.Lock()
			current := s.roomGen
			s.roomGenMutex.Unlock()
			if current != gen {
				return
			}
			s.Send(ev)
		case <-recv.Lagged:
			log.Printf("session %s: lagged on room channel", s.id)
		case <-s.done:
			return
		}
	}
}
