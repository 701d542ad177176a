package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/room"
	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

// fakeAppender records every message handed to it in place of a real store.
type fakeAppender struct {
	mu   sync.Mutex
	msgs []wire.Message
}

func (f *fakeAppender) Append(_ context.Context, m wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeAppender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// fakeSession is a minimal SessionContext/Client double.
type fakeSession struct {
	mu       sync.Mutex
	id       types.UserId
	nickname string
	room     types.RoomId
	hasRoom  bool
	received []wire.ServerEvent
}

func newFakeSession() *fakeSession { return &fakeSession{id: types.NewUserId()} }

func (f *fakeSession) ID() types.UserId { return f.id }
func (f *fakeSession) Nickname() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nickname
}
func (f *fakeSession) SetNickname(n string) {
	f.mu.Lock()
	f.nickname = n
	f.mu.Unlock()
}
func (f *fakeSession) BindRoom(roomID types.RoomId, _ room.Receiver, _ func()) {
	f.mu.Lock()
	f.room, f.hasRoom = roomID, true
	f.mu.Unlock()
}
func (f *fakeSession) ClearRoom() (types.RoomId, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.room, f.hasRoom
	f.hasRoom = false
	return r, ok
}
func (f *fakeSession) TouchPong() {}
func (f *fakeSession) Send(ev wire.ServerEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, ev)
}

func newTestRouter() (*Router, *Hub, *room.Registry, *room.Broker, *fakeAppender) {
	hub := NewHub(16)
	registry := room.NewRegistry()
	broker := room.NewBroker(16)
	store := &fakeAppender{}
	return NewRouter(hub, registry, broker, store, 100), hub, registry, broker, store
}

func TestRouteSendMessageBroadcastsAndPersists(t *testing.T) {
	r, hub, _, _, store := newTestRouter()
	sender := newFakeSession()
	listener := newFakeSession()

	// Register before subscribing so the UserJoined broadcast is not the
	// first event on globalRecv.
	hub.Register(listener)
	defer hub.Unregister(listener)
	globalRecv, cancel := hub.SubscribeGlobal()
	defer cancel()

	frame := &wire.ClientFrame{Type: wire.TypeSendMessage, SendMessage: &wire.SendMessageData{Content: "hello room"}}
	if err := r.Route(context.Background(), sender, frame); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("expected the message to be persisted, got %d appends", store.count())
	}

	select {
	case ev := <-globalRecv.C:
		me, ok := ev.(wire.MessageEvent)
		if !ok || me.Content.Text != "hello room" {
			t.Fatalf("got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the global broadcast")
	}
}

func TestRouteSendRoomMessageRequiresMembership(t *testing.T) {
	r, _, registry, _, _ := newTestRouter()
	sender := newFakeSession()

	snap, err := registry.Create(room.CreateRequest{Name: "general"}, types.NewUserId())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	frame := &wire.ClientFrame{Type: wire.TypeSendRoomMessage, SendRoomMessage: &wire.SendRoomMessageData{RoomID: snap.ID.String(), Content: "hi"}}
	if err := r.Route(context.Background(), sender, frame); !apperr.Is(err, apperr.UserNotInRoom) {
		t.Fatalf("expected UserNotInRoom, got %v", err)
	}
}

func TestRouteJoinThenSendRoomMessage(t *testing.T) {
	r, _, registry, broker, store := newTestRouter()
	sender := newFakeSession()

	snap, err := registry.Create(room.CreateRequest{Name: "general"}, sender.ID())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	joinFrame := &wire.ClientFrame{Type: wire.TypeJoinRoom, JoinRoom: &wire.JoinRoomData{RoomID: snap.ID.String()}}
	if err := r.Route(context.Background(), sender, joinFrame); err != nil {
		t.Fatalf("Route(Join): %v", err)
	}
	if roomID, ok := sender.ClearRoom(); !ok || roomID != snap.ID {
		t.Fatalf("expected BindRoom to have recorded %s, got (%s, %v)", snap.ID, roomID, ok)
	}

	recv, cancel := broker.Subscribe(snap.ID)
	defer cancel()

	msgFrame := &wire.ClientFrame{Type: wire.TypeSendRoomMessage, SendRoomMessage: &wire.SendRoomMessageData{RoomID: snap.ID.String(), Content: "hi room"}}
	if err := r.Route(context.Background(), sender, msgFrame); err != nil {
		t.Fatalf("Route(SendRoomMessage): %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("expected 1 persisted message, got %d", store.count())
	}

	select {
	case ev := <-recv.C:
		me, ok := ev.(wire.MessageEvent)
		if !ok {
			t.Fatalf("got %T, want wire.MessageEvent", ev)
		}
		if me.RoomID == nil || *me.RoomID != snap.ID {
			t.Fatalf("Message.RoomID = %v, want %s", me.RoomID, snap.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the room broadcast")
	}
}

func TestRouteSetNicknameNoopWhenUnchanged(t *testing.T) {
	r, hub, _, _, _ := newTestRouter()
	sender := newFakeSession()
	sender.SetNickname(DefaultAnonymousNickname)

	listener := newFakeSession()
	hub.Register(listener)
	defer hub.Unregister(listener)
	globalRecv, cancel := hub.SubscribeGlobal()
	defer cancel()

	frame := &wire.ClientFrame{Type: wire.TypeSetNickname, SetNickname: &wire.SetNicknameData{Nickname: DefaultAnonymousNickname}}
	if err := r.Route(context.Background(), sender, frame); err != nil {
		t.Fatalf("Route: %v", err)
	}

	select {
	case ev := <-globalRecv.C:
		t.Fatalf("expected no broadcast for an unchanged nickname, got %#v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRouteUnknownFrameType(t *testing.T) {
	r, _, _, _, _ := newTestRouter()
	sender := newFakeSession()
	if err := r.Route(context.Background(), sender, &wire.ClientFrame{Type: "Bogus"}); !apperr.Is(err, apperr.DecodeError) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}
