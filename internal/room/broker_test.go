package room

import (
	"testing"
	"time"

	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBroker(4)
	roomID := types.NewRoomId()

	recv, cancel := b.Subscribe(roomID)
	defer cancel()

	b.Publish(roomID, wire.MessageEvent{Message: wire.Message{RoomID: &roomID}})

	select {
	case ev := <-recv.C:
		if _, ok := ev.(wire.MessageEvent); !ok {
			t.Fatalf("got %T, want wire.MessageEvent", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestPublishLagDropsOldest(t *testing.T) {
	b := NewBroker(1)
	roomID := types.NewRoomId()

	recv, cancel := b.Subscribe(roomID)
	defer cancel()

	// Fill the one-slot buffer, then publish again: this must drop the
	// oldest pending event and signal Lagged rather than block.
	b.Publish(roomID, wire.MessageEvent{Message: wire.Message{RoomID: &roomID, FromNick: "first"}})
	b.Publish(roomID, wire.MessageEvent{Message: wire.Message{RoomID: &roomID, FromNick: "second"}})

	select {
	case <-recv.Lagged:
	case <-time.After(time.Second):
		t.Fatal("expected a Lagged signal after exceeding buffer capacity")
	}

	select {
	case ev := <-recv.C:
		m, ok := ev.(wire.MessageEvent)
		if !ok || m.Message.FromNick != "second" {
			t.Fatalf("expected the newest event to survive, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the surviving event")
	}
}

func TestEnterLeaveCurrentRoom(t *testing.T) {
	b := NewBroker(4)
	user := types.NewUserId()
	roomID := types.NewRoomId()

	_, cancel := b.Enter(user, roomID)
	defer cancel()

	got, ok := b.CurrentRoom(user)
	if !ok || got != roomID {
		t.Fatalf("CurrentRoom = (%s, %v), want (%s, true)", got, ok, roomID)
	}

	left, ok := b.Leave(user)
	if !ok || left != roomID {
		t.Fatalf("Leave = (%s, %v), want (%s, true)", left, ok, roomID)
	}
	if _, ok := b.CurrentRoom(user); ok {
		t.Fatal("expected no current room after Leave")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBroker(4)
	roomID := types.NewRoomId()

	recv, cancel := b.Subscribe(roomID)
	cancel()

	_, ok := <-recv.C
	if ok {
		t.Fatal("expected the receiver channel to be closed after cancel")
	}
}
