package room

import (
	"testing"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/types"
)

func TestCreateJoinLeaveLifecycle(t *testing.T) {
	reg := NewRegistry()
	owner := types.NewUserId()
	member := types.NewUserId()

	snap, err := reg.Create(CreateRequest{Name: "general"}, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(snap.Members) != 1 || snap.Members[0] != owner {
		t.Fatalf("expected the owner to be the sole initial member, got %v", snap.Members)
	}

	if _, err := reg.Join(snap.ID, member); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !reg.IsMember(snap.ID, member) {
		t.Fatal("expected member to be a member after Join")
	}
	if got := reg.RoomsOf(member); len(got) != 1 || got[0] != snap.ID {
		t.Fatalf("RoomsOf(member) = %v, want [%s]", got, snap.ID)
	}

	if _, err := reg.Join(snap.ID, member); !apperr.Is(err, apperr.UserAlreadyInRoom) {
		t.Fatalf("expected UserAlreadyInRoom re-joining, got %v", err)
	}

	if _, err := reg.Leave(snap.ID, member); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if reg.IsMember(snap.ID, member) {
		t.Fatal("expected member to no longer be a member after Leave")
	}
	if got := reg.RoomsOf(member); len(got) != 0 {
		t.Fatalf("RoomsOf(member) after leave = %v, want empty", got)
	}
}

func TestLeaveLastMemberDestroysRoom(t *testing.T) {
	reg := NewRegistry()
	owner := types.NewUserId()

	snap, err := reg.Create(CreateRequest{Name: "solo"}, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Leave(snap.ID, owner); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, err := reg.Get(snap.ID); !apperr.Is(err, apperr.RoomNotFound) {
		t.Fatalf("expected the now-empty room to be destroyed, got %v", err)
	}
}

func TestRoomFull(t *testing.T) {
	reg := NewRegistry()
	owner := types.NewUserId()

	snap, err := reg.Create(CreateRequest{Name: "tiny", MaxMembers: 1}, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Join(snap.ID, types.NewUserId()); !apperr.Is(err, apperr.RoomFull) {
		t.Fatalf("expected RoomFull, got %v", err)
	}
}

func TestDeleteRequiresOwner(t *testing.T) {
	reg := NewRegistry()
	owner := types.NewUserId()
	intruder := types.NewUserId()

	snap, err := reg.Create(CreateRequest{Name: "owned"}, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Delete(snap.ID, intruder); !apperr.Is(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := reg.Delete(snap.ID, owner); err != nil {
		t.Fatalf("Delete by owner: %v", err)
	}
}

func TestOnDisconnectLeavesEveryRoom(t *testing.T) {
	reg := NewRegistry()
	user := types.NewUserId()

	a, err := reg.Create(CreateRequest{Name: "a"}, user)
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	other := types.NewUserId()
	b, err := reg.Create(CreateRequest{Name: "b"}, other)
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if _, err := reg.Join(b.ID, user); err != nil {
		t.Fatalf("Join b: %v", err)
	}

	if errs := reg.OnDisconnect(user); len(errs) != 0 {
		t.Fatalf("OnDisconnect returned errors: %v", errs)
	}
	if reg.IsMember(a.ID, user) || reg.IsMember(b.ID, user) {
		t.Fatal("expected user to have left every room")
	}
}

func TestListRespectsMaxLimit(t *testing.T) {
	reg := NewRegistry()
	owner := types.NewUserId()
	for i := 0; i < 5; i++ {
		if _, err := reg.Create(CreateRequest{Name: "room"}, owner); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if got := reg.List(0, 1000, 3); len(got) != 3 {
		t.Fatalf("List with maxLimit=3 returned %d rooms, want 3", len(got))
	}
}
