// Package room implements the Room Registry (in-memory membership) and the
// Room Broker (per-room fan-out channels and the current-room index),
// grounded on original_source/crates/rustchat-server/src/room/manager.rs
// and broadcast.rs, with the central-registry-guarded-by-one-lock idiom
// taken from the teacher's Hub.topics (generalized from sync.Map to a
// mutex-guarded map pair - see DESIGN.md).
package room

import (
	"sync"
	"time"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/metrics"
	"github.com/rustchat/chatd/internal/types"
)

// Room is the in-memory room record (spec §3).
type Room struct {
	ID          types.RoomId
	Name        string
	Owner       types.UserId
	CreatedAt   time.Time
	Members     map[types.UserId]struct{}
	Description string
	MaxMembers  int // 0 means unlimited
}

// Snapshot is an immutable copy of a Room safe to hand to callers without
// exposing the live Members map.
type Snapshot struct {
	ID          types.RoomId
	Name        string
	Owner       types.UserId
	CreatedAt   time.Time
	Members     []types.UserId
	Description string
	MaxMembers  int
}

func (r *Room) snapshot() Snapshot {
	members := make([]types.UserId, 0, len(r.Members))
	for u := range r.Members {
		members = append(members, u)
	}
	return Snapshot{
		ID: r.ID, Name: r.Name, Owner: r.Owner, CreatedAt: r.CreatedAt,
		Members: members, Description: r.Description, MaxMembers: r.MaxMembers,
	}
}

// CreateRequest is the input to Registry.Create.
type CreateRequest struct {
	Name        string
	Description string
	MaxMembers  int
}

// Registry owns every live room plus the reverse user->rooms index, both
// guarded by a single RWMutex so the cross-structure invariant "U in
// R.Members iff R in RoomsOf(U)" is always updated atomically (spec §4.3
// concurrency note).
type Registry struct {
	mu        sync.RWMutex
	rooms     map[types.RoomId]*Room
	userRooms map[types.UserId]map[types.RoomId]struct{}
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[types.RoomId]*Room),
		userRooms: make(map[types.UserId]map[types.RoomId]struct{}),
	}
}

// Create creates a new room owned by owner. Rejects an empty name.
func (r *Registry) Create(req CreateRequest, owner types.UserId) (Snapshot, error) {
	if req.Name == "" {
		return Snapshot{}, apperr.New(apperr.InvalidRoomName, "room name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	room := &Room{
		ID:          types.NewRoomId(),
		Name:        req.Name,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
		Members:     map[types.UserId]struct{}{owner: {}},
		Description: req.Description,
		MaxMembers:  req.MaxMembers,
	}
	r.rooms[room.ID] = room
	r.addUserRoomLocked(owner, room.ID)
	metrics.RoomPopulation.Set(float64(len(r.rooms)))
	return room.snapshot(), nil
}

// Join adds user to room's members.
func (r *Registry) Join(roomID types.RoomId, user types.UserId) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, apperr.New(apperr.RoomNotFound, "room not found")
	}
	if _, already := room.Members[user]; already {
		return Snapshot{}, apperr.New(apperr.UserAlreadyInRoom, "user is already a member of this room")
	}
	if room.MaxMembers > 0 && len(room.Members) >= room.MaxMembers {
		return Snapshot{}, apperr.New(apperr.RoomFull, "room has reached its member capacity")
	}
	room.Members[user] = struct{}{}
	r.addUserRoomLocked(user, roomID)
	return room.snapshot(), nil
}

// Leave removes user from room's members. If the room becomes empty it is
// destroyed and the returned snapshot reflects the pre-destruction state
// (spec §4.3).
func (r *Registry) Leave(roomID types.RoomId, user types.UserId) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, apperr.New(apperr.RoomNotFound, "room not found")
	}
	if _, member := room.Members[user]; !member {
		return Snapshot{}, apperr.New(apperr.UserNotInRoom, "user is not a member of this room")
	}
	snap := room.snapshot()
	delete(room.Members, user)
	r.removeUserRoomLocked(user, roomID)
	if len(room.Members) == 0 {
		delete(r.rooms, roomID)
		metrics.RoomPopulation.Set(float64(len(r.rooms)))
	}
	return snap, nil
}

// Delete destroys room unconditionally; requires user == room.Owner.
func (r *Registry) Delete(roomID types.RoomId, user types.UserId) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, apperr.New(apperr.RoomNotFound, "room not found")
	}
	if room.Owner != user {
		return Snapshot{}, apperr.New(apperr.PermissionDenied, "only the owner may delete this room")
	}
	snap := room.snapshot()
	for member := range room.Members {
		r.removeUserRoomLocked(member, roomID)
	}
	delete(r.rooms, roomID)
	metrics.RoomPopulation.Set(float64(len(r.rooms)))
	return snap, nil
}

// Get returns a room snapshot by id.
func (r *Registry) Get(roomID types.RoomId) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, apperr.New(apperr.RoomNotFound, "room not found")
	}
	return room.snapshot(), nil
}

// Members returns the member ids of room.
func (r *Registry) Members(roomID types.RoomId) ([]types.UserId, error) {
	snap, err := r.Get(roomID)
	if err != nil {
		return nil, err
	}
	return snap.Members, nil
}

// RoomsOf returns every room id user currently belongs to.
func (r *Registry) RoomsOf(user types.UserId) []types.RoomId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.userRooms[user]
	out := make([]types.RoomId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// IsMember reports whether user is a member of room.
func (r *Registry) IsMember(roomID types.RoomId, user types.UserId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, member := room.Members[user]
	return member
}

// List returns up to limit rooms starting at offset, limit capped at
// maxLimit (spec §4.3: limit <= 100).
func (r *Registry) List(offset, limit, maxLimit int) []Snapshot {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Snapshot, 0, len(r.rooms))
	for _, room := range r.rooms {
		all = append(all, room.snapshot())
	}
	if offset >= len(all) {
		return []Snapshot{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// Count returns the number of currently live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// OnDisconnect leaves every room user was in, logging (via the returned
// slice of errors) rather than stopping on the first failure (spec §4.3).
func (r *Registry) OnDisconnect(user types.UserId) []error {
	var errs []error
	for _, roomID := range r.RoomsOf(user) {
		if _, err := r.Leave(roomID, user); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Registry) addUserRoomLocked(user types.UserId, roomID types.RoomId) {
	set, ok := r.userRooms[user]
	if !ok {
		set = make(map[types.RoomId]struct{})
		r.userRooms[user] = set
	}
	set[roomID] = struct{}{}
}

func (r *Registry) removeUserRoomLocked(user types.UserId, roomID types.RoomId) {
	set, ok := r.userRooms[user]
	if !ok {
		return
	}
	delete(set, roomID)
	if len(set) == 0 {
		delete(r.userRooms, user)
	}
}
