package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/room"
	"github.com/rustchat/chatd/internal/types"
)

type roomView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Owner       string   `json:"owner"`
	Description string   `json:"description,omitempty"`
	MaxMembers  int      `json:"max_members,omitempty"`
	Members     []string `json:"members"`
	MemberCount int      `json:"member_count"`
}

func roomViewOf(s room.Snapshot) roomView {
	members := make([]string, len(s.Members))
	for i, m := range s.Members {
		members[i] = m.String()
	}
	return roomView{
		ID: s.ID.String(), Name: s.Name, Owner: s.Owner.String(),
		Description: s.Description, MaxMembers: s.MaxMembers,
		Members: members, MemberCount: len(members),
	}
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func roomIDFromPath(r *http.Request) (types.RoomId, error) {
	id, err := types.ParseRoomId(mux.Vars(r)["id"])
	if err != nil {
		return types.RoomId{}, apperr.New(apperr.RoomNotFound, "invalid room id")
	}
	return id, nil
}

type createRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxMembers  int    `json:"max_members"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	acctID, err := accountIDFrom(r)
	if err != nil {
		fail(w, err)
		return
	}
	var req createRoomRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	snap, err := s.registry.Create(room.CreateRequest{
		Name: req.Name, Description: req.Description, MaxMembers: req.MaxMembers,
	}, types.AccountIdToUserId(acctID))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, http.StatusCreated, roomViewOf(snap), "")
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	offset := intQuery(r, "offset", 0)
	limit := intQuery(r, "limit", s.cfg.RoomListMaxLimit)
	snaps := s.registry.List(offset, limit, s.cfg.RoomListMaxLimit)
	views := make([]roomView, len(snaps))
	for i, snap := range snaps {
		views[i] = roomViewOf(snap)
	}
	ok(w, http.StatusOK, views, "")
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromPath(r)
	if err != nil {
		fail(w, err)
		return
	}
	snap, err := s.registry.Get(roomID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, http.StatusOK, roomViewOf(snap), "")
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	acctID, err := accountIDFrom(r)
	if err != nil {
		fail(w, err)
		return
	}
	roomID, err := roomIDFromPath(r)
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := s.registry.Delete(roomID, types.AccountIdToUserId(acctID)); err != nil {
		fail(w, err)
		return
	}
	ok(w, http.StatusOK, nil, "room deleted")
}

// handleJoinRoom/handleLeaveRoom cover the REST (non-websocket) path for
// joining a room's membership, independent of a live session's BindRoom
// subscription - a client may join via REST and only later open a
// websocket, or never open one at all.
func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	acctID, err := accountIDFrom(r)
	if err != nil {
		fail(w, err)
		return
	}
	roomID, err := roomIDFromPath(r)
	if err != nil {
		fail(w, err)
		return
	}
	snap, err := s.registry.Join(roomID, types.AccountIdToUserId(acctID))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, http.StatusOK, roomViewOf(snap), "")
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	acctID, err := accountIDFrom(r)
	if err != nil {
		fail(w, err)
		return
	}
	roomID, err := roomIDFromPath(r)
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := s.registry.Leave(roomID, types.AccountIdToUserId(acctID)); err != nil {
		fail(w, err)
		return
	}
	s.broker.Leave(types.AccountIdToUserId(acctID))
	ok(w, http.StatusOK, nil, "left room")
}

func (s *Server) handleRoomMembers(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromPath(r)
	if err != nil {
		fail(w, err)
		return
	}
	members, err := s.registry.Members(roomID)
	if err != nil {
		fail(w, err)
		return
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.String()
	}
	ok(w, http.StatusOK, ids, "")
}

func (s *Server) handleRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromPath(r)
	if err != nil {
		fail(w, err)
		return
	}
	limit := intQuery(r, "limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := intQuery(r, "offset", 0)
	msgs, err := s.store.ByRoom(r.Context(), roomID, limit, offset)
	if err != nil {
		fail(w, apperr.Wrap(apperr.StorageError, "load room messages", err))
		return
	}
	ok(w, http.StatusOK, msgs, "")
}

func (s *Server) handleUserRooms(w http.ResponseWriter, r *http.Request) {
	acctID, err := accountIDFrom(r)
	if err != nil {
		fail(w, err)
		return
	}
	roomIDs := s.registry.RoomsOf(types.AccountIdToUserId(acctID))
	views := make([]roomView, 0, len(roomIDs))
	for _, id := range roomIDs {
		if snap, err := s.registry.Get(id); err == nil {
			views = append(views, roomViewOf(snap))
		}
	}
	ok(w, http.StatusOK, views, "")
}

type statsResponse struct {
	ActiveConnections int `json:"active_connections"`
	LiveRooms         int `json:"live_rooms"`
}

func (s *Server) handleRoomStats(w http.ResponseWriter, r *http.Request) {
	stats := statsResponse{
		ActiveConnections: s.hub.Count(),
		LiveRooms:         s.registry.Count(),
	}
	ok(w, http.StatusOK, stats, "")
}
