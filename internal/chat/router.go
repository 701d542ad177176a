package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/metrics"
	"github.com/rustchat/chatd/internal/room"
	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

// DefaultAnonymousNickname is the nickname a session is considered to have
// before SetNickname is ever called. Preserved verbatim from
// original_source/crates/rustchat-server/src/main.rs (scenario B in spec
// §8 pins this exact string as observable wire data).
const DefaultAnonymousNickname = "匿名用户"

// MessageAppender is the persistence seam the Router tees every broadcast
// message through (the Message Store).
type MessageAppender interface {
	Append(ctx context.Context, m wire.Message) error
}

// SessionContext is everything the Router needs from the session that
// produced a frame: identity, nickname state, and the ability to bind/clear
// its current room-listener. Implemented by internal/session.Session.
type SessionContext interface {
	ID() types.UserId
	Nickname() string
	SetNickname(nick string)
	BindRoom(roomID types.RoomId, recv room.Receiver, cancel func())
	ClearRoom() (types.RoomId, bool)
	TouchPong()
}

// Router classifies a decoded client frame and dispatches it (spec §4.4).
type Router struct {
	hub      *Hub
	registry *room.Registry
	broker   *room.Broker
	store    MessageAppender
	maxList  int
}

// NewRouter builds a Router wired to the Hub, Room Registry, Room Broker
// and Message Store.
func NewRouter(hub *Hub, registry *room.Registry, broker *room.Broker, store MessageAppender, roomListMaxLimit int) *Router {
	return &Router{hub: hub, registry: registry, broker: broker, store: store, maxList: roomListMaxLimit}
}

// Route dispatches frame on behalf of sess, returning an error the caller
// should deliver back to sess as an Error event (spec §7: routing errors
// never close the session).
func (r *Router) Route(ctx context.Context, sess SessionContext, frame *wire.ClientFrame) error {
	switch frame.Type {
	case wire.TypeSendMessage:
		return r.handleSendMessage(ctx, sess, frame.SendMessage)
	case wire.TypeSendRoomMessage:
		return r.handleSendRoomMessage(ctx, sess, frame.SendRoomMessage)
	case wire.TypeSetNickname:
		return r.handleSetNickname(ctx, sess, frame.SetNickname)
	case wire.TypeJoinRoom:
		return r.handleJoinRoom(sess, frame.JoinRoom)
	case wire.TypeLeaveRoom:
		return r.handleLeaveRoom(sess, frame.LeaveRoom)
	case wire.TypePong:
		sess.TouchPong()
		return nil
	default:
		return apperr.New(apperr.DecodeError, "unknown frame type")
	}
}

func (r *Router) persist(ctx context.Context, m wire.Message) {
	// Persistence-vs-delivery atomicity (Open Question 1, kept as source):
	// a storage failure is logged but never blocks or fails the broadcast
	// that is already in flight.
	if err := r.store.Append(ctx, m); err != nil {
		log.Printf("append message %s: %v", m.ID, err)
	}
}

func (r *Router) handleSendMessage(ctx context.Context, sess SessionContext, d *wire.SendMessageData) error {
	nick := sess.Nickname()
	if d.Nickname != nil && *d.Nickname != "" {
		nick = *d.Nickname
	}
	m := wire.Message{
		ID:        types.NewMessageId(),
		From:      sess.ID(),
		Content:   wire.TextContent(d.Content),
		Timestamp: time.Now().UTC(),
		FromNick:  nick,
	}
	r.persist(ctx, m)
	r.hub.BroadcastGlobal(wire.MessageEvent{Message: m})
	metrics.MessagesRouted.WithLabelValues("global").Inc()
	return nil
}

func (r *Router) handleSendRoomMessage(ctx context.Context, sess SessionContext, d *wire.SendRoomMessageData) error {
	roomID, err := types.ParseRoomId(d.RoomID)
	if err != nil {
		return apperr.New(apperr.RoomNotFound, "invalid room id")
	}
	if !r.registry.IsMember(roomID, sess.ID()) {
		return apperr.New(apperr.UserNotInRoom, "you are not a member of this room")
	}
	m := wire.Message{
		ID:        types.NewMessageId(),
		From:      sess.ID(),
		Content:   wire.TextContent(d.Content),
		Timestamp: time.Now().UTC(),
		FromNick:  sess.Nickname(),
		RoomID:    &roomID,
	}
	r.persist(ctx, m)
	// Room subscribers receive a plain Message carrying room_id, not a
	// RoomMessage wrapper - original_source/.../room/broadcast.rs broadcasts
	// WsEvent::Message to the room channel, and main.rs's WsEvent enum has
	// no RoomMessage variant at all.
	r.broker.Publish(roomID, wire.MessageEvent{Message: m})
	metrics.MessagesRouted.WithLabelValues("room").Inc()
	return nil
}

func (r *Router) handleSetNickname(ctx context.Context, sess SessionContext, d *wire.SetNicknameData) error {
	nick := strings.TrimSpace(d.Nickname)
	if nick == "" || len(nick) > 32 || strings.ContainsAny(nick, "\n\r\t") {
		return apperr.New(apperr.InvalidPassword, "nickname must be 1-32 characters with no control whitespace")
	}
	old := sess.Nickname()
	if old == "" {
		old = DefaultAnonymousNickname
	}
	if old == nick {
		// Invariant 8: a NickChange is never emitted when unchanged.
		return nil
	}
	sess.SetNickname(nick)

	m := wire.Message{
		ID:        types.NewMessageId(),
		From:      sess.ID(),
		Content:   wire.NickChangeContent(old, nick),
		Timestamp: time.Now().UTC(),
		FromNick:  nick,
	}
	r.persist(ctx, m)
	r.hub.BroadcastGlobal(wire.MessageEvent{Message: m})
	return nil
}

func (r *Router) handleJoinRoom(sess SessionContext, d *wire.JoinRoomData) error {
	roomID, err := types.ParseRoomId(d.RoomID)
	if err != nil {
		return apperr.New(apperr.RoomNotFound, "invalid room id")
	}
	if r.registry.IsMember(roomID, sess.ID()) {
		// Idempotent re-join: rebind the receiver, don't re-broadcast.
		recv, cancel := r.broker.Enter(sess.ID(), roomID)
		sess.BindRoom(roomID, recv, cancel)
		return nil
	}
	if _, err := r.registry.Join(roomID, sess.ID()); err != nil {
		return err
	}
	recv, cancel := r.broker.Enter(sess.ID(), roomID)
	sess.BindRoom(roomID, recv, cancel)
	r.hub.BroadcastGlobal(wire.UserJoinedRoomEvent{RoomID: roomID, UserID: sess.ID()})
	return nil
}

func (r *Router) handleLeaveRoom(sess SessionContext, d *wire.LeaveRoomData) error {
	roomID, err := types.ParseRoomId(d.RoomID)
	if err != nil {
		return apperr.New(apperr.RoomNotFound, "invalid room id")
	}
	if _, err := r.registry.Leave(roomID, sess.ID()); err != nil {
		return err
	}
	r.broker.Leave(sess.ID())
	sess.ClearRoom()
	r.hub.BroadcastGlobal(wire.UserLeftRoomEvent{RoomID: roomID, UserID: sess.ID()})
	return nil
}

// OnDisconnect leaves every room sess's user was in, mirroring
// RoomManager.handle_user_disconnect - failures are logged, not fatal.
func (r *Router) OnDisconnect(user types.UserId) {
	for _, err := range r.registry.OnDisconnect(user) {
		log.Printf("disconnect cleanup for %s: %v", user, err)
	}
	r.broker.Leave(user)
}
