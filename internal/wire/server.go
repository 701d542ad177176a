package wire

import (
	"encoding/json"

	"github.com/rustchat/chatd/internal/types"
)

// Server event type discriminators (spec §6).
const (
	EventConnected      = "Connected"
	EventMessage        = "Message"
	EventUserJoined     = "UserJoined"
	EventUserLeft       = "UserLeft"
	EventUserJoinedRoom = "UserJoinedRoom"
	EventUserLeftRoom   = "UserLeftRoom"
	EventPing           = "Ping"
	EventError          = "Error"
)

// ServerEvent is anything that can be encoded as a {"event":...,"data":...}
// envelope and queued onto a session's mailbox.
type ServerEvent interface {
	EventType() string
}

// Encode renders ev as the wire envelope.
func Encode(ev ServerEvent) ([]byte, error) {
	if _, ok := ev.(PingEvent); ok {
		return json.Marshal(struct {
			Event string `json:"event"`
		}{Event: EventPing})
	}
	return json.Marshal(struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data,omitempty"`
	}{Event: ev.EventType(), Data: ev})
}

type ConnectedEvent struct {
	UserID types.UserId `json:"user_id"`
}

func (ConnectedEvent) EventType() string { return EventConnected }

type MessageEvent struct {
	Message
}

func (MessageEvent) EventType() string { return EventMessage }

type UserJoinedEvent struct {
	UserID   types.UserId `json:"user_id"`
	Nickname *string      `json:"nickname,omitempty"`
}

func (UserJoinedEvent) EventType() string { return EventUserJoined }

type UserLeftEvent struct {
	UserID types.UserId `json:"user_id"`
}

func (UserLeftEvent) EventType() string { return EventUserLeft }

type UserJoinedRoomEvent struct {
	RoomID types.RoomId `json:"room_id"`
	UserID types.UserId `json:"user_id"`
}

func (UserJoinedRoomEvent) EventType() string { return EventUserJoinedRoom }

type UserLeftRoomEvent struct {
	RoomID types.RoomId `json:"room_id"`
	UserID types.UserId `json:"user_id"`
}

func (UserLeftRoomEvent) EventType() string { return EventUserLeftRoom }

type PingEvent struct{}

func (PingEvent) EventType() string { return EventPing }

// MarshalJSON for PingEvent emits JSON null, since Ping carries no data.
// Encode itself writes a Ping envelope with no "data" key at all.
func (PingEvent) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return EventError }
