package wire

import "testing"

func TestDecodeClientFrameSendMessage(t *testing.T) {
	raw := []byte(`{"type":"SendMessage","data":{"content":"hello"}}`)
	f, err := DecodeClientFrame(raw)
	if err != nil {
		t.Fatalf("DecodeClientFrame: %v", err)
	}
	if f.Type != TypeSendMessage || f.SendMessage == nil || f.SendMessage.Content != "hello" {
		t.Fatalf("got %+v", f)
	}
}

func TestDecodeClientFramePong(t *testing.T) {
	f, err := DecodeClientFrame([]byte(`{"type":"Pong"}`))
	if err != nil {
		t.Fatalf("DecodeClientFrame: %v", err)
	}
	if f.Type != TypePong {
		t.Fatalf("type = %q, want Pong", f.Type)
	}
}

func TestDecodeClientFrameUnknownType(t *testing.T) {
	if _, err := DecodeClientFrame([]byte(`{"type":"Nonsense"}`)); err == nil {
		t.Fatal("expected an error for an unknown frame type")
	}
}

func TestDecodeClientFrameJoinRoom(t *testing.T) {
	raw := []byte(`{"type":"JoinRoom","data":{"room_id":"abc"}}`)
	f, err := DecodeClientFrame(raw)
	if err != nil {
		t.Fatalf("DecodeClientFrame: %v", err)
	}
	if f.JoinRoom == nil || f.JoinRoom.RoomID != "abc" {
		t.Fatalf("got %+v", f)
	}
}
