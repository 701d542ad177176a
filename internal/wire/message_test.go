package wire

import (
	"encoding/json"
	"testing"

	"github.com/rustchat/chatd/internal/types"
)

func TestContentRoundTrip(t *testing.T) {
	cases := []Content{
		TextContent("hello"),
		SystemContent("user joined"),
		NickChangeContent("old-nick", "new-nick"),
	}
	for _, c := range cases {
		b, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", c, err)
		}
		var got Content
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if got.Type != c.Type {
			t.Fatalf("type = %q, want %q", got.Type, c.Type)
		}
		switch c.Type {
		case ContentNickChange:
			if *got.Nick != *c.Nick {
				t.Fatalf("nick = %+v, want %+v", got.Nick, c.Nick)
			}
		default:
			if got.Text != c.Text {
				t.Fatalf("text = %q, want %q", got.Text, c.Text)
			}
		}
	}
}

func TestMessageRoundTrip(t *testing.T) {
	roomID := types.NewRoomId()
	m := Message{
		ID:        types.NewMessageId(),
		From:      types.NewUserId(),
		Content:   TextContent("hi there"),
		FromNick:  "alice",
		RoomID:    &roomID,
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Message
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != m.ID || got.From != m.From || got.FromNick != m.FromNick {
		t.Fatalf("got %+v, want %+v", got, m)
	}
	if got.RoomID == nil || *got.RoomID != *m.RoomID {
		t.Fatalf("room id = %v, want %v", got.RoomID, m.RoomID)
	}
	if !got.IsText() {
		t.Fatal("expected IsText() to be true")
	}
}
