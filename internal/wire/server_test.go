package wire

import (
	"encoding/json"
	"testing"

	"github.com/rustchat/chatd/internal/types"
)

func TestEncodePingOmitsData(t *testing.T) {
	b, err := Encode(PingEvent{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, hasData := raw["data"]; hasData {
		t.Fatalf("expected no \"data\" key in a Ping envelope, got %s", b)
	}
	if string(raw["event"]) != `"Ping"` {
		t.Fatalf("event = %s, want \"Ping\"", raw["event"])
	}
}

func TestEncodeConnectedEventCarriesData(t *testing.T) {
	uid := types.NewUserId()
	b, err := Encode(ConnectedEvent{UserID: uid})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var env struct {
		Event string `json:"event"`
		Data  struct {
			UserID string `json:"user_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Event != EventConnected {
		t.Fatalf("event = %q, want %q", env.Event, EventConnected)
	}
	if env.Data.UserID != uid.String() {
		t.Fatalf("user_id = %q, want %q", env.Data.UserID, uid.String())
	}
}
