// Package wire defines the JSON envelopes exchanged over the realtime
// session transport: client frames decoded by the Session Manager's reader
// and server events encoded by its writer, plus the Message content
// variants every Message carries. The tagged-union shape ("type"/"data" for
// client frames, "event"/"data" for server events) is grounded on
// original_source/crates/rustchat-server/src/main.rs's ClientMessage/WsEvent
// enums, which this spec's external interface (SPEC_FULL.md §6) pins
// verbatim.
package wire

import (
	"encoding/json"
	"time"

	"github.com/rustchat/chatd/internal/types"
)

// ContentType discriminates a Message's content variant.
type ContentType string

const (
	ContentText       ContentType = "Text"
	ContentSystem     ContentType = "System"
	ContentNickChange ContentType = "NickChange"
)

// NickChangeBody is the structured payload of a NickChange message.
type NickChangeBody struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Content is the tagged union carried by every Message: exactly one of
// Text, System or NickChange is meaningful, selected by Type.
type Content struct {
	Type ContentType     `json:"type"`
	Text string          `json:"data,omitempty"`
	Nick *NickChangeBody `json:"-"`
}

// MarshalJSON emits {"type":..., "data":...} with "data" shaped per variant.
func (c Content) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type ContentType `json:"type"`
		Data interface{} `json:"data"`
	}
	w := wire{Type: c.Type}
	switch c.Type {
	case ContentNickChange:
		w.Data = c.Nick
	default:
		w.Data = c.Text
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the "data" field according to "type".
func (c *Content) UnmarshalJSON(b []byte) error {
	var w struct {
		Type ContentType     `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	c.Type = w.Type
	switch w.Type {
	case ContentNickChange:
		var n NickChangeBody
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &n); err != nil {
				return err
			}
		}
		c.Nick = &n
	default:
		var s string
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &s); err != nil {
				return err
			}
		}
		c.Text = s
	}
	return nil
}

// TextContent builds a Text variant.
func TextContent(text string) Content { return Content{Type: ContentText, Text: text} }

// SystemContent builds a System variant.
func SystemContent(text string) Content { return Content{Type: ContentSystem, Text: text} }

// NickChangeContent builds a NickChange variant.
func NickChangeContent(old, nw string) Content {
	return Content{Type: ContentNickChange, Nick: &NickChangeBody{Old: old, New: nw}}
}

// Message is the wire and persisted shape of a chat message (spec §3).
type Message struct {
	ID        types.MessageId        `json:"id"`
	From      types.UserId           `json:"from"`
	Content   Content                `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	FromNick  string                 `json:"from_nick,omitempty"`
	RoomID    *types.RoomId          `json:"room_id,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// IsText reports whether m carries a Text variant.
func (m Message) IsText() bool { return m.Content.Type == ContentText }

// IsSystem reports whether m carries a System variant.
func (m Message) IsSystem() bool { return m.Content.Type == ContentSystem }

// IsNickChange reports whether m carries a NickChange variant.
func (m Message) IsNickChange() bool { return m.Content.Type == ContentNickChange }
