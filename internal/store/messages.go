package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustchat/chatd/internal/types"
	"github.com/rustchat/chatd/internal/wire"
)

// messageRow is the flat on-disk shape a wire.Message is folded into and
// read back from, grounded on
// original_source/crates/rustchat-core/src/database.rs's MessageRecord.
type messageRow struct {
	ID          string    `db:"id"`
	FromUserID  string    `db:"from_user_id"`
	ContentType string    `db:"content_type"`
	ContentData string    `db:"content_data"`
	Timestamp   time.Time `db:"timestamp"`
	FromNick    *string   `db:"from_nick"`
	RoomID      *string   `db:"room_id"`
	CreatedAt   time.Time `db:"created_at"`
}

func toRow(m wire.Message) (messageRow, error) {
	var data string
	switch m.Content.Type {
	case wire.ContentNickChange:
		b, err := json.Marshal(m.Content.Nick)
		if err != nil {
			return messageRow{}, err
		}
		data = string(b)
	default:
		data = m.Content.Text
	}
	row := messageRow{
		ID:          m.ID.String(),
		FromUserID:  m.From.String(),
		ContentType: string(m.Content.Type),
		ContentData: data,
		Timestamp:   m.Timestamp,
		CreatedAt:   time.Now().UTC(),
	}
	if m.FromNick != "" {
		n := m.FromNick
		row.FromNick = &n
	}
	if m.RoomID != nil {
		r := m.RoomID.String()
		row.RoomID = &r
	}
	return row, nil
}

func fromRow(r messageRow) (wire.Message, error) {
	id, err := types.ParseMessageId(r.ID)
	if err != nil {
		return wire.Message{}, fmt.Errorf("parse message id: %w", err)
	}
	from, err := types.ParseUserId(r.FromUserID)
	if err != nil {
		return wire.Message{}, fmt.Errorf("parse from user id: %w", err)
	}
	var content wire.Content
	switch wire.ContentType(r.ContentType) {
	case wire.ContentNickChange:
		var n wire.NickChangeBody
		if err := json.Unmarshal([]byte(r.ContentData), &n); err != nil {
			return wire.Message{}, fmt.Errorf("parse nick change: %w", err)
		}
		content = wire.Content{Type: wire.ContentNickChange, Nick: &n}
	case wire.ContentSystem:
		content = wire.SystemContent(r.ContentData)
	default:
		content = wire.TextContent(r.ContentData)
	}
	m := wire.Message{
		ID:        id,
		From:      from,
		Content:   content,
		Timestamp: r.Timestamp,
	}
	if r.FromNick != nil {
		m.FromNick = *r.FromNick
	}
	if r.RoomID != nil {
		rid, err := types.ParseRoomId(*r.RoomID)
		if err != nil {
			return wire.Message{}, fmt.Errorf("parse room id: %w", err)
		}
		m.RoomID = &rid
	}
	return m, nil
}

// Append inserts m, or silently replaces an existing row with the same id -
// idempotent on id per spec invariant 6, grounded on database.rs's
// "INSERT OR REPLACE" save_message.
func (s *Store) Append(ctx context.Context, m wire.Message) error {
	row, err := toRow(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO messages
			(id, from_user_id, content_type, content_data, timestamp, from_nick, room_id, created_at)
		VALUES
			(:id, :from_user_id, :content_type, :content_data, :timestamp, :from_nick, :room_id, :created_at)
	`, row)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns the limit most recent messages across all channels,
// oldest-first (queried newest-first, then reversed - database.rs's
// get_recent_messages pattern).
func (s *Store) Recent(ctx context.Context, limit int) ([]wire.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, from_user_id, content_type, content_data, timestamp, from_nick, room_id, created_at
		 FROM messages ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return reverseRows(rows)
}

// ByUser returns the limit most recent messages sent by user, oldest-first.
func (s *Store) ByUser(ctx context.Context, user types.UserId, limit int) ([]wire.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, from_user_id, content_type, content_data, timestamp, from_nick, room_id, created_at
		 FROM messages WHERE from_user_id = ? ORDER BY timestamp DESC LIMIT ?`, user.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("messages by user: %w", err)
	}
	return reverseRows(rows)
}

// ByRoom returns up to limit messages for room, applying offset, oldest-first.
func (s *Store) ByRoom(ctx context.Context, room types.RoomId, limit, offset int) ([]wire.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, from_user_id, content_type, content_data, timestamp, from_nick, room_id, created_at
		 FROM messages WHERE room_id = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		room.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("messages by room: %w", err)
	}
	return reverseRows(rows)
}

// Count returns the total number of persisted messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// PurgeKeeping deletes every message except the n newest.
func (s *Store) PurgeKeeping(ctx context.Context, n int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE id NOT IN (
			SELECT id FROM messages ORDER BY timestamp DESC LIMIT ?
		)`, n)
	if err != nil {
		return fmt.Errorf("purge messages: %w", err)
	}
	return nil
}

func reverseRows(rows []messageRow) ([]wire.Message, error) {
	out := make([]wire.Message, len(rows))
	for i, r := range rows {
		m, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out[len(rows)-1-i] = m
	}
	return out, nil
}
