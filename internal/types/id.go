// Package types holds the identifier types shared by every other package:
// UserId, MessageId, RoomId and AccountId are all 128-bit random values
// rendered on the wire and in storage as canonical hyphenated hex.
package types

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// UserId identifies a connected session's identity, authenticated or not.
type UserId uuid.UUID

// MessageId identifies a single persisted message.
type MessageId uuid.UUID

// RoomId identifies a room.
type RoomId uuid.UUID

// AccountId identifies a registered account. For authenticated sessions
// AccountId and UserId are equal by construction.
type AccountId uuid.UUID

// NewUserId mints a fresh random user id, used for unauthenticated sessions.
func NewUserId() UserId { return UserId(uuid.New()) }

// NewMessageId mints a fresh random message id.
func NewMessageId() MessageId { return MessageId(uuid.New()) }

// NewRoomId mints a fresh random room id.
func NewRoomId() RoomId { return RoomId(uuid.New()) }

// NewAccountId mints a fresh random account id.
func NewAccountId() AccountId { return AccountId(uuid.New()) }

func (id UserId) String() string    { return uuid.UUID(id).String() }
func (id MessageId) String() string { return uuid.UUID(id).String() }
func (id RoomId) String() string    { return uuid.UUID(id).String() }
func (id AccountId) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the id is the zero value (never a valid minted id).
func (id UserId) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RoomId) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AccountId) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// ParseUserId parses a canonical hyphenated-hex string.
func ParseUserId(s string) (UserId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserId{}, fmt.Errorf("user id: %w", err)
	}
	return UserId(u), nil
}

// ParseRoomId parses a canonical hyphenated-hex string.
func ParseRoomId(s string) (RoomId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RoomId{}, fmt.Errorf("room id: %w", err)
	}
	return RoomId(u), nil
}

// ParseAccountId parses a canonical hyphenated-hex string.
func ParseAccountId(s string) (AccountId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountId{}, fmt.Errorf("account id: %w", err)
	}
	return AccountId(u), nil
}

// ParseMessageId parses a canonical hyphenated-hex string.
func ParseMessageId(s string) (MessageId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MessageId{}, fmt.Errorf("message id: %w", err)
	}
	return MessageId(u), nil
}

// AccountIdToUserId reuses an account id as the session's user id, the rule
// for authenticated sessions (spec §3: "for authenticated sessions they are
// equal by construction").
func AccountIdToUserId(a AccountId) UserId { return UserId(a) }

// The following MarshalJSON/UnmarshalJSON/Scan/Value methods follow the
// typed-id-with-custom-codec idiom the teacher uses for its own Uid type,
// generalized to the hyphenated-hex representation this spec requires.

func (id UserId) MarshalJSON() ([]byte, error)    { return []byte(`"` + id.String() + `"`), nil }
func (id MessageId) MarshalJSON() ([]byte, error) { return []byte(`"` + id.String() + `"`), nil }
func (id RoomId) MarshalJSON() ([]byte, error)    { return []byte(`"` + id.String() + `"`), nil }
func (id AccountId) MarshalJSON() ([]byte, error) { return []byte(`"` + id.String() + `"`), nil }

func (id *UserId) UnmarshalJSON(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(bytes.Trim(b, `"`)); err != nil {
		return err
	}
	*id = UserId(u)
	return nil
}

func (id *MessageId) UnmarshalJSON(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(bytes.Trim(b, `"`)); err != nil {
		return err
	}
	*id = MessageId(u)
	return nil
}

func (id *RoomId) UnmarshalJSON(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(bytes.Trim(b, `"`)); err != nil {
		return err
	}
	*id = RoomId(u)
	return nil
}

func (id *AccountId) UnmarshalJSON(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(bytes.Trim(b, `"`)); err != nil {
		return err
	}
	*id = AccountId(u)
	return nil
}

// Scan/Value let these ids pass through sqlx as plain TEXT columns.

func (id MessageId) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }
func (id RoomId) Value() (driver.Value, error)     { return uuid.UUID(id).String(), nil }
func (id AccountId) Value() (driver.Value, error)  { return uuid.UUID(id).String(), nil }
func (id UserId) Value() (driver.Value, error)     { return uuid.UUID(id).String(), nil }

func (id *MessageId) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = MessageId(u)
	return nil
}

func (id *RoomId) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = RoomId(u)
	return nil
}

func (id *AccountId) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = AccountId(u)
	return nil
}

func (id *UserId) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = UserId(u)
	return nil
}

func scanUUID(src interface{}) (uuid.UUID, error) {
	switch v := src.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		return uuid.Parse(string(v))
	case nil:
		return uuid.Nil, nil
	default:
		return uuid.Nil, fmt.Errorf("cannot scan %T into uuid", src)
	}
}
