// Package store is the sqlx-backed SQLite persistence layer for messages,
// accounts, email verification codes and refresh-token sessions. The
// query-binding style (sqlx.DB, struct scans, named-parameter exec) follows
// the teacher's own use of jmoiron/sqlx as its database layer; the concrete
// schema and query semantics are grounded on
// original_source/crates/rustchat-core/src/database.rs and
// original_source/crates/rustchat-server/src/auth/service.rs.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a single sqlx.DB pool shared by the Message Store and Account
// Store, mirroring the teacher's single store.Store wrapping one adapter
// for every table.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and applies
// the idempotent schema migrations.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver: single writer, serialize access
	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	display_name TEXT,
	status TEXT NOT NULL,
	email_verified INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	last_login_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);

CREATE TABLE IF NOT EXISTS email_verifications (
	email TEXT NOT NULL,
	code TEXT NOT NULL,
	purpose TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	used INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (email, code, purpose)
);
CREATE INDEX IF NOT EXISTS idx_email_verifications_email ON email_verifications(email);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	refresh_token_fingerprint TEXT NOT NULL,
	device_info TEXT,
	ip TEXT,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	last_used_at DATETIME NOT NULL,
	active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_sessions_account_id ON sessions(account_id);
CREATE INDEX IF NOT EXISTS idx_sessions_fingerprint ON sessions(refresh_token_fingerprint);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	from_user_id TEXT NOT NULL,
	content_type TEXT NOT NULL,
	content_data TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	from_nick TEXT,
	room_id TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_messages_from_user_id ON messages(from_user_id);
CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id);
`

// Migrate applies the schema. Every statement is idempotent
// (CREATE TABLE/INDEX IF NOT EXISTS), so it is safe to call on every
// startup, matching the teacher's tinode-db bootstrapping CLI's approach.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
