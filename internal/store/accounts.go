package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustchat/chatd/internal/types"
)

// AccountStatus mirrors spec §3's Account.status enum.
type AccountStatus string

const (
	StatusActive    AccountStatus = "Active"
	StatusSuspended AccountStatus = "Suspended"
	StatusDeleted   AccountStatus = "Deleted"
)

// Account is the persisted account row (spec §3).
type Account struct {
	ID            types.AccountId `db:"id"`
	Email         string          `db:"email"`
	PasswordHash  string          `db:"password_hash"`
	DisplayName   sql.NullString  `db:"display_name"`
	Status        AccountStatus   `db:"status"`
	EmailVerified bool            `db:"email_verified"`
	CreatedAt     time.Time       `db:"created_at"`
	LastLoginAt   sql.NullTime    `db:"last_login_at"`
}

// VerificationPurpose mirrors spec §3's EmailVerification.purpose enum.
type VerificationPurpose string

const (
	PurposeEmailVerification VerificationPurpose = "EmailVerification"
	PurposePasswordReset     VerificationPurpose = "PasswordReset"
	PurposeLoginVerification VerificationPurpose = "LoginVerification"
)

// EmailVerification is the persisted verification-code row (spec §3).
type EmailVerification struct {
	Email     string              `db:"email"`
	Code      string              `db:"code"`
	Purpose   VerificationPurpose `db:"purpose"`
	ExpiresAt time.Time           `db:"expires_at"`
	CreatedAt time.Time           `db:"created_at"`
	Used      bool                `db:"used"`
}

// Session is the persisted refresh-token session row (spec §3).
type Session struct {
	ID                      string          `db:"id"`
	AccountID               types.AccountId `db:"account_id"`
	RefreshTokenFingerprint string          `db:"refresh_token_fingerprint"`
	DeviceInfo              sql.NullString  `db:"device_info"`
	IP                      sql.NullString  `db:"ip"`
	CreatedAt               time.Time       `db:"created_at"`
	ExpiresAt               time.Time       `db:"expires_at"`
	LastUsedAt              time.Time       `db:"last_used_at"`
	Active                  bool            `db:"active"`
}

// ErrNoRows is returned by lookups that find nothing, callers translate it
// into the appropriate apperr.Code.
var ErrNoRows = sql.ErrNoRows

// InsertAccount inserts a new account row.
func (s *Store) InsertAccount(ctx context.Context, a Account) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, display_name, status, email_verified, created_at, last_login_at)
		VALUES (:id, :email, :password_hash, :display_name, :status, :email_verified, :created_at, :last_login_at)
	`, a)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccountByEmail looks up an account by its unique email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := s.db.GetContext(ctx, &a, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// GetAccountByID looks up an account by its id.
func (s *Store) GetAccountByID(ctx context.Context, id types.AccountId) (Account, error) {
	var a Account
	err := s.db.GetContext(ctx, &a, `SELECT * FROM accounts WHERE id = ?`, id.String())
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// SetEmailVerified marks id's account as verified.
func (s *Store) SetEmailVerified(ctx context.Context, id types.AccountId) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET email_verified = 1 WHERE id = ?`, id.String())
	return err
}

// UpdateLastLogin stamps last_login_at to when.
func (s *Store) UpdateLastLogin(ctx context.Context, id types.AccountId, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET last_login_at = ? WHERE id = ?`, when, id.String())
	return err
}

// DeleteStaleVerifications removes used, expired, or previously-issued codes
// for (email, purpose) before a fresh one is issued, grounded on
// service.rs's send_verification_code cleanup-first behavior.
func (s *Store) DeleteStaleVerifications(ctx context.Context, email string, purpose VerificationPurpose) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM email_verifications WHERE email = ? AND purpose = ?`, email, purpose)
	return err
}

// InsertVerification inserts a fresh verification code row.
func (s *Store) InsertVerification(ctx context.Context, v EmailVerification) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO email_verifications (email, code, purpose, expires_at, created_at, used)
		VALUES (:email, :code, :purpose, :expires_at, :created_at, :used)
	`, v)
	return err
}

// LatestVerification returns the most recently created matching row.
func (s *Store) LatestVerification(ctx context.Context, email, code string, purpose VerificationPurpose) (EmailVerification, error) {
	var v EmailVerification
	err := s.db.GetContext(ctx, &v, `
		SELECT * FROM email_verifications
		WHERE email = ? AND code = ? AND purpose = ?
		ORDER BY created_at DESC LIMIT 1
	`, email, code, purpose)
	if err != nil {
		return EmailVerification{}, err
	}
	return v, nil
}

// MarkVerificationUsed marks a code used; idempotent (spec §3).
func (s *Store) MarkVerificationUsed(ctx context.Context, email, code string, purpose VerificationPurpose) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_verifications SET used = 1 WHERE email = ? AND code = ? AND purpose = ?`,
		email, code, purpose)
	return err
}

// InsertSession inserts a new refresh-token session row.
func (s *Store) InsertSession(ctx context.Context, sess Session) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, account_id, refresh_token_fingerprint, device_info, ip, created_at, expires_at, last_used_at, active)
		VALUES (:id, :account_id, :refresh_token_fingerprint, :device_info, :ip, :created_at, :expires_at, :last_used_at, :active)
	`, sess)
	return err
}

// GetSessionByFingerprint looks up a session by refresh-token fingerprint,
// active or not; callers check Active and ExpiresAt themselves.
func (s *Store) GetSessionByFingerprint(ctx context.Context, fp string) (Session, error) {
	var sess Session
	err := s.db.GetContext(ctx, &sess,
		`SELECT * FROM sessions WHERE refresh_token_fingerprint = ?`, fp)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// TouchSession updates last_used_at for a session, last-writer-wins under
// concurrent refreshes (spec §4.2 concurrency note).
func (s *Store) TouchSession(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_used_at = ? WHERE id = ?`, when, id)
	return err
}

// DeactivateSession sets active=false on a single session (logout).
func (s *Store) DeactivateSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET active = 0 WHERE id = ?`, id)
	return err
}

// DeactivateAllSessions sets active=false on every session for account
// (logout_all_devices).
func (s *Store) DeactivateAllSessions(ctx context.Context, account types.AccountId) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET active = 0 WHERE account_id = ?`, account.String())
	return err
}

// IsNotFound reports whether err is the "no matching row" sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
