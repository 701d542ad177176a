package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/store"
	"github.com/rustchat/chatd/internal/types"
)

// Service implements register/verify/login/refresh/logout, grounded
// end-to-end on
// original_source/crates/rustchat-server/src/auth/service.rs's AuthService.
type Service struct {
	store  *store.Store
	tokens *TokenIssuer
	mailer Mailer

	verifyCodeTTL time.Duration
	refreshTTL    time.Duration
}

// NewService builds a Service over an already-migrated store.
func NewService(st *store.Store, tokens *TokenIssuer, mailer Mailer, verifyCodeTTL, refreshTTL time.Duration) *Service {
	return &Service{store: st, tokens: tokens, mailer: mailer, verifyCodeTTL: verifyCodeTTL, refreshTTL: refreshTTL}
}

// validateEmail applies spec §4.2's email policy: non-empty, <=254 chars,
// exactly one '@' with non-empty sides.
func validateEmail(email string) error {
	if email == "" || len(email) > 254 {
		return apperr.New(apperr.InvalidEmail, "email must be non-empty and at most 254 characters")
	}
	at := strings.Count(email, "@")
	if at != 1 {
		return apperr.New(apperr.InvalidEmail, "email must contain exactly one '@'")
	}
	parts := strings.SplitN(email, "@", 2)
	if parts[0] == "" || parts[1] == "" {
		return apperr.New(apperr.InvalidEmail, "email local and domain parts must be non-empty")
	}
	return nil
}

// validatePassword applies spec §4.2's password policy: 6 <= len <= 128.
func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 128 {
		return apperr.New(apperr.InvalidPassword, "password must be between 6 and 128 characters")
	}
	return nil
}

// Register creates an Active, unverified account and enqueues a fresh
// verification code (spec §4.2 Registration).
func (s *Service) Register(ctx context.Context, email, password, displayName string) (store.Account, error) {
	if err := validateEmail(email); err != nil {
		return store.Account{}, err
	}
	if err := validatePassword(password); err != nil {
		return store.Account{}, err
	}

	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		return store.Account{}, apperr.New(apperr.EmailAlreadyExists, "an account with this email already exists")
	} else if !store.IsNotFound(err) {
		return store.Account{}, apperr.Wrap(apperr.StorageError, "look up account", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return store.Account{}, apperr.Wrap(apperr.StorageError, "hash password", err)
	}

	acct := store.Account{
		ID:            types.NewAccountId(),
		Email:         email,
		PasswordHash:  hash,
		Status:        store.StatusActive,
		EmailVerified: false,
		CreatedAt:     time.Now().UTC(),
	}
	if displayName != "" {
		acct.DisplayName = sql.NullString{String: displayName, Valid: true}
	}
	if err := s.store.InsertAccount(ctx, acct); err != nil {
		return store.Account{}, apperr.Wrap(apperr.StorageError, "insert account", err)
	}

	if err := s.sendVerificationCode(ctx, email, store.PurposeEmailVerification); err != nil {
		return acct, apperr.Wrap(apperr.VerificationSendFailed, "account created but verification email failed", err)
	}
	return acct, nil
}

// sendVerificationCode clears stale codes for (email, purpose) then issues
// a fresh 6-digit code with a 10-minute (configurable) TTL, grounded on
// service.rs's send_verification_code.
func (s *Service) sendVerificationCode(ctx context.Context, email string, purpose store.VerificationPurpose) error {
	if err := s.store.DeleteStaleVerifications(ctx, email, purpose); err != nil {
		return fmt.Errorf("clean up stale codes: %w", err)
	}
	code, err := randomDigits(6)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	now := time.Now().UTC()
	v := store.EmailVerification{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.verifyCodeTTL),
		CreatedAt: now,
		Used:      false,
	}
	if err := s.store.InsertVerification(ctx, v); err != nil {
		return fmt.Errorf("persist code: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, email, code, string(purpose)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// ResendVerificationCode re-issues a code for email. Per spec §7's
// user-visible behavior rule, an unknown email is treated identically to a
// known one by the caller (HTTP layer) - this method itself simply no-ops
// when the account doesn't exist, rather than erroring.
func (s *Service) ResendVerificationCode(ctx context.Context, email string) error {
	if _, err := s.store.GetAccountByEmail(ctx, email); err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return apperr.Wrap(apperr.StorageError, "look up account", err)
	}
	if err := s.sendVerificationCode(ctx, email, store.PurposeEmailVerification); err != nil {
		return apperr.Wrap(apperr.VerificationSendFailed, "failed to resend verification code", err)
	}
	return nil
}

// VerifyEmailCode validates a 6-digit code for (email, purpose); marks it
// used and, for EmailVerification, flips the account's email_verified flag
// (spec §4.2 Verification).
func (s *Service) VerifyEmailCode(ctx context.Context, email, code string, purpose store.VerificationPurpose) error {
	v, err := s.store.LatestVerification(ctx, email, code, purpose)
	if err != nil {
		if store.IsNotFound(err) {
			return apperr.New(apperr.InvalidVerificationCode, "invalid or expired verification code")
		}
		return apperr.Wrap(apperr.StorageError, "look up verification code", err)
	}
	if v.Used || time.Now().UTC().After(v.ExpiresAt) {
		return apperr.New(apperr.InvalidVerificationCode, "invalid or expired verification code")
	}
	if err := s.store.MarkVerificationUsed(ctx, email, code, purpose); err != nil {
		return apperr.Wrap(apperr.StorageError, "mark code used", err)
	}
	if purpose == store.PurposeEmailVerification {
		acct, err := s.store.GetAccountByEmail(ctx, email)
		if err != nil {
			return apperr.Wrap(apperr.StorageError, "look up account", err)
		}
		if err := s.store.SetEmailVerified(ctx, acct.ID); err != nil {
			return apperr.Wrap(apperr.StorageError, "set email verified", err)
		}
	}
	return nil
}

// Login validates credentials and updates last_login_at (spec §4.2 Login).
// email_verified is intentionally not enforced here - Open Question 4.
func (s *Service) Login(ctx context.Context, email, password string) (store.Account, error) {
	acct, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Account{}, apperr.New(apperr.AccountNotFound, "no account with this email")
		}
		return store.Account{}, apperr.Wrap(apperr.StorageError, "look up account", err)
	}
	ok, err := VerifyPassword(password, acct.PasswordHash)
	if err != nil || !ok {
		return store.Account{}, apperr.New(apperr.InvalidCredentials, "invalid email or password")
	}
	switch acct.Status {
	case store.StatusSuspended:
		return store.Account{}, apperr.New(apperr.AccountSuspended, "account is suspended")
	case store.StatusDeleted:
		return store.Account{}, apperr.New(apperr.AccountDeleted, "account is deleted")
	}

	now := time.Now().UTC()
	if err := s.store.UpdateLastLogin(ctx, acct.ID, now); err != nil {
		return store.Account{}, apperr.Wrap(apperr.StorageError, "update last login", err)
	}
	acct.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	return acct, nil
}

// TokenPair is what IssueTokens/Login callers return to the client.
type TokenPair struct {
	Access  string
	Refresh string
}

// fingerprint computes the one-way digest stored alongside a Session row.
// Open Question 5 resolution: SHA-256, not the source's non-cryptographic
// hash.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueTokens mints a fresh access/refresh pair for acct and records a new
// Session row keyed by the refresh token's fingerprint (spec §4.2 Token
// issuance).
func (s *Service) IssueTokens(ctx context.Context, acct store.Account, deviceInfo, ip string) (TokenPair, error) {
	access, refresh, err := s.tokens.IssuePair(acct.ID, acct.Email, acct.DisplayName.String)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.StorageError, "issue tokens", err)
	}
	now := time.Now().UTC()
	sess := store.Session{
		ID:                      uuid.NewString(),
		AccountID:               acct.ID,
		RefreshTokenFingerprint: fingerprint(refresh),
		CreatedAt:               now,
		ExpiresAt:               now.Add(s.refreshTTL),
		LastUsedAt:              now,
		Active:                  true,
	}
	if deviceInfo != "" {
		sess.DeviceInfo = sql.NullString{String: deviceInfo, Valid: true}
	}
	if ip != "" {
		sess.IP = sql.NullString{String: ip, Valid: true}
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return TokenPair{}, apperr.Wrap(apperr.StorageError, "persist session", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccessToken decodes and validates an access token.
func (s *Service) VerifyAccessToken(token string) (*Claims, error) {
	return s.tokens.Verify(token, TokenAccess)
}

// Refresh validates a refresh token against its Session row and mints a new
// access token, returning the same refresh token (spec §4.2 Refresh, Open
// Question 2: no rotation).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return "", err
	}
	fp := fingerprint(refreshToken)
	sess, err := s.store.GetSessionByFingerprint(ctx, fp)
	if err != nil {
		if store.IsNotFound(err) {
			return "", apperr.New(apperr.InvalidToken, "no session for this refresh token")
		}
		return "", apperr.Wrap(apperr.StorageError, "look up session", err)
	}
	now := time.Now().UTC()
	if !sess.Active {
		return "", apperr.New(apperr.InvalidToken, "session has been revoked")
	}
	if now.After(sess.ExpiresAt) {
		return "", apperr.New(apperr.TokenExpired, "session has expired")
	}

	acctID, err := claims.AccountIDOf()
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidToken, "malformed subject claim", err)
	}
	acct, err := s.store.GetAccountByID(ctx, acctID)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageError, "look up account", err)
	}

	if err := s.store.TouchSession(ctx, sess.ID, now); err != nil {
		return "", apperr.Wrap(apperr.StorageError, "touch session", err)
	}
	access, _, err := s.tokens.IssuePair(acct.ID, acct.Email, acct.DisplayName.String)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageError, "issue access token", err)
	}
	return access, nil
}

// Logout deactivates the session matching refreshToken.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	fp := fingerprint(refreshToken)
	sess, err := s.store.GetSessionByFingerprint(ctx, fp)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return apperr.Wrap(apperr.StorageError, "look up session", err)
	}
	return s.store.DeactivateSession(ctx, sess.ID)
}

// LogoutAllDevices deactivates every session belonging to account.
func (s *Service) LogoutAllDevices(ctx context.Context, account types.AccountId) error {
	return s.store.DeactivateAllSessions(ctx, account)
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
