package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/store"
)

func newTestService(t *testing.T) (*Service, *NopMailer) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tokens := NewTokenIssuer("test-secret", 15*time.Minute, 7*24*time.Hour)
	mailer := NewNopMailer()
	return NewService(st, tokens, mailer, 10*time.Minute, 7*24*time.Hour), mailer
}

func TestRegisterLoginVerifyFlow(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newTestService(t)

	acct, err := svc.Register(ctx, "dana@example.com", "hunter22", "Dana")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.EmailVerified {
		t.Fatal("a freshly registered account must not be pre-verified")
	}

	var sent SentMail
	select {
	case sent = <-mailer.Sent:
	case <-time.After(time.Second):
		t.Fatal("expected a verification code to have been sent")
	}
	if sent.Email != "dana@example.com" {
		t.Fatalf("sent to %q, want dana@example.com", sent.Email)
	}

	// Login succeeds even before the email is verified (Open Question 4).
	if _, err := svc.Login(ctx, "dana@example.com", "hunter22"); err != nil {
		t.Fatalf("Login before verification: %v", err)
	}

	if err := svc.VerifyEmailCode(ctx, "dana@example.com", sent.Code, store.PurposeEmailVerification); err != nil {
		t.Fatalf("VerifyEmailCode: %v", err)
	}

	// A used code must not verify again.
	if err := svc.VerifyEmailCode(ctx, "dana@example.com", sent.Code, store.PurposeEmailVerification); !apperr.Is(err, apperr.InvalidVerificationCode) {
		t.Fatalf("expected InvalidVerificationCode re-using a used code, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, "evan@example.com", "password1", ""); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(ctx, "evan@example.com", "password2", ""); !apperr.Is(err, apperr.EmailAlreadyExists) {
		t.Fatalf("expected EmailAlreadyExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, "frank@example.com", "right-password", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "frank@example.com", "wrong-password"); !apperr.Is(err, apperr.InvalidCredentials) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
}

func TestIssueRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	acct, err := svc.Register(ctx, "gina@example.com", "password123", "Gina")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tokens, err := svc.IssueTokens(ctx, acct, "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	newAccess, err := svc.Refresh(ctx, tokens.Refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newAccess == "" {
		t.Fatal("expected a non-empty refreshed access token")
	}

	if err := svc.Logout(ctx, tokens.Refresh); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, tokens.Refresh); !apperr.Is(err, apperr.InvalidToken) {
		t.Fatalf("expected InvalidToken refreshing after logout, got %v", err)
	}
}

func TestResendCodeUnknownEmailNoops(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newTestService(t)

	if err := svc.ResendVerificationCode(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("ResendVerificationCode: %v", err)
	}
	select {
	case <-mailer.Sent:
		t.Fatal("expected no mail to be sent for an unknown email")
	default:
	}
}
