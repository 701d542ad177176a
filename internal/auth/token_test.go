package auth

import (
	"testing"
	"time"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/types"
)

func TestIssuePairAndVerify(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Minute, time.Hour)
	acct := types.NewAccountId()

	access, refresh, err := ti.IssuePair(acct, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := ti.Verify(access, TokenAccess)
	if err != nil {
		t.Fatalf("Verify(access): %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("email = %q, want alice@example.com", claims.Email)
	}
	got, err := claims.AccountIDOf()
	if err != nil {
		t.Fatalf("AccountIDOf: %v", err)
	}
	if got != acct {
		t.Fatalf("subject = %s, want %s", got, acct)
	}

	if _, err := ti.Verify(refresh, TokenAccess); !apperr.Is(err, apperr.InvalidToken) {
		t.Fatalf("expected InvalidToken verifying a refresh token as access, got %v", err)
	}
	if _, err := ti.Verify(access, TokenRefresh); !apperr.Is(err, apperr.InvalidToken) {
		t.Fatalf("expected InvalidToken verifying an access token as refresh, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	ti := NewTokenIssuer("test-secret", -time.Second, time.Hour)
	access, _, err := ti.IssuePair(types.NewAccountId(), "bob@example.com", "")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := ti.Verify(access, TokenAccess); !apperr.Is(err, apperr.TokenExpired) {
		t.Fatalf("expected TokenExpired, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Minute, time.Hour)
	other := NewTokenIssuer("secret-b", time.Minute, time.Hour)

	access, _, err := issuer.IssuePair(types.NewAccountId(), "carol@example.com", "")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := other.Verify(access, TokenAccess); !apperr.Is(err, apperr.InvalidToken) {
		t.Fatalf("expected InvalidToken for a token signed with a different secret, got %v", err)
	}
}
