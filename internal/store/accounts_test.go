package store

import (
	"context"
	"testing"
	"time"

	"github.com/rustchat/chatd/internal/types"
)

func TestInsertAndGetAccount(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	acct := Account{
		ID:           types.NewAccountId(),
		Email:        "holly@example.com",
		PasswordHash: "hash",
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.InsertAccount(ctx, acct); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}

	got, err := st.GetAccountByEmail(ctx, "holly@example.com")
	if err != nil {
		t.Fatalf("GetAccountByEmail: %v", err)
	}
	if got.ID != acct.ID {
		t.Fatalf("id = %s, want %s", got.ID, acct.ID)
	}

	byID, err := st.GetAccountByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetAccountByID: %v", err)
	}
	if byID.Email != acct.Email {
		t.Fatalf("email = %q, want %q", byID.Email, acct.Email)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.GetAccountByEmail(context.Background(), "nobody@example.com"); !IsNotFound(err) {
		t.Fatalf("expected IsNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	acct := Account{ID: types.NewAccountId(), Email: "ivy@example.com", PasswordHash: "h", Status: StatusActive, CreatedAt: time.Now().UTC()}
	if err := st.InsertAccount(ctx, acct); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}

	now := time.Now().UTC()
	sess := Session{
		ID: "sess-1", AccountID: acct.ID, RefreshTokenFingerprint: "fp-1",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour), LastUsedAt: now, Active: true,
	}
	if err := st.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	got, err := st.GetSessionByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("GetSessionByFingerprint: %v", err)
	}
	if !got.Active {
		t.Fatal("expected a freshly inserted session to be active")
	}

	if err := st.DeactivateSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeactivateSession: %v", err)
	}
	got, err = st.GetSessionByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("GetSessionByFingerprint after deactivate: %v", err)
	}
	if got.Active {
		t.Fatal("expected the session to be inactive after DeactivateSession")
	}
}
