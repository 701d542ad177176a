package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsAndCodeOf(t *testing.T) {
	err := New(AccountNotFound, "no such account")
	if !Is(err, AccountNotFound) {
		t.Fatal("expected Is to match the error's own code")
	}
	if Is(err, InvalidToken) {
		t.Fatal("expected Is to reject a mismatched code")
	}
	if CodeOf(err) != AccountNotFound {
		t.Fatalf("CodeOf = %q, want %q", CodeOf(err), AccountNotFound)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StorageError, "insert failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through Wrap to its cause")
	}
}

func TestCodeOfNonAppError(t *testing.T) {
	if CodeOf(fmt.Errorf("plain error")) != "" {
		t.Fatal("expected CodeOf to return empty for a non-apperr error")
	}
}
