package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager([]byte("test-secret"), "outbreak", time.Hour, now)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestMintAndVerify(t *testing.T) {
	m := newTestManager(t, nil)

	token, err := m.Mint("player@example.com")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	email, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if email != "player@example.com" {
		t.Errorf("expected original email, got %q", email)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t, nil)

	token, err := m.Mint("player@example.com")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clock := time.Now()
	m := newTestManager(t, func() time.Time { return clock })

	token, err := m.Mint("player@example.com")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	clock = clock.Add(2 * time.Hour)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager([]byte("other-secret"), "outbreak", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := other.Mint("player@example.com")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}
