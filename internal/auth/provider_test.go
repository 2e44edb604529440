package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func writeToken(t *testing.T, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.token")
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestTokenLoadedFromFile(t *testing.T) {
	path := writeToken(t, "opaque-token")
	p := NewProvider(path)

	got, err := p.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got != "opaque-token" {
		t.Errorf("token = %q", got)
	}
	if !p.Authenticated() {
		t.Error("expected authenticated with opaque token")
	}
	if _, ok := p.Expiry(); ok {
		t.Error("opaque token should have no known expiry")
	}
}

func TestMissingTokenFile(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "missing.token"))

	if _, err := p.Token(); err == nil {
		t.Fatal("expected error for missing token")
	}
	if p.Authenticated() {
		t.Error("expected unauthenticated")
	}
}

func TestJWTExpiryRead(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	p := NewProvider(writeToken(t, signedToken(t, exp)))

	got, ok := p.Expiry()
	if !ok {
		t.Fatal("expected expiry from JWT")
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}
	if !p.Authenticated() {
		t.Error("expected authenticated before expiry")
	}
}

func TestExpiredJWTNotAuthenticated(t *testing.T) {
	p := NewProvider(writeToken(t, signedToken(t, time.Now().Add(-time.Minute))))

	if p.Authenticated() {
		t.Error("expected unauthenticated after expiry")
	}
}

func TestClearRemovesSession(t *testing.T) {
	path := writeToken(t, "opaque-token")
	p := NewProvider(path)
	if !p.Authenticated() {
		t.Fatal("precondition: authenticated")
	}

	if err := p.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if p.Authenticated() {
		t.Error("expected unauthenticated after clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("token file should be removed")
	}

	// Clearing again is fine.
	if err := p.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}
