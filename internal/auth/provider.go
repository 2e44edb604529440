package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession means no token is available; the user must sign in.
var ErrNoSession = errors.New("no active session")

// Provider loads the bearer session token from a file and answers
// authentication queries. The token is opaque except for its expiry claim,
// which is read without signature verification — the server remains the
// authority on validity.
type Provider struct {
	mu        sync.Mutex
	tokenPath string
	token     string
	expiry    time.Time
	loaded    bool
}

// NewProvider creates a Provider reading from tokenPath.
func NewProvider(tokenPath string) *Provider {
	return &Provider{tokenPath: tokenPath}
}

// Token returns the session token, loading it from disk on first use.
func (p *Provider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return "", err
	}
	if p.token == "" {
		return "", ErrNoSession
	}
	return p.token, nil
}

// Authenticated reports whether a non-expired session token exists.
func (p *Provider) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil || p.token == "" {
		return false
	}
	if !p.expiry.IsZero() && time.Now().After(p.expiry) {
		return false
	}
	return true
}

// Expiry returns the token's expiry claim if one could be read.
func (p *Provider) Expiry() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return time.Time{}, false
	}
	return p.expiry, !p.expiry.IsZero()
}

// Clear wipes the local session state: in-memory token and token file.
// Called on sign-out and forced session expiry.
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.expiry = time.Time{}
	p.loaded = true

	err := os.Remove(p.tokenPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// Save writes a new session token to disk and adopts it.
func (p *Provider) Save(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0o755); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(p.tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	p.adoptLocked(token)
	return nil
}

func (p *Provider) loadLocked() error {
	if p.loaded {
		return nil
	}
	p.loaded = true

	data, err := os.ReadFile(p.tokenPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	p.adoptLocked(strings.TrimSpace(string(data)))
	return nil
}

func (p *Provider) adoptLocked(token string) {
	p.token = token
	p.expiry = time.Time{}

	if token == "" {
		return
	}

	// Opaque (non-JWT) tokens are fine; they just have no known expiry.
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		p.expiry = exp.Time
	}
}
