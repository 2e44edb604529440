// Package guardian enforces the inactivity timeout on the signed-in session.
package guardian

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the guardian's verdict for the current instant.
type State int

const (
	StateActive State = iota
	StateWarning
	StateExpired
)

// Verdict pairs a state with the time left before forced expiry. Remaining
// is meaningful for StateWarning and StateActive.
type Verdict struct {
	State     State
	Remaining time.Duration
}

// TokenExpiry exposes the session token's own expiry, if known. The zero
// time means no token-side deadline.
type TokenExpiry interface {
	Expiry() time.Time
}

// SessionClearer wipes the stored session on expiry.
type SessionClearer interface {
	Clear() error
}

// Guardian tracks user activity and decides when the session must end.
// The deadline is inactivity-based but never extends past the token's own
// expiry.
type Guardian struct {
	timeout time.Duration
	warning time.Duration
	tokens  TokenExpiry
	clearer SessionClearer
	log     *zap.Logger
	now     func() time.Time

	// flush hooks run before the session is cleared so queued work is not
	// stranded behind a dead token.
	flushHooks []func(context.Context) error

	mu           sync.Mutex
	lastActivity time.Time
	expired      bool
}

// New wires a guardian. The clock starts at construction time.
func New(timeout, warning time.Duration, tokens TokenExpiry, clearer SessionClearer, log *zap.Logger) *Guardian {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Guardian{
		timeout: timeout,
		warning: warning,
		tokens:  tokens,
		clearer: clearer,
		log:     log,
		now:     time.Now,
	}
	g.lastActivity = g.now()
	return g
}

// SetClock overrides the clock (tests) and restamps last activity.
func (g *Guardian) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	g.lastActivity = now()
}

// OnExpire registers a flush hook run during Expire, in registration order.
func (g *Guardian) OnExpire(hook func(context.Context) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flushHooks = append(g.flushHooks, hook)
}

// NotifyActivity restamps the inactivity clock. Called on every keypress.
func (g *Guardian) NotifyActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return
	}
	g.lastActivity = g.now()
}

// Evaluate returns the current verdict. Once expired, the verdict stays
// expired until a new session starts a new guardian.
func (g *Guardian) Evaluate() Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.expired {
		return Verdict{State: StateExpired}
	}

	deadline := g.deadlineLocked()
	remaining := deadline.Sub(g.now())
	switch {
	case remaining <= 0:
		return Verdict{State: StateExpired}
	case remaining <= g.warning:
		return Verdict{State: StateWarning, Remaining: remaining}
	default:
		return Verdict{State: StateActive, Remaining: remaining}
	}
}

// Expire runs the flush hooks, clears the stored session, and latches the
// expired state. Hook failures are logged and do not stop the expiry;
// durable queues survive for the next sign-in.
func (g *Guardian) Expire(ctx context.Context) error {
	g.mu.Lock()
	if g.expired {
		g.mu.Unlock()
		return nil
	}
	g.expired = true
	hooks := make([]func(context.Context) error, len(g.flushHooks))
	copy(hooks, g.flushHooks)
	g.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			g.log.Warn("expiry flush hook failed", zap.Error(err))
		}
	}

	if g.clearer != nil {
		if err := g.clearer.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	return nil
}

// deadlineLocked is lastActivity+timeout, capped by the token's own expiry.
func (g *Guardian) deadlineLocked() time.Time {
	deadline := g.lastActivity.Add(g.timeout)
	if g.tokens != nil {
		if exp := g.tokens.Expiry(); !exp.IsZero() && exp.Before(deadline) {
			deadline = exp
		}
	}
	return deadline
}
