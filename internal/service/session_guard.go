package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/config"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/events"
	"github.com/jionu102/codeit-image-post-auth/internal/observability"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
)

// SessionGuard keeps at most one live server-side session per principal.
// A session replaced by a newer login is kept as a tombstone for a while so
// its holder learns why it was signed out.
type SessionGuard struct {
	store        repository.SessionStore
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	idleTimeout  time.Duration
	tombstoneTTL time.Duration
	now          func() time.Time
	newID        func() string
}

// SessionGuardOption customizes a SessionGuard.
type SessionGuardOption func(*SessionGuard)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionGuardOption {
	return func(g *SessionGuard) { g.now = now }
}

// WithSessionIDGenerator overrides how session ids are minted.
func WithSessionIDGenerator(newID func() string) SessionGuardOption {
	return func(g *SessionGuard) { g.newID = newID }
}

// SessionGuardDependencies bundles collaborators for the guard.
type SessionGuardDependencies struct {
	Store      repository.SessionStore
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewSessionGuard builds the guard.
func NewSessionGuard(cfg config.AuthConfig, deps SessionGuardDependencies, opts ...SessionGuardOption) *SessionGuard {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &SessionGuard{
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger,
		idleTimeout:  cfg.SessionIdleTimeout,
		tombstoneTTL: cfg.SessionTombstoneTTL,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Login opens a session for an authenticated principal. The presented
// session id is never reused: it is discarded and a fresh one is minted.
func (g *SessionGuard) Login(ctx context.Context, principal *domain.Principal, presentedSessionID string) (domain.SessionRecord, error) {
	if presentedSessionID != "" {
		if err := g.store.Delete(ctx, presentedSessionID); err != nil {
			return domain.SessionRecord{}, fmt.Errorf("discard presented session: %w", err)
		}
	}

	now := g.now()
	rec := domain.SessionRecord{
		ID:          g.newID(),
		PrincipalID: principal.ID,
		Username:    principal.Username,
		Role:        principal.Role,
		State:       domain.SessionStateActive,
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(g.idleTimeout),
	}

	evictedID, err := g.store.Replace(ctx, rec, now.Add(g.tombstoneTTL))
	if err != nil {
		return domain.SessionRecord{}, err
	}

	g.metrics.RecordLogin("session", "success")
	g.publish(ctx, events.EventSessionCreated, rec, events.SessionPayload{SessionID: rec.ID, ExpiresAt: rec.ExpiresAt})
	if evictedID != "" {
		g.metrics.RecordEviction()
		g.publishAsync(ctx, events.EventSessionEvicted, rec, events.SessionEvictedPayload{
			EvictedSessionID:     evictedID,
			ReplacementSessionID: rec.ID,
		})
	}
	return rec, nil
}

// Resolve returns the live session for sessionID and extends its idle
// deadline. Unknown or timed-out sessions yield domain.ErrSessionExpired,
// evicted ones domain.ErrDuplicateLogin.
func (g *SessionGuard) Resolve(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	rec, err := g.lookup(ctx, sessionID)
	if err != nil {
		return domain.SessionRecord{}, err
	}

	now := g.now()
	expiresAt := now.Add(g.idleTimeout)
	if err := g.store.Touch(ctx, sessionID, now, expiresAt); err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return domain.SessionRecord{}, fmt.Errorf("touch session: %w", err)
		}
		// evicted or expired since the lookup
		if _, err := g.lookup(ctx, sessionID); err != nil {
			return domain.SessionRecord{}, err
		}
		return domain.SessionRecord{}, domain.ErrSessionExpired
	}

	rec.LastSeenAt = now
	rec.ExpiresAt = expiresAt
	return rec, nil
}

// Logout destroys the session. Unknown ids are ignored.
func (g *SessionGuard) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	rec, err := g.store.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return fmt.Errorf("get session: %w", err)
	}
	if err := g.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	if rec.ID != "" && rec.State == domain.SessionStateActive {
		g.publish(ctx, events.EventSessionDestroyed, rec, events.SessionPayload{SessionID: rec.ID, ExpiresAt: rec.ExpiresAt})
	}
	return nil
}

func (g *SessionGuard) lookup(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	rec, err := g.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domain.SessionRecord{}, domain.ErrSessionExpired
		}
		return domain.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	if rec.State == domain.SessionStateEvicted {
		return domain.SessionRecord{}, domain.ErrDuplicateLogin
	}
	if rec.Expired(g.now()) {
		return domain.SessionRecord{}, domain.ErrSessionExpired
	}
	return rec, nil
}

func (g *SessionGuard) event(eventType events.EventType, rec domain.SessionRecord, payload interface{}) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     events.Actor{PrincipalID: rec.PrincipalID, Username: rec.Username, Role: rec.Role},
		Timestamp: g.now(),
		Payload:   payload,
	}
}

func (g *SessionGuard) publish(ctx context.Context, eventType events.EventType, rec domain.SessionRecord, payload interface{}) {
	if g.dispatcher == nil {
		return
	}
	_ = g.dispatcher.Publish(ctx, g.event(eventType, rec, payload))
}

// publishAsync delivers off the request path; the request context may be
// gone by the time listeners run.
func (g *SessionGuard) publishAsync(ctx context.Context, eventType events.EventType, rec domain.SessionRecord, payload interface{}) {
	if g.dispatcher == nil {
		return
	}
	event := g.event(eventType, rec, payload)
	detached := context.WithoutCancel(ctx)
	go func() {
		_ = g.dispatcher.Publish(detached, event)
	}()
}
