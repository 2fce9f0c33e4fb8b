package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

// MemorySessionStore is a single-process SessionStore. Expired records are
// dropped lazily on read and whenever a new session is installed.
type MemorySessionStore struct {
	mu          sync.Mutex
	sessions    map[string]domain.SessionRecord
	byPrincipal map[string]string
	now         func() time.Time
}

// NewMemorySessionStore returns an empty store reading time from now.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions:    make(map[string]domain.SessionRecord),
		byPrincipal: make(map[string]string),
		now:         now,
	}
}

func (s *MemorySessionStore) Replace(_ context.Context, rec domain.SessionRecord, tombstoneUntil time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(s.now())

	evicted := ""
	if oldID, ok := s.byPrincipal[rec.PrincipalID]; ok && oldID != rec.ID {
		if old, ok := s.sessions[oldID]; ok && old.State == domain.SessionStateActive {
			old.State = domain.SessionStateEvicted
			old.ExpiresAt = tombstoneUntil
			s.sessions[oldID] = old
			evicted = oldID
		}
	}

	rec.State = domain.SessionStateActive
	s.sessions[rec.ID] = rec
	s.byPrincipal[rec.PrincipalID] = rec.ID
	return evicted, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionRecord{}, ErrSessionNotFound
	}
	if rec.Expired(s.now()) {
		s.remove(rec)
		return domain.SessionRecord{}, ErrSessionNotFound
	}
	return rec, nil
}

func (s *MemorySessionStore) Touch(_ context.Context, sessionID string, seenAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok || rec.State != domain.SessionStateActive {
		return ErrSessionNotFound
	}
	rec.LastSeenAt = seenAt
	rec.ExpiresAt = expiresAt
	s.sessions[sessionID] = rec
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.sessions[sessionID]; ok {
		s.remove(rec)
	}
	return nil
}

// Len returns the number of stored records, tombstones included.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) prune(now time.Time) {
	for _, rec := range s.sessions {
		if rec.Expired(now) {
			s.remove(rec)
		}
	}
}

func (s *MemorySessionStore) remove(rec domain.SessionRecord) {
	delete(s.sessions, rec.ID)
	if s.byPrincipal[rec.PrincipalID] == rec.ID {
		delete(s.byPrincipal, rec.PrincipalID)
	}
}
