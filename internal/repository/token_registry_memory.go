package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

// MemoryTokenRegistry is a single-process TokenRegistry. Every operation
// runs under one mutex, which gives the same atomic replace and
// conditional rotate guarantees as the Postgres implementation.
type MemoryTokenRegistry struct {
	mu          sync.Mutex
	byPrincipal map[string]domain.TokenRecord
	byRefresh   map[string]string
	now         func() time.Time
}

// NewMemoryTokenRegistry returns an empty registry.
func NewMemoryTokenRegistry() *MemoryTokenRegistry {
	return &MemoryTokenRegistry{
		byPrincipal: make(map[string]domain.TokenRecord),
		byRefresh:   make(map[string]string),
		now:         time.Now,
	}
}

func (r *MemoryTokenRegistry) Register(_ context.Context, principalID string, pair domain.TokenPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byPrincipal[principalID]; ok {
		delete(r.byRefresh, prev.RefreshToken)
	}
	r.put(principalID, pair)
	return nil
}

func (r *MemoryTokenRegistry) HasActive(_ context.Context, refreshToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byRefresh[refreshToken]
	return ok, nil
}

func (r *MemoryTokenRegistry) Rotate(_ context.Context, oldRefreshToken string, pair domain.TokenPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	principalID, ok := r.byRefresh[oldRefreshToken]
	if !ok {
		return ErrTokenRecordNotFound
	}
	delete(r.byRefresh, oldRefreshToken)
	r.put(principalID, pair)
	return nil
}

func (r *MemoryTokenRegistry) Invalidate(_ context.Context, principalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byPrincipal[principalID]; ok {
		delete(r.byRefresh, prev.RefreshToken)
		delete(r.byPrincipal, principalID)
	}
	return nil
}

func (r *MemoryTokenRegistry) Scan(_ context.Context, afterPrincipalID string, limit int) ([]domain.TokenRecord, error) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.byPrincipal))
	for id := range r.byPrincipal {
		if id > afterPrincipalID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	records := make([]domain.TokenRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, r.byPrincipal[id])
	}
	r.mu.Unlock()

	return records, nil
}

func (r *MemoryTokenRegistry) DeleteIfMatches(_ context.Context, principalID, refreshToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byPrincipal[principalID]
	if !ok || rec.RefreshToken != refreshToken {
		return false, nil
	}
	delete(r.byRefresh, refreshToken)
	delete(r.byPrincipal, principalID)
	return true, nil
}

// Len returns the number of live records.
func (r *MemoryTokenRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPrincipal)
}

func (r *MemoryTokenRegistry) put(principalID string, pair domain.TokenPair) {
	r.byPrincipal[principalID] = domain.TokenRecord{
		PrincipalID:  principalID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UpdatedAt:    r.now().UTC(),
	}
	r.byRefresh[pair.RefreshToken] = principalID
}
