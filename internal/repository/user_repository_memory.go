package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

// MemoryUserRepository keeps accounts in process memory. It backs
// single-instance development runs without Postgres.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.Principal
	byUsername map[string]*domain.Principal
}

// NewMemoryUserRepository returns an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]*domain.Principal),
		byUsername: make(map[string]*domain.Principal),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return ErrUserExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	r.byID[stored.ID] = &stored
	r.byUsername[stored.Username] = &stored
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

// Delete removes an account. Used to simulate user management deleting a
// principal between issuance and refresh.
func (r *MemoryUserRepository) Delete(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		delete(r.byUsername, user.Username)
		delete(r.byID, id)
	}
}
