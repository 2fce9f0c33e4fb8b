package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jionu102/codeit-image-post-auth/internal/events"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
)

// RejectReason says why a refresh attempt was refused.
type RejectReason string

const (
	// RejectInvalidToken covers every TokenCodec failure.
	RejectInvalidToken RejectReason = "invalid_token"
	// RejectRevoked covers tokens that verify but are no longer live:
	// rotated, logged out, evicted by a newer login, or whose principal is gone.
	RejectRevoked RejectReason = "revoked"
)

// ErrRevoked is the cause of a RejectRevoked rejection.
var ErrRevoked = errors.New("refresh token revoked")

// RefreshRejection is returned by Refresh when the presented token cannot
// be exchanged. It unwraps to the codec error or to ErrRevoked.
type RefreshRejection struct {
	Reason RejectReason
	Err    error
}

func (r *RefreshRejection) Error() string {
	return fmt.Sprintf("refresh rejected (%s): %v", r.Reason, r.Err)
}

func (r *RefreshRejection) Unwrap() error { return r.Err }

// Refresh exchanges a live refresh token for a new pair. The old token is
// single-use: once the rotation commits it is no longer accepted, and of two
// concurrent calls with the same token at most one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, s.reject(RejectInvalidToken, err)
	}

	active, err := s.registry.HasActive(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("check refresh token: %w", err)
	}
	if !active {
		return nil, s.reject(RejectRevoked, ErrRevoked)
	}

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.reject(RejectRevoked, ErrRevoked)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	pair, err := s.codec.IssuePair(user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.registry.Rotate(ctx, refreshToken, pair); err != nil {
		if errors.Is(err, repository.ErrTokenRecordNotFound) {
			// lost the race to a concurrent rotation or logout
			return nil, s.reject(RejectRevoked, ErrRevoked)
		}
		return nil, fmt.Errorf("rotate tokens: %w", err)
	}

	s.metrics.RecordRefresh("rotated")
	s.publish(ctx, events.EventTokenIssued, user, nil)
	return &LoginResult{Pair: pair, User: user}, nil
}

func (s *AuthService) reject(reason RejectReason, err error) error {
	s.metrics.RecordRefresh(string(reason))
	return &RefreshRejection{Reason: reason, Err: err}
}
