package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/events"
	"github.com/jionu102/codeit-image-post-auth/internal/observability"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
)

// LoginResult is a freshly issued credential pair and the principal it
// belongs to.
type LoginResult struct {
	Pair domain.TokenPair
	User *domain.Principal
}

// AuthService coordinates credential checks, token issuance and the token
// registry.
type AuthService struct {
	users      repository.UserRepository
	registry   repository.TokenRegistry
	codec      *auth.TokenCodec
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Registry   repository.TokenRegistry
	Codec      *auth.TokenCodec
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		registry:   deps.Registry,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords both yield domain.ErrInvalidCredentials after one bcrypt
// comparison.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.Principal, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnComparison(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the user, issues an access/refresh pair and registers
// it as the principal's only live record. Any pair registered earlier stops
// being refreshable.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.metrics.RecordLogin("token", "invalid_credentials")
		}
		return nil, err
	}

	pair, err := s.codec.IssuePair(user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.registry.Register(ctx, user.ID, pair); err != nil {
		return nil, fmt.Errorf("register tokens: %w", err)
	}

	s.metrics.RecordLogin("token", "success")
	s.publish(ctx, events.EventTokenIssued, user, nil)
	return &LoginResult{Pair: pair, User: user}, nil
}

// Logout invalidates the registry record of the principal named by
// refreshToken. Unusable or absent tokens are ignored, so repeated logouts
// succeed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		s.logger.Debug("logout with unusable refresh token", zap.Error(err))
		return nil
	}

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.registry.Invalidate(ctx, user.ID); err != nil {
		return fmt.Errorf("invalidate tokens: %w", err)
	}
	s.publish(ctx, events.EventTokenRevoked, user, events.TokenRevokedPayload{Reason: "logout"})
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, user *domain.Principal, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     events.Actor{PrincipalID: user.ID, Username: user.Username, Role: user.Role},
		Timestamp: s.now(),
		Payload:   payload,
	})
}
