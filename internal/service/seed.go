package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
)

// SeedAccount is an account created at startup when missing.
type SeedAccount struct {
	Username string
	Password string
	Role     domain.Role
}

// DefaultSeedAccounts are the development accounts.
var DefaultSeedAccounts = []SeedAccount{
	{Username: "admin", Password: "1234", Role: domain.RoleAdmin},
	{Username: "user", Password: "1234", Role: domain.RoleUser},
}

// SeedUsers creates every account that does not exist yet. Existing
// accounts are left untouched.
func SeedUsers(ctx context.Context, users repository.UserRepository, accounts []SeedAccount, bcryptCost int, logger *zap.Logger) error {
	for _, acct := range accounts {
		if _, err := users.GetByUsername(ctx, acct.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("lookup %s: %w", acct.Username, err)
		}

		hash, err := auth.HashPassword(acct.Password, bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", acct.Username, err)
		}
		principal := &domain.Principal{Username: acct.Username, PasswordHash: hash, Role: acct.Role}
		if err := users.Create(ctx, principal); err != nil {
			if errors.Is(err, repository.ErrUserExists) {
				continue
			}
			return fmt.Errorf("create %s: %w", acct.Username, err)
		}
		logger.Info("seeded account", zap.String("username", acct.Username), zap.String("role", string(acct.Role)))
	}
	return nil
}
