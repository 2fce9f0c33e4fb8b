package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	apperrors "github.com/jionu102/codeit-image-post-auth/pkg/util/errorutil"
)

// SessionResolver looks up the live session behind a session id.
// It returns domain.ErrSessionExpired or domain.ErrDuplicateLogin when the
// session cannot be used.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (domain.SessionRecord, error)
}

// Authenticator populates the request identity. Missing or invalid bearer
// tokens leave the request anonymous; route-level guards decide whether
// that is acceptable.
type Authenticator struct {
	tokens       *TokenCodec
	logger       *zap.Logger
	cookieSecure bool
}

// NewAuthenticator constructs middleware.
func NewAuthenticator(tokens *TokenCodec, logger *zap.Logger, cookieSecure bool) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger, cookieSecure: cookieSecure}
}

// Bearer authenticates the Authorization header statelessly. The token
// registry is never consulted here.
func (a *Authenticator) Bearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Next()
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrBadSignature):
				a.logger.Warn("bearer token signature mismatch",
					zap.String("path", c.Path()),
					zap.String("ip", c.IP()))
			case errors.Is(err, ErrMalformed):
				a.logger.Debug("malformed bearer token", zap.Error(err))
			}
			return c.Next()
		}

		setIdentity(c, Identity{Subject: claims.Subject, Role: claims.Role})
		return c.Next()
	}
}

// Session authenticates the session cookie against resolver. Unlike Bearer,
// a presented but unusable session ends the request with 401 so the client
// can tell a timeout apart from an eviction.
func (a *Authenticator) Session(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookie)
		if sessionID == "" {
			return c.Next()
		}

		record, err := resolver.Resolve(c.UserContext(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrDuplicateLogin):
				c.Cookie(ClearedCookie(SessionCookie, a.cookieSecure))
				return apperrors.NewDuplicateLogin()
			case errors.Is(err, domain.ErrSessionExpired):
				c.Cookie(ClearedCookie(SessionCookie, a.cookieSecure))
				return apperrors.NewSessionExpired()
			default:
				return apperrors.NewInternalError(err)
			}
		}

		setIdentity(c, Identity{
			Subject:     record.Username,
			Role:        record.Role,
			PrincipalID: record.PrincipalID,
			SessionID:   record.ID,
		})
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
