package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jionu102/codeit-image-post-auth/internal/api/dto"
	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/observability"
	"github.com/jionu102/codeit-image-post-auth/internal/service"
	apperrors "github.com/jionu102/codeit-image-post-auth/pkg/util/errorutil"
)

// SessionHandler exposes the session-mode login and logout endpoints.
type SessionHandler struct {
	auth         *service.AuthService
	guard        *service.SessionGuard
	metrics      *observability.Metrics
	cookieSecure bool
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService, guard *service.SessionGuard, metrics *observability.Metrics, cookieSecure bool) *SessionHandler {
	return &SessionHandler{auth: authService, guard: guard, metrics: metrics, cookieSecure: cookieSecure}
}

// Login handles POST /auth/login. Whatever session id the client presents is
// replaced by a freshly minted one.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	principal, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.metrics.RecordLogin("session", "invalid_credentials")
			return loginFailed()
		}
		return apperrors.NewInternalError(err)
	}

	rec, err := h.guard.Login(c.UserContext(), principal, c.Cookies(auth.SessionCookie))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Cookie(auth.CredentialCookie(auth.SessionCookie, rec.ID, 0, h.cookieSecure))
	return c.JSON(dto.SessionLoginResponse{
		Message: "Login successful",
		User:    dto.NewUserResponse(principal),
	})
}

// Logout handles POST /auth/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := h.guard.Logout(c.UserContext(), c.Cookies(auth.SessionCookie)); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Cookie(auth.ClearedCookie(auth.SessionCookie, h.cookieSecure))
	return c.JSON(dto.MessageResponse{Message: "Logout successful"})
}
