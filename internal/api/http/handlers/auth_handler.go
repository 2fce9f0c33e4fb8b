package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/api/dto"
	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/service"
	apperrors "github.com/jionu102/codeit-image-post-auth/pkg/util/errorutil"
)

var errMissingRefreshCookie = errors.New("refresh cookie missing")

// AuthHandler exposes the token-mode login, refresh and logout endpoints.
type AuthHandler struct {
	auth         *service.AuthService
	refreshTTL   time.Duration
	cookieSecure bool
	logger       *zap.Logger
}

// NewAuthHandler constructs handler. The refresh cookie lives as long as the
// refresh token it carries.
func NewAuthHandler(authService *service.AuthService, codec *auth.TokenCodec, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		refreshTTL:   codec.RefreshTTL(),
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return loginFailed()
		}
		return apperrors.NewInternalError(err)
	}

	return h.writePair(c, result)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(auth.RefreshTokenCookie)
	if token == "" {
		return apperrors.NewInvalidRefreshToken(errMissingRefreshCookie)
	}

	result, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		var rejection *service.RefreshRejection
		if !errors.As(err, &rejection) {
			return apperrors.NewInternalError(err)
		}
		if errors.Is(err, auth.ErrBadSignature) {
			h.logger.Warn("refresh token signature mismatch", zap.String("ip", c.IP()))
		}
		h.logger.Debug("refresh rejected", zap.String("reason", string(rejection.Reason)), zap.Error(rejection.Err))
		return apperrors.NewInvalidRefreshToken(err)
	}

	return h.writePair(c, result)
}

// Logout handles POST /auth/logout. It always clears the cookie and
// succeeds for unknown or already revoked tokens.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Cookies(auth.RefreshTokenCookie)); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Cookie(auth.ClearedCookie(auth.RefreshTokenCookie, h.cookieSecure))
	return c.JSON(dto.MessageResponse{Message: "Logout successful"})
}

func (h *AuthHandler) writePair(c *fiber.Ctx, result *service.LoginResult) error {
	c.Cookie(auth.CredentialCookie(auth.RefreshTokenCookie, result.Pair.RefreshToken, h.refreshTTL, h.cookieSecure))

	return c.JSON(dto.TokenResponse{
		AccessToken: result.Pair.AccessToken,
		User:        dto.NewUserResponse(result.User),
	})
}

func parseLogin(c *fiber.Ctx) (dto.LoginRequest, error) {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return req, loginFailed()
	}
	return req, nil
}

func loginFailed() error {
	return apperrors.NewDomainError(apperrors.CodeUnauthorized, "Login Failed", http.StatusUnauthorized, nil)
}
