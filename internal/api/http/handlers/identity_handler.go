package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jionu102/codeit-image-post-auth/internal/api/dto"
	"github.com/jionu102/codeit-image-post-auth/internal/auth"
)

// IdentityHandler reports who the current caller is.
type IdentityHandler struct{}

// NewIdentityHandler constructs handler.
func NewIdentityHandler() *IdentityHandler {
	return &IdentityHandler{}
}

// DebugContext handles GET /api/debug/context and never rejects.
func (h *IdentityHandler) DebugContext(c *fiber.Ctx) error {
	return c.JSON(describe(c))
}

// Me handles GET /api/me; the route requires authentication.
func (h *IdentityHandler) Me(c *fiber.Ctx) error {
	return c.JSON(describe(c))
}

func describe(c *fiber.Ctx) dto.IdentityResponse {
	id, ok := auth.IdentityFrom(c.UserContext())
	if !ok {
		return dto.IdentityResponse{Description: "Anonymous"}
	}
	return dto.IdentityResponse{
		Authenticated: true,
		Username:      id.Subject,
		Role:          id.Role,
		SessionID:     id.SessionID,
		Description:   fmt.Sprintf("Authenticated as %s with role %s", id.Subject, id.Role),
	}
}
