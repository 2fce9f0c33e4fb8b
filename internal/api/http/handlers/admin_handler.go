package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jionu102/codeit-image-post-auth/internal/worker"
	apperrors "github.com/jionu102/codeit-image-post-auth/pkg/util/errorutil"
)

// AdminHandler exposes maintenance operations.
type AdminHandler struct {
	sweeper *worker.Sweeper
}

// NewAdminHandler constructs handler.
func NewAdminHandler(sweeper *worker.Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// Sweep handles POST /api/admin/sweep by running one pass immediately.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(report)
}
