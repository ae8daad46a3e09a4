package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/auth"
)

// AuthHandler handles ForwardAuth verification for the API gateway
type AuthHandler struct {
	authenticator *auth.Authenticator
}

func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// Verify handles GET /auth/verify. It answers 200 with X-User-* headers for a
// valid token and 401 otherwise.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	caller, err := h.authenticator.FromHeader(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set("X-User-Id", caller.UserID)
	c.Set("X-User-Email", caller.Email)
	return c.SendStatus(fiber.StatusOK)
}
