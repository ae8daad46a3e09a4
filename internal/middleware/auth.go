package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/auth"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/pkg/response"
)

const callerKey = "caller"

// AuthMiddleware resolves the bearer token into a model.Caller.
type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

func NewAuthMiddleware(authenticator *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate rejects requests without a valid session token.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := m.authenticator.FromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				return response.Unauthorized(c, "Missing authorization header")
			case errors.Is(err, auth.ErrMalformedAuth):
				return response.Unauthorized(c, "Invalid authorization header format")
			case errors.Is(err, auth.ErrNotConfigured):
				return response.Unauthorized(c, "Authentication not configured")
			}
			return response.Unauthorized(c, "Invalid or expired token")
		}
		setCaller(c, caller)
		return c.Next()
	}
}

// GatewayAuthMiddleware trusts the X-User-* headers set by the gateway's
// ForwardAuth call.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}
		setCaller(c, model.Caller{UserID: userID, Email: c.Get("X-User-Email")})
		return c.Next()
	}
}

func setCaller(c *fiber.Ctx, caller model.Caller) {
	c.Locals(callerKey, caller)
	ctx := c.UserContext()
	c.SetUserContext(logging.WithEntry(ctx, logging.FromContext(ctx).WithField("user_id", caller.UserID)))
}

// GetCaller returns the authenticated caller, or the zero Caller.
func GetCaller(c *fiber.Ctx) model.Caller {
	if caller, ok := c.Locals(callerKey).(model.Caller); ok {
		return caller
	}
	return model.Caller{}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	return GetCaller(c).UserID
}
