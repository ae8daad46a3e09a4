package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/auth"
	"github.com/videogen/api/internal/service"
	ws "github.com/videogen/api/internal/websocket"
	"github.com/videogen/api/pkg/response"
)

// JobSocketHandler streams pipeline job progress to the job's owner.
type JobSocketHandler struct {
	hub           *ws.Hub
	jobs          *service.JobService
	authenticator *auth.Authenticator
}

func NewJobSocketHandler(hub *ws.Hub, jobs *service.JobService, authenticator *auth.Authenticator) *JobSocketHandler {
	return &JobSocketHandler{
		hub:           hub,
		jobs:          jobs,
		authenticator: authenticator,
	}
}

// Upgrade checks the token query parameter and job ownership before the
// websocket handshake. Browsers cannot set headers on upgrade requests.
func (h *JobSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	caller, err := h.authenticator.Authenticate(c.Query("token"))
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired token")
	}
	if _, err := h.jobs.GetJob(c.UserContext(), caller, c.Params("jobId")); err != nil {
		return response.FromError(c, err)
	}

	return c.Next()
}

// Stream handles GET /ws/jobs/:jobId
func (h *JobSocketHandler) Stream() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.hub.HandleConnection(c, c.Params("jobId"))
	})
}
