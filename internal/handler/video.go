package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

type VideoHandler struct {
	service   *service.CompositionService
	validator *validator.Validate
}

func NewVideoHandler(svc *service.CompositionService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		service:   svc,
		validator: v,
	}
}

// Compose handles POST /api/video/compose
// @Summary      Compose video
// @Description  Produce one composition kind for a project
// @Tags         Video
// @Accept       json
// @Produce      json
// @Param        request body model.ComposeRequest true "Request body"
// @Success      200 {object} model.ComposeResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/compose [post]
func (h *VideoHandler) Compose(c *fiber.Ctx) error {
	var req model.ComposeRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	outputURL, err := h.service.ComposeVideo(c.UserContext(), middleware.GetCaller(c), req.ProjectID, req.Kind, req.Options)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, model.ComposeResponse{Kind: req.Kind, OutputURL: outputURL})
}
