package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

type ImageHandler struct {
	service   *service.AssetService
	validator *validator.Validate
}

func NewImageHandler(svc *service.AssetService, v *validator.Validate) *ImageHandler {
	return &ImageHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/images/generate
// @Summary      Generate scene images
// @Description  Generate one image per scene prompt, falling back to B-roll prompts from keywords
// @Tags         Images
// @Accept       json
// @Produce      json
// @Param        request body model.ImageGenerateRequest true "Request body"
// @Success      200 {object} model.ImageGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/images/generate [post]
func (h *ImageHandler) Generate(c *fiber.Ctx) error {
	var req model.ImageGenerateRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.service.GenerateImages(c.UserContext(), middleware.GetCaller(c), req.ProjectID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}

// Broll handles POST /api/images/broll
// @Summary      Generate B-roll images
// @Tags         Images
// @Accept       json
// @Produce      json
// @Param        request body model.ImageGenerateRequest true "Request body"
// @Success      200 {object} model.ImageGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/images/broll [post]
func (h *ImageHandler) Broll(c *fiber.Ctx) error {
	var req model.ImageGenerateRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.service.GenerateBrollImages(c.UserContext(), middleware.GetCaller(c), req.ProjectID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}
