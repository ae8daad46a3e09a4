package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

type ScriptHandler struct {
	service   *service.ScriptService
	validator *validator.Validate
}

func NewScriptHandler(svc *service.ScriptService, v *validator.Validate) *ScriptHandler {
	return &ScriptHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/script
// @Summary      Generate script
// @Description  Generate a narration script, split into scenes in scenes mode
// @Tags         Script
// @Accept       json
// @Produce      json
// @Param        request body model.ScriptGenerateRequest true "Request body"
// @Success      200 {object} model.ScriptGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/script [post]
func (h *ScriptHandler) Generate(c *fiber.Ctx) error {
	var req model.ScriptGenerateRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.service.GenerateScript(c.UserContext(), middleware.GetCaller(c), req.Prompt, req.Mode)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}
