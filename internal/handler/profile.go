package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

const maxVideoUploadSize = 50 * 1024 * 1024 // 50MB

type ProfileHandler struct {
	service *service.AssetService
}

func NewProfileHandler(svc *service.AssetService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get handles GET /api/profile
// @Summary      Get profile
// @Tags         Profile
// @Produce      json
// @Success      200 {object} model.UserProfile
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/profile [get]
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	profile, err := h.service.GetProfile(c.UserContext(), middleware.GetCaller(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, profile)
}

// UploadVideo handles POST /api/profile/video (multipart field "file")
// @Summary      Upload profile video
// @Description  Upload the talking-head source video used for lipsync
// @Tags         Profile
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Video file"
// @Success      200 {object} map[string]string
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/profile/video [post]
func (h *ProfileHandler) UploadVideo(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxVideoUploadSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxVideoUploadSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	videoURL, err := h.service.SetProfileVideo(c.UserContext(), middleware.GetCaller(c), file.Filename, f)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, fiber.Map{"videoUrl": videoURL})
}
