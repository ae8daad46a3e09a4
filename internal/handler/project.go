package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

type ProjectHandler struct {
	projects  *service.ProjectService
	composer  *service.CompositionService
	validator *validator.Validate
}

func NewProjectHandler(projects *service.ProjectService, composer *service.CompositionService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		projects:  projects,
		composer:  composer,
		validator: v,
	}
}

// Create handles POST /api/projects
// @Summary      Create project
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        request body model.ProjectCreateRequest true "Request body"
// @Success      201 {object} model.ProjectResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects [post]
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req model.ProjectCreateRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	project, err := h.projects.Create(c.UserContext(), middleware.GetCaller(c), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, model.ProjectResponse{Project: project})
}

// List handles GET /api/projects
// @Summary      List projects
// @Description  List the caller's projects, newest first
// @Tags         Projects
// @Produce      json
// @Success      200 {object} model.ProjectListResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects [get]
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.projects.List(c.UserContext(), middleware.GetCaller(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, model.ProjectListResponse{Projects: projects})
}

// Get handles GET /api/projects/:id
// @Summary      Get project
// @Tags         Projects
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.Project
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	project, err := h.projects.Get(c.UserContext(), middleware.GetCaller(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, project)
}

// Update handles PATCH /api/projects/:id
// @Summary      Update project
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body model.ProjectUpdateRequest true "Request body"
// @Success      200 {object} model.Project
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id} [patch]
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	var req model.ProjectUpdateRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	project, err := h.projects.Update(c.UserContext(), middleware.GetCaller(c), c.Params("id"), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, project)
}

// Delete handles DELETE /api/projects/:id
// @Summary      Delete project
// @Tags         Projects
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      204 "No Content"
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	if err := h.projects.Delete(c.UserContext(), middleware.GetCaller(c), c.Params("id")); err != nil {
		return response.FromError(c, err)
	}

	return response.NoContent(c)
}

// Reset handles POST /api/projects/:id/reset
// @Summary      Reset project
// @Description  Clear generated assets and move the project back to DRAFT
// @Tags         Projects
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.Project
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id}/reset [post]
func (h *ProjectHandler) Reset(c *fiber.Ctx) error {
	project, err := h.projects.Reset(c.UserContext(), middleware.GetCaller(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, project)
}

// DeleteResource handles DELETE /api/projects/:id/resource
// @Summary      Delete project resource
// @Description  Clear one derived asset such as audio or a composed video
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body model.DeleteResourceRequest true "Request body"
// @Success      200 {object} model.OKResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id}/resource [delete]
func (h *ProjectHandler) DeleteResource(c *fiber.Ctx) error {
	var req model.DeleteResourceRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	if err := h.composer.DeleteResource(c.UserContext(), middleware.GetCaller(c), c.Params("id"), req.ResourceType); err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, model.OKResponse{OK: true})
}
