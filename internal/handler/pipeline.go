package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

type PipelineHandler struct {
	orchestrator *service.Orchestrator
	jobs         *service.JobService
	validator    *validator.Validate
}

func NewPipelineHandler(orchestrator *service.Orchestrator, jobs *service.JobService, v *validator.Validate) *PipelineHandler {
	return &PipelineHandler{
		orchestrator: orchestrator,
		jobs:         jobs,
		validator:    v,
	}
}

// Script handles POST /api/pipeline/script
// @Summary      Create project from topic
// @Description  Generate a script and save it as a new project
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        request body model.ScriptProjectRequest true "Request body"
// @Success      201 {object} model.ProjectResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pipeline/script [post]
func (h *PipelineHandler) Script(c *fiber.Ctx) error {
	var req model.ScriptProjectRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	project, err := h.orchestrator.GenerateScriptAndSave(c.UserContext(), middleware.GetCaller(c), req.Title, req.Prompt, req.Mode, nil)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, model.ProjectResponse{Project: project})
}

// FullVideo handles POST /api/pipeline/full-video
// @Summary      Run talking-head pipeline
// @Description  Speech, transcript, lipsync and composition for an existing project
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        request body model.FullVideoRequest true "Request body"
// @Success      200 {object} model.PipelineResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pipeline/full-video [post]
func (h *PipelineHandler) FullVideo(c *fiber.Ctx) error {
	var req model.FullVideoRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.orchestrator.GenerateFullVideo(c.UserContext(), middleware.GetCaller(c), req.ProjectID, nil)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}

// ImageVideo handles POST /api/pipeline/image-video
// @Summary      Run image pipeline
// @Description  Scene images composed into a slideshow for an existing project
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        request body model.ImageVideoRequest true "Request body"
// @Success      200 {object} model.PipelineResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pipeline/image-video [post]
func (h *PipelineHandler) ImageVideo(c *fiber.Ctx) error {
	var req model.ImageVideoRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.orchestrator.GenerateImageVideo(c.UserContext(), middleware.GetCaller(c), req.ProjectID, req.Kind, req.Options, nil)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}

// StartJob handles POST /api/pipeline/jobs
// @Summary      Queue pipeline job
// @Description  Queue a pipeline action; progress streams on /ws/jobs/{jobId}
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        request body model.JobCreateRequest true "Request body"
// @Success      202 {object} model.JobCreateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pipeline/jobs [post]
func (h *PipelineHandler) StartJob(c *fiber.Ctx) error {
	var req model.JobCreateRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.jobs.StartJob(c.UserContext(), middleware.GetCaller(c), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Accepted(c, result)
}

// Job handles GET /api/pipeline/jobs/:jobId
// @Summary      Get pipeline job
// @Tags         Pipeline
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.Job
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pipeline/jobs/{jobId} [get]
func (h *PipelineHandler) Job(c *fiber.Ctx) error {
	job, err := h.jobs.GetJob(c.UserContext(), middleware.GetCaller(c), c.Params("jobId"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, job)
}
