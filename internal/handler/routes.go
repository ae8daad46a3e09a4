package handler

import (
	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/gofiber/swagger"

	_ "github.com/videogen/api/docs"
	"github.com/videogen/api/internal/config"
	"github.com/videogen/api/internal/middleware"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Script    *ScriptHandler
	Audio     *AudioHandler
	Profile   *ProfileHandler
	Project   *ProjectHandler
	Image     *ImageHandler
	Video     *VideoHandler
	Pipeline  *PipelineHandler
	JobSocket *JobSocketHandler
}

// RegisterRoutes mounts the public routes and the authenticated /api group.
func RegisterRoutes(app *fiber.App, h *Handlers, authenticate fiber.Handler, limiter *middleware.RateLimiter, limits config.RateLimitConfig) {
	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.Health)
	app.Get("/auth/verify", h.Auth.Verify)
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	if h.JobSocket != nil {
		app.Get("/ws/jobs/:jobId", h.JobSocket.Upgrade, h.JobSocket.Stream())
	}

	api := app.Group("/api", authenticate)

	api.Post("/script", limiter.ScriptLimit(limits.ScriptPerMin), h.Script.Generate)

	audio := api.Group("/audio", limiter.AudioLimit(limits.AudioPerHour))
	audio.Post("/speech", h.Audio.Speech)
	audio.Post("/voice-train", h.Audio.VoiceTrain)

	profile := api.Group("/profile")
	profile.Get("/", h.Profile.Get)
	profile.Post("/video", h.Profile.UploadVideo)

	projects := api.Group("/projects")
	projects.Post("/", h.Project.Create)
	projects.Get("/", h.Project.List)
	projects.Get("/:id", h.Project.Get)
	projects.Patch("/:id", h.Project.Update)
	projects.Delete("/:id", h.Project.Delete)
	projects.Post("/:id/reset", h.Project.Reset)
	projects.Delete("/:id/resource", h.Project.DeleteResource)
	projects.Post("/:id/speech", limiter.AudioLimit(limits.AudioPerHour), h.Audio.ProjectSpeech)
	projects.Post("/:id/transcribe", limiter.AudioLimit(limits.AudioPerHour), h.Audio.Transcribe)

	// Singular aliases used by older clients.
	api.Post("/project", h.Project.Create)
	api.Delete("/project/:id/resource", h.Project.DeleteResource)

	images := api.Group("/images", limiter.ImagesLimit(limits.ImagesPerHour))
	images.Post("/generate", h.Image.Generate)
	images.Post("/broll", h.Image.Broll)

	api.Post("/video/compose", limiter.VideoLimit(limits.VideoPerHour), h.Video.Compose)

	pipeline := api.Group("/pipeline")
	pipeline.Post("/script", limiter.ScriptLimit(limits.ScriptPerMin), h.Pipeline.Script)
	pipeline.Post("/full-video", limiter.PipelineLimit(limits.PipelinePerHour), h.Pipeline.FullVideo)
	pipeline.Post("/image-video", limiter.PipelineLimit(limits.PipelinePerHour), h.Pipeline.ImageVideo)
	pipeline.Post("/jobs", limiter.PipelineLimit(limits.PipelinePerHour), h.Pipeline.StartJob)
	pipeline.Get("/jobs/:jobId", h.Pipeline.Job)
}
