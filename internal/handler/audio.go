package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/pkg/response"
)

type AudioHandler struct {
	service   *service.AssetService
	validator *validator.Validate
}

func NewAudioHandler(svc *service.AssetService, v *validator.Validate) *AudioHandler {
	return &AudioHandler{
		service:   svc,
		validator: v,
	}
}

// Speech handles POST /api/audio/speech
// @Summary      Synthesize speech
// @Description  Synthesize free text with the caller's registered voice
// @Tags         Audio
// @Accept       json
// @Produce      json
// @Param        request body model.SpeechRequest true "Request body"
// @Success      200 {object} model.SpeechResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/audio/speech [post]
func (h *AudioHandler) Speech(c *fiber.Ctx) error {
	var req model.SpeechRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	audioURL, err := h.service.SynthesizeText(c.UserContext(), middleware.GetCaller(c), req.Text)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, model.SpeechResponse{AudioURL: audioURL})
}

// VoiceTrain handles POST /api/audio/voice-train
// @Summary      Register voice
// @Description  Clone a voice from an audio sample stored in project storage
// @Tags         Audio
// @Accept       json
// @Produce      json
// @Param        request body model.VoiceTrainRequest true "Request body"
// @Success      200 {object} model.VoiceTrainResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/audio/voice-train [post]
func (h *AudioHandler) VoiceTrain(c *fiber.Ctx) error {
	var req model.VoiceTrainRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	voiceID, err := h.service.RegisterVoice(c.UserContext(), middleware.GetCaller(c), req.SampleAudioRef, req.Name)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, model.VoiceTrainResponse{VoiceID: voiceID})
}

// ProjectSpeech handles POST /api/projects/:id/speech
// @Summary      Synthesize project speech
// @Description  Narrate the project script and store the audio URL on the project
// @Tags         Audio
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.SpeechResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id}/speech [post]
func (h *AudioHandler) ProjectSpeech(c *fiber.Ctx) error {
	audioURL, err := h.service.SynthesizeSpeech(c.UserContext(), middleware.GetCaller(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, model.SpeechResponse{AudioURL: audioURL})
}

// Transcribe handles POST /api/projects/:id/transcribe
// @Summary      Transcribe project speech
// @Description  Transcribe the project audio and align scenes onto it
// @Tags         Audio
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.TranscribeResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{id}/transcribe [post]
func (h *AudioHandler) Transcribe(c *fiber.Ctx) error {
	result, err := h.service.Transcribe(c.UserContext(), middleware.GetCaller(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}
