package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/logging"
)

// Error codes
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeRateLimited          = "RATE_LIMITED"
	CodePreconditionFailed   = "PRECONDITION_FAILED"
	CodeUpstreamError        = "UPSTREAM_ERROR"
	CodeUpstreamFormatError  = "UPSTREAM_FORMAT_ERROR"
	CodeAllGenerationsFailed = "ALL_GENERATIONS_FAILED"
	CodePipelineFailed       = "PIPELINE_FAILED"
	CodeServiceError         = "SERVICE_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var kindStatus = map[apperr.Kind]struct {
	status int
	code   string
}{
	apperr.KindValidation:           {fiber.StatusBadRequest, CodeValidationError},
	apperr.KindUnauthorized:         {fiber.StatusUnauthorized, CodeUnauthorized},
	apperr.KindForbidden:            {fiber.StatusForbidden, CodeForbidden},
	apperr.KindNotFound:             {fiber.StatusNotFound, CodeNotFound},
	apperr.KindPrecondition:         {fiber.StatusConflict, CodePreconditionFailed},
	apperr.KindUpstream:             {fiber.StatusBadGateway, CodeUpstreamError},
	apperr.KindUpstreamFormat:       {fiber.StatusBadGateway, CodeUpstreamFormatError},
	apperr.KindAllGenerationsFailed: {fiber.StatusBadGateway, CodeAllGenerationsFailed},
	apperr.KindInternal:             {fiber.StatusInternalServerError, CodeServiceError},
}

// StatusFor returns the HTTP status and envelope code for an error kind.
func StatusFor(kind apperr.Kind) (int, string) {
	if m, ok := kindStatus[kind]; ok {
		return m.status, m.code
	}
	return fiber.StatusInternalServerError, CodeServiceError
}

// FromError writes err as an error envelope. Internal failures are logged and
// their cause is not echoed to the client.
func FromError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status, code := StatusFor(kind)

	message := err.Error()
	var details interface{}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		details = appErr.Details
		if kind != apperr.KindUpstream {
			message = appErr.Message
		}
	}
	if kind == apperr.KindInternal {
		logging.FromContext(c.UserContext()).WithError(err).Error("internal error")
		message = "Internal server error"
		details = nil
	}

	return Error(c, status, code, message, details)
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, nil)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
