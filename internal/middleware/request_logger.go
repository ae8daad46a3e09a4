package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/videogen/api/internal/logging"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger tags each request with an id, puts a request-scoped logrus
// entry on the user context and logs the outcome.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDHeader, requestID)

		entry := logging.Log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"uri":        c.OriginalURL(),
		})
		ctx := logging.WithRequestID(c.UserContext(), requestID)
		c.SetUserContext(logging.WithEntry(ctx, entry))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := logrus.Fields{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if userID := GetUserID(c); userID != "" {
			fields["user_id"] = userID
		}
		done := entry.WithFields(fields)
		switch {
		case status >= 500:
			done.Error("request failed")
		case status >= 400:
			done.Warn("request rejected")
		default:
			done.Info("request completed")
		}
		return err
	}
}
