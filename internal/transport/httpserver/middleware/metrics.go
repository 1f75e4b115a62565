package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestRecorder records HTTP request metrics.
// Implementations: internal/metrics
type RequestRecorder interface {
	RecordRequest(method, route string, statusCode int, duration time.Duration)
}

// Metrics returns a middleware recording every request against its route
// pattern, so path parameters do not create new series.
func Metrics(recorder RequestRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		recorder.RecordRequest(c.Method(), c.Route().Path, status, time.Since(start))

		return err
	}
}
