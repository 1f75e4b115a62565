// Package middleware provides the fiber middleware of the admin API.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Logger logs each request once it is served. Sync triggers (POST) are logged
// at info since they start provider runs; reads stay at debug. Requests to
// skipPaths, such as the metrics endpoint, are not logged.
func Logger(logger *zap.Logger, skipPaths ...string) fiber.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("route", c.Route().Path),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("request_id", requestID(c)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("admin request failed", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("admin request rejected", fields...)
		case c.Method() == fiber.MethodPost:
			logger.Info("sync requested", fields...)
		default:
			logger.Debug("admin request served", fields...)
		}

		return err
	}
}

// requestID returns the id set by the requestid middleware, if any.
func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
