package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"provider-sync-service/internal/transport/httpserver/dto"
)

// Recover turns a panic in a handler into a 500 INTERNAL_ERROR response. The
// panic is logged as an error so the Sentry core reports it with its stack.
func Recover(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			panicErr, ok := r.(error)
			if !ok {
				panicErr = fmt.Errorf("%v", r)
			}
			logger.Error("admin request panicked",
				zap.Error(panicErr),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", requestID(c)),
				zap.ByteString("stack", debug.Stack()),
			)

			err = c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: "internal server error",
				Code:  "INTERNAL_ERROR",
			})
		}()

		return c.Next()
	}
}
