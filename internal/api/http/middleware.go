package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/observability"
	apperrors "github.com/fieldkit/locate-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches the global chain: per-request deadline, panic
// recovery with error envelope rendering, and request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(deadlineMiddleware(timeout))
	}
	app.Use(renderErrorsMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

// deadlineMiddleware bounds each request's context. Store reads and live
// query opens downstream all honor this deadline.
func deadlineMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// renderErrorsMiddleware converts handler errors and panics into the JSON
// error envelope. Handlers return plain taxonomy errors; the mapping to HTTP
// status lives here and in errorutil, nowhere else.
func renderErrorsMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				writeErrorEnvelope(c, logger, metrics, err)
				err = nil
			}
		}()
		return c.Next()
	}
}

func writeErrorEnvelope(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
	if domainErr.HTTPStatus >= 500 {
		logger.Error("request failed", zap.Error(domainErr),
			zap.String("path", c.Path()), zap.String("method", c.Method()))
	}

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	c.Status(domainErr.HTTPStatus)
	_ = c.JSON(fiber.Map{"error": body})
}
