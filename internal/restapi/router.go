// Package restapi exposes the scoring engine over HTTP/JSON.
package restapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/logging"
)

// NewApp creates a Fiber app with every route registered against eng.
func NewApp(eng *engine.Engine, logger *zap.Logger) *fiber.App {
	logger = logging.OrNop(logger)

	app := fiber.New(fiber.Config{
		AppName:               "leoscore API v1",
		BodyLimit:             4 * 1024 * 1024,
		ReadTimeout:           30 * time.Second,
		DisableStartupMessage: true,
	})

	app.Use(fiberrecover.New())
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	if m := eng.Metrics(); m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	h := &handlers{engine: eng, logger: logger}

	api := app.Group("/api/v1")
	api.Post("/assessments", h.postAssessment)
	api.Get("/assessments/:subject", h.listAssessments)
	api.Post("/suggestions", h.postSuggestion)
	api.Post("/bypass", h.postBypass)
	api.Post("/outcomes", h.postOutcome)
	api.Get("/patterns", h.listPatterns)
	api.Get("/patterns/:id", h.getPattern)
	api.Put("/patterns", h.putPatterns)
	api.Patch("/patterns/:id", h.patchPatternStatus)

	return app
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)))
		return err
	}
}
