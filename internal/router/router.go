package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-exam-grader/internal/config"
	"github.com/noah-isme/gema-exam-grader/internal/handler"
	"github.com/noah-isme/gema-exam-grader/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler *handler.GradingHandler
	// DisableMetrics skips mounting the Prometheus scrape endpoint.
	DisableMetrics bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if !deps.DisableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	// Common v1 group for health & the report index
	v1 := api.Group("/v1")
	v1.Get("/health", handler.HealthCheck(cfg))

	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(api)
		deps.GradingHandler.RegisterReports(v1.Group("/grading"))
	}
}
