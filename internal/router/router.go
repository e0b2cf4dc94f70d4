package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-gradebook/internal/config"
	"github.com/noah-isme/gema-gradebook/internal/handler"
	"github.com/noah-isme/gema-gradebook/internal/middleware"
	"github.com/noah-isme/gema-gradebook/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler  *handler.SubmissionHandler
	GradingHandler     *handler.GradingHandler
	CourseGradeHandler *handler.CourseGradeHandler
	Health             handler.HealthDependencies
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	gradebook := app.Group("/api/v2/gradebook", jwtMiddleware)
	staffOnly := middleware.RequireStaff()

	if deps.SubmissionHandler != nil || deps.GradingHandler != nil {
		submissions := gradebook.Group("/submissions")

		if deps.SubmissionHandler != nil {
			window := cfg.SubmissionRateWindow
			if window <= 0 {
				window = time.Minute
			}
			submissions.Post("",
				middleware.RequireRole(middleware.RoleStudent),
				middleware.RateLimit("gradebook_submit", cfg.SubmissionRateLimit, window),
				deps.SubmissionHandler.Submit,
			)
		}

		if deps.GradingHandler != nil {
			submissions.Patch("/:id/grade", staffOnly, deps.GradingHandler.Grade)
		}

		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.Register(submissions)
		}
	}

	if deps.CourseGradeHandler != nil {
		courses := gradebook.Group("/courses")
		courses.Put("/:id/grade-scale", staffOnly, deps.CourseGradeHandler.ReplaceScale)
		deps.CourseGradeHandler.Register(courses)
	}
}
