package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/openclass/exam-api/internal/config"
	"github.com/openclass/exam-api/internal/handler"
	"github.com/openclass/exam-api/internal/middleware"
	"github.com/openclass/exam-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler    *handler.ExamHandler
	AttemptHandler *handler.AttemptHandler
	GradingHandler *handler.GradingHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Exam management is restricted to staff roles.
	if deps.ExamHandler != nil {
		exams := app.Group("/api/v1/exams", jwtMiddleware, middleware.RequireRole("admin", "teacher"))
		deps.ExamHandler.Register(exams)
	}

	// Attempt routes carry the exam-taking state machine; submission is
	// rate limited to absorb a panicked double click, not real traffic.
	if deps.AttemptHandler != nil {
		attempts := app.Group("/api/v1/attempts", jwtMiddleware)
		attempts.Use("/:examID/submit", middleware.RateLimit("attempt-submit", 10, time.Minute))
		deps.AttemptHandler.Register(attempts)
	}

	if deps.GradingHandler != nil {
		grading := app.Group("/api/v1/grading", jwtMiddleware, middleware.RequireRole("admin", "teacher"))
		deps.GradingHandler.Register(grading)
	}
}
