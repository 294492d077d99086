package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/escola-digital/escola-api/internal/config"
	"github.com/escola-digital/escola-api/internal/handler"
	"github.com/escola-digital/escola-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AttendanceHandler *handler.AttendanceHandler
	GradeHandler      *handler.GradeHandler
	BoletimHandler    *handler.BoletimHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
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

	if deps.AttendanceHandler != nil {
		attendance := app.Group("/api/v1/attendance", jwtMiddleware)
		deps.AttendanceHandler.Register(attendance)
	}

	if deps.GradeHandler != nil {
		grades := app.Group("/api/v1/grades", jwtMiddleware)
		deps.GradeHandler.Register(grades)
	}

	if deps.BoletimHandler != nil {
		boletim := app.Group("/api/v1/boletim", jwtMiddleware)
		deps.BoletimHandler.Register(boletim)
	}

	if deps.ActivityHandler != nil {
		activities := app.Group("/api/v1/activities", jwtMiddleware)
		deps.ActivityHandler.Register(activities)
	}
}
