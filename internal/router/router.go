package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codesnap-api/internal/config"
	"github.com/noah-isme/codesnap-api/internal/handler"
	"github.com/noah-isme/codesnap-api/internal/middleware"
	"github.com/noah-isme/codesnap-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HealthHandler    *handler.HealthHandler
	ExerciseHandler  *handler.ExerciseHandler
	AttemptHandler   *handler.AttemptHandler
	ExecutionHandler *handler.ExecutionHandler
	AssistantHandler *handler.AssistantHandler
	FeedHandler      *handler.FeedHandler
	JWTMiddleware    fiber.Handler
	// RateLimiter guards grading and execution; nil builds one from cfg
	// backed by RateLimitStorage.
	RateLimiter      fiber.Handler
	RateLimitStorage fiber.Storage
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	health := deps.HealthHandler
	if health == nil {
		health = handler.NewHealthHandler(cfg, nil, nil, nil)
	}
	health.Register(api)

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.RateLimit("sandbox", cfg.RateLimitMax, cfg.RateLimitWindow, deps.RateLimitStorage)
	}

	if deps.ExerciseHandler != nil {
		exercises := api.Group("/exercises")
		deps.ExerciseHandler.Register(exercises, jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
	}

	if deps.AttemptHandler != nil {
		attempts := api.Group("/attempts", jwtMiddleware)
		if deps.FeedHandler != nil {
			deps.FeedHandler.Register(attempts)
		}
		deps.AttemptHandler.Register(attempts, limiter)
	}

	if deps.ExecutionHandler != nil {
		execute := api.Group("/execute", jwtMiddleware, limiter)
		deps.ExecutionHandler.Register(execute)
	}

	if deps.AssistantHandler != nil {
		assistant := api.Group("/assistant", jwtMiddleware)
		deps.AssistantHandler.Register(assistant)
	}
}
