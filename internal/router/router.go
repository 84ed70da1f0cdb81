package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/koreksi-go-api/internal/config"
	"github.com/noah-isme/koreksi-go-api/internal/handler"
	"github.com/noah-isme/koreksi-go-api/internal/middleware"
	"github.com/noah-isme/koreksi-go-api/internal/observability"
	"github.com/noah-isme/koreksi-go-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	IterationHandler  *handler.IterationHandler
	FeedbackHandler   *handler.FeedbackHandler
	SubmissionHandler *handler.SubmissionHandler
	ApprovalHandler   *handler.ApprovalHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AssignmentHandler != nil {
		assignmentGroup := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignmentGroup)
	}

	if deps.IterationHandler != nil {
		slotGroup := api.Group("/slots", jwtMiddleware)
		deps.IterationHandler.Register(slotGroup)
	}

	if deps.FeedbackHandler != nil {
		iterationGroup := api.Group("/iterations", jwtMiddleware)
		deps.FeedbackHandler.Register(iterationGroup)
	}

	if deps.SubmissionHandler != nil {
		submissionGroup := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissionGroup)
	}

	if deps.ApprovalHandler != nil {
		// Verification decisions and activity reports are staff-facing.
		approvalGroup := api.Group("/submissions", jwtMiddleware,
			middleware.RequireRole(service.RoleTeacher, service.RoleAdmin))
		deps.ApprovalHandler.Register(approvalGroup)
	}
}
