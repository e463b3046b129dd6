package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"

	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/history"
)

// Handlers bundles every HTTP handler the router wires up.
type Handlers struct {
	Job       *JobHandler
	Execution *ExecutionHandler
	History   *HistoryHandler
	Health    *HealthHandler
}

// NewHandlers builds the full Handlers bundle from the engine facade and
// execution recorder, the two collaborators the HTTP layer depends on.
func NewHandlers(facade *engine.SchedulerFacade, recorder history.Recorder) *Handlers {
	return &Handlers{
		Job:       NewJobHandler(facade),
		Execution: NewExecutionHandler(recorder),
		History:   NewHistoryHandler(recorder),
		Health:    NewHealthHandler(facade),
	}
}

// SetupRouter mounts the middleware stack and every route group onto app.
func SetupRouter(app *fiber.App, h *Handlers) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/healthz", h.Health.Live)
	app.Get("/readyz", h.Health.Ready)
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")

	jobs := v1.Group("/jobs")
	jobs.Post("/", h.Job.Create)
	jobs.Get("/", h.Job.List)
	jobs.Get("/:group/:name", h.Job.Get)
	jobs.Delete("/:group/:name", h.Job.Delete)
	jobs.Post("/:group/:name/trigger", h.Job.Trigger)
	jobs.Post("/:group/:name/pause", h.Job.Pause)
	jobs.Post("/:group/:name/resume", h.Job.Resume)
	jobs.Get("/:group/:name/triggers", h.Job.Triggers)

	executions := v1.Group("/executions")
	executions.Get("/", h.Execution.List)
	executions.Get("/stats", h.Execution.Stats)
	executions.Get("/:id", h.Execution.Get)

	hist := v1.Group("/history")
	hist.Get("/:group/:name", h.History.ForJob)
}
