package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/minisource/jobengine/internal/history"
	"github.com/minisource/jobengine/internal/models"
)

// ExecutionHandler serves execution-history queries through
// history.Recorder.
type ExecutionHandler struct {
	recorder history.Recorder
}

// NewExecutionHandler builds an ExecutionHandler bound to recorder.
func NewExecutionHandler(recorder history.Recorder) *ExecutionHandler {
	return &ExecutionHandler{recorder: recorder}
}

// Get retrieves a single execution by its fire-instance id.
// @Summary Get an execution
// @Tags executions
// @Produce json
// @Param id path string true "Fire instance id"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/executions/{id} [get]
func (h *ExecutionHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "invalid fire instance id")
	}
	exec, err := h.recorder.FindByID(c.Context(), id)
	if err != nil {
		return InternalError(c, err.Error())
	}
	if exec == nil {
		return NotFound(c, "execution not found")
	}
	return Success(c, exec)
}

// List queries executions by job, status and time range.
// @Summary List executions
// @Tags executions
// @Produce json
// @Param job_name query string false "Filter by job name"
// @Param job_group query string false "Filter by job group"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} Response
// @Router /api/v1/executions [get]
func (h *ExecutionHandler) List(c *fiber.Ctx) error {
	filter := models.ExecutionFilter{
		JobName:  c.Query("job_name"),
		JobGroup: c.Query("job_group"),
		Status:   models.ExecutionStatus(c.Query("status")),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
	result, err := h.recorder.Query(c.Context(), filter)
	if err != nil {
		return InternalError(c, err.Error())
	}
	return SuccessWithMeta(c, result.Executions, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// Stats reports aggregate execution counters, optionally scoped to a job.
// @Summary Execution statistics
// @Tags executions
// @Produce json
// @Param job_name query string false "Filter by job name"
// @Param job_group query string false "Filter by job group"
// @Success 200 {object} Response
// @Router /api/v1/executions/stats [get]
func (h *ExecutionHandler) Stats(c *fiber.Ctx) error {
	var jobName, jobGroup *string
	if v := c.Query("job_name"); v != "" {
		jobName = &v
	}
	if v := c.Query("job_group"); v != "" {
		jobGroup = &v
	}
	end := time.Now()
	start := end.AddDate(-1, 0, 0)
	stats, err := h.recorder.Stats(c.Context(), jobName, jobGroup, start, end)
	if err != nil {
		return InternalError(c, err.Error())
	}
	return Success(c, stats)
}
