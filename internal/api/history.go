package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minisource/jobengine/internal/history"
)

// HistoryHandler serves per-job execution history, the narrower complement
// to ExecutionHandler's global query surface.
type HistoryHandler struct {
	recorder history.Recorder
}

// NewHistoryHandler builds a HistoryHandler bound to recorder.
func NewHistoryHandler(recorder history.Recorder) *HistoryHandler {
	return &HistoryHandler{recorder: recorder}
}

// ForJob lists the most recent executions of a single job.
// @Summary List a job's execution history
// @Tags history
// @Produce json
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Param limit query int false "Max rows" default(50)
// @Success 200 {object} Response
// @Router /api/v1/history/{group}/{name} [get]
func (h *HistoryHandler) ForJob(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	executions, err := h.recorder.FindByJob(c.Context(), c.Params("name"), pathGroup(c.Params("group")), limit)
	if err != nil {
		return InternalError(c, err.Error())
	}
	return Success(c, executions)
}
