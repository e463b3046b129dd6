package api

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/executor"
	"github.com/minisource/jobengine/internal/models"
	"github.com/minisource/jobengine/internal/store"
	"github.com/minisource/jobengine/internal/trigger"
)

// JobHandler handles job-related HTTP requests against
// engine.SchedulerFacade.
type JobHandler struct {
	facade *engine.SchedulerFacade
}

// NewJobHandler builds a JobHandler bound to facade.
func NewJobHandler(facade *engine.SchedulerFacade) *JobHandler {
	return &JobHandler{facade: facade}
}

// Create schedules a new job+trigger pair.
// @Summary Create a job
// @Description Create a new scheduled job
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body models.CreateJobRequest true "Job creation request"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/jobs [post]
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "invalid request body")
	}
	if req.Name == "" || req.Endpoint == "" {
		return BadRequest(c, "name and endpoint are required")
	}

	group := pathGroup(req.Group)

	var headers map[string]string
	if len(req.Headers) > 0 {
		if err := json.Unmarshal(req.Headers, &headers); err != nil {
			return BadRequest(c, "invalid headers")
		}
	}
	jobData, err := json.Marshal(executor.HTTPJobData{
		Endpoint:   req.Endpoint,
		Method:     req.Method,
		Headers:    headers,
		Payload:    req.JobData,
		Timeout:    req.Timeout,
		MaxRetries: req.MaxRetries,
		RetryDelay: req.RetryDelay,
	})
	if err != nil {
		return InternalError(c, err.Error())
	}

	job := &models.JobDetail{
		Name:        req.Name,
		Group:       group,
		Type:        models.JobTypeHTTP,
		Description: req.Description,
		Durable:     req.Durable,
		Stateful:    req.Stateful,
		JobData:     jobData,
	}

	trigName := req.TriggerName
	if trigName == "" {
		trigName = req.Name + "-trigger"
	}
	trigGroup := pathGroup(req.TriggerGroup)

	trg := buildTrigger(req, trigName, trigGroup, job.Name, group)
	if trg == nil {
		return BadRequest(c, "invalid schedule_type, cron_expr or interval_seconds")
	}

	first, err := h.facade.ScheduleJob(c.Context(), job, trg)
	if err != nil {
		return errToResponse(c, err)
	}

	return Created(c, fiber.Map{
		"job":            job,
		"trigger_name":   trigName,
		"trigger_group":  trigGroup,
		"next_fire_time": first,
	})
}

func buildTrigger(req models.CreateJobRequest, trigName, trigGroup, jobName, jobGroup string) store.Trigger {
	switch req.ScheduleType {
	case "cron":
		if req.CronExpr == "" {
			return nil
		}
		ct, err := trigger.NewCronTrigger(trigName, trigGroup, jobName, jobGroup, req.CronExpr, req.Priority)
		if err != nil {
			return nil
		}
		if req.CalendarName != "" {
			ct.WithCalendar(req.CalendarName)
		}
		return ct
	case "interval":
		startAt := time.Now()
		if req.StartAtSeconds > 0 {
			startAt = time.Now().Add(time.Duration(req.StartAtSeconds) * time.Second)
		}
		st := trigger.NewSimpleTrigger(trigName, trigGroup, jobName, jobGroup, startAt,
			time.Duration(req.IntervalSecs)*time.Second, req.RepeatCount, req.Priority)
		if req.CalendarName != "" {
			st.WithCalendar(req.CalendarName)
		}
		return st
	default:
		return nil
	}
}

// Get retrieves a job by name/group.
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/jobs/{group}/{name} [get]
func (h *JobHandler) Get(c *fiber.Ctx) error {
	job, err := h.facade.GetJobDetail(c.Context(), c.Params("name"), pathGroup(c.Params("group")))
	if err != nil {
		return errToResponse(c, err)
	}
	if job == nil {
		return NotFound(c, "job not found")
	}
	return Success(c, job)
}

// List lists jobs, optionally filtered by group.
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Param group query string false "Filter by group"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} Response
// @Router /api/v1/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	group := c.Query("group")
	keys, err := h.facade.GetJobKeys(c.Context(), group)
	if err != nil {
		return InternalError(c, err.Error())
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	total := int64(len(keys))
	offset := (page - 1) * pageSize
	end := offset + pageSize
	if offset > len(keys) {
		offset = len(keys)
	}
	if end > len(keys) {
		end = len(keys)
	}

	jobs := make([]*models.JobDetail, 0, end-offset)
	for _, k := range keys[offset:end] {
		job, err := h.facade.GetJobDetail(c.Context(), k.Name, k.Group)
		if err != nil || job == nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return SuccessWithMeta(c, jobs, &Meta{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		HasMore:    int64(page*pageSize) < total,
	})
}

// Delete removes a job and every trigger bound to it.
// @Summary Delete a job
// @Tags jobs
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Success 204 "No Content"
// @Router /api/v1/jobs/{group}/{name} [delete]
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	removed, err := h.facade.DeleteJob(c.Context(), c.Params("name"), pathGroup(c.Params("group")))
	if err != nil {
		return errToResponse(c, err)
	}
	if !removed {
		return NotFound(c, "job not found")
	}
	return NoContent(c)
}

// Trigger manually fires a job immediately.
// @Summary Trigger a job
// @Tags jobs
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Success 200 {object} Response
// @Router /api/v1/jobs/{group}/{name}/trigger [post]
func (h *JobHandler) Trigger(c *fiber.Ctx) error {
	var data json.RawMessage
	if len(c.Body()) > 0 {
		data = c.Body()
	}
	if err := h.facade.TriggerJob(c.Context(), c.Params("name"), pathGroup(c.Params("group")), data, true); err != nil {
		return errToResponse(c, err)
	}
	return Success(c, fiber.Map{"triggered": true})
}

// Pause pauses every trigger bound to a job.
// @Summary Pause a job
// @Tags jobs
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Success 200 {object} Response
// @Router /api/v1/jobs/{group}/{name}/pause [post]
func (h *JobHandler) Pause(c *fiber.Ctx) error {
	if err := h.facade.PauseJob(c.Context(), c.Params("name"), pathGroup(c.Params("group"))); err != nil {
		return errToResponse(c, err)
	}
	return Success(c, fiber.Map{"paused": true})
}

// Resume resumes every trigger bound to a job.
// @Summary Resume a job
// @Tags jobs
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Success 200 {object} Response
// @Router /api/v1/jobs/{group}/{name}/resume [post]
func (h *JobHandler) Resume(c *fiber.Ctx) error {
	if err := h.facade.ResumeJob(c.Context(), c.Params("name"), pathGroup(c.Params("group"))); err != nil {
		return errToResponse(c, err)
	}
	return Success(c, fiber.Map{"resumed": true})
}

// Triggers lists the triggers bound to a job.
// @Summary List a job's triggers
// @Tags jobs
// @Produce json
// @Param group path string true "Job group"
// @Param name path string true "Job name"
// @Success 200 {object} Response
// @Router /api/v1/jobs/{group}/{name}/triggers [get]
func (h *JobHandler) Triggers(c *fiber.Ctx) error {
	triggers, err := h.facade.GetTriggersForJob(c.Context(), c.Params("name"), pathGroup(c.Params("group")))
	if err != nil {
		return InternalError(c, err.Error())
	}
	snapshots := make([]models.TriggerSnapshot, 0, len(triggers))
	for _, t := range triggers {
		state, _ := h.facade.GetTriggerState(c.Context(), t.Key().Name, t.Key().Group)
		snapshots = append(snapshots, t.Snapshot(state))
	}
	return Success(c, snapshots)
}
