package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/launchsignal/api/internal/middleware"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/pkg/response"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// List handles GET /api/jobs
// @Summary      List jobs
// @Tags         Jobs
// @Produce      json
// @Success      200 {array} model.JobStatusResponse
// @Security     BearerAuth
// @Router       /api/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	jobs, err := h.service.List(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list jobs")
	}
	return response.OK(c, jobs)
}

// Get handles GET /api/jobs/:id
// @Summary      Get job status
// @Description  Full job status including per-target results
// @Tags         Jobs
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{id} [get]
func (h *JobHandler) Get(c *fiber.Ctx) error {
	job, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to load job")
	}
	return response.OK(c, job.StatusResponse())
}
