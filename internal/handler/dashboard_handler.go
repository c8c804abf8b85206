package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/launchsignal/api/internal/middleware"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/pkg/response"
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats handles GET /api/dashboard/stats
// @Summary      Tenant pipeline overview
// @Description  Company, post and launch counts, last-week activity and the top scoring posts
// @Tags         Dashboard
// @Produce      json
// @Success      200 {object} model.DashboardStats
// @Security     BearerAuth
// @Router       /api/dashboard/stats [get]
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to load dashboard stats")
	}
	return response.OK(c, stats)
}
