package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/launchsignal/api/internal/middleware"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/pkg/response"
)

type CampaignHandler struct {
	service   *service.CampaignService
	validator *validator.Validate
}

func NewCampaignHandler(svc *service.CampaignService, v *validator.Validate) *CampaignHandler {
	return &CampaignHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/campaigns
// @Summary      Create an outreach campaign
// @Description  Group a launch post with the profiles to reach about it
// @Tags         Campaigns
// @Accept       json
// @Produce      json
// @Param        request body model.CreateCampaignRequest true "Campaign"
// @Success      201 {object} model.Campaign
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns [post]
func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	var req model.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	campaign, err := h.service.Create(c.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Post or profile not found")
		}
		return response.ServiceError(c, "Failed to create campaign")
	}

	return response.Created(c, campaign)
}

// List handles GET /api/campaigns
// @Summary      List campaigns
// @Tags         Campaigns
// @Produce      json
// @Param        status query string false "Filter by status (draft, active, completed)"
// @Success      200 {array} model.Campaign
// @Security     BearerAuth
// @Router       /api/campaigns [get]
func (h *CampaignHandler) List(c *fiber.Ctx) error {
	status := model.CampaignStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return response.ValidationError(c, "status must be one of draft, active, completed", nil)
	}

	campaigns, err := h.service.List(c.Context(), middleware.GetTenantID(c), status)
	if err != nil {
		return response.ServiceError(c, "Failed to list campaigns")
	}
	return response.OK(c, campaigns)
}

// Get handles GET /api/campaigns/:id
// @Summary      Get a campaign with its per-profile outreach state
// @Tags         Campaigns
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Success      200 {object} model.Campaign
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns/{id} [get]
func (h *CampaignHandler) Get(c *fiber.Ctx) error {
	campaign, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Campaign not found")
		}
		return response.ServiceError(c, "Failed to load campaign")
	}
	return response.OK(c, campaign)
}

// Delete handles DELETE /api/campaigns/:id
// @Summary      Delete a campaign
// @Tags         Campaigns
// @Param        id path string true "Campaign ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns/{id} [delete]
func (h *CampaignHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Campaign not found")
		}
		return response.ServiceError(c, "Failed to delete campaign")
	}
	return response.NoContent(c)
}

// AddProfiles handles POST /api/campaigns/:id/add-profiles
// @Summary      Link more profiles into a campaign
// @Tags         Campaigns
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Param        request body model.AddCampaignProfilesRequest true "Profiles"
// @Success      200 {object} model.Campaign
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns/{id}/add-profiles [post]
func (h *CampaignHandler) AddProfiles(c *fiber.Ctx) error {
	var req model.AddCampaignProfilesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	campaign, err := h.service.AddProfiles(c.Context(), middleware.GetTenantID(c), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrProfilesAlreadyLinked) {
			return response.ValidationError(c, "All profiles already linked to this campaign", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Campaign or profile not found")
		}
		return response.ServiceError(c, "Failed to add profiles")
	}

	return response.OK(c, campaign)
}

// RemoveProfile handles DELETE /api/campaigns/:id/profiles/:profileId
// @Summary      Unlink a profile from a campaign
// @Tags         Campaigns
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Param        profileId path string true "Profile ID"
// @Success      200 {object} model.Campaign
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns/{id}/profiles/{profileId} [delete]
func (h *CampaignHandler) RemoveProfile(c *fiber.Ctx) error {
	campaign, err := h.service.RemoveProfile(c.Context(), middleware.GetTenantID(c), c.Params("id"), c.Params("profileId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Profile not found in this campaign")
		}
		return response.ServiceError(c, "Failed to remove profile")
	}
	return response.OK(c, campaign)
}

// GenerateEmails handles POST /api/campaigns/:id/generate-emails
// @Summary      Draft an email for every pending profile in the campaign
// @Tags         Campaigns
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Param        request body model.CampaignEmailsRequest true "Template"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns/{id}/generate-emails [post]
func (h *CampaignHandler) GenerateEmails(c *fiber.Ctx) error {
	var req model.CampaignEmailsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.StartGeneration(c.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrNoTargets) {
			return response.ValidationError(c, "No pending profiles in this campaign", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Campaign or template not found")
		}
		return response.ServiceError(c, "Failed to start email generation")
	}

	return response.Accepted(c, job)
}

// SendEmails handles POST /api/campaigns/:id/send-emails
// @Summary      Deliver every generated draft in the campaign
// @Tags         Campaigns
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/campaigns/{id}/send-emails [post]
func (h *CampaignHandler) SendEmails(c *fiber.Ctx) error {
	job, err := h.service.StartSend(c.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrNoTargets) {
			return response.ValidationError(c, "No generated drafts in this campaign", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Campaign not found")
		}
		return response.ServiceError(c, "Failed to start email sending")
	}

	return response.Accepted(c, job)
}
