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

type ProfileHandler struct {
	service   *service.ProfileService
	validator *validator.Validate
}

func NewProfileHandler(svc *service.ProfileService, v *validator.Validate) *ProfileHandler {
	return &ProfileHandler{
		service:   svc,
		validator: v,
	}
}

// Add handles POST /api/profiles
// @Summary      Add a lead profile
// @Description  Register a LinkedIn profile URL for later scraping
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Param        request body model.AddProfileRequest true "Profile"
// @Success      201 {object} model.Profile
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/profiles [post]
func (h *ProfileHandler) Add(c *fiber.Ctx) error {
	var req model.AddProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	profile, err := h.service.Add(c.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		return response.ServiceError(c, "Failed to add profile")
	}

	return response.Created(c, profile)
}

// List handles GET /api/profiles
// @Summary      List profiles
// @Tags         Profiles
// @Produce      json
// @Success      200 {array} model.Profile
// @Security     BearerAuth
// @Router       /api/profiles [get]
func (h *ProfileHandler) List(c *fiber.Ctx) error {
	profiles, err := h.service.List(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list profiles")
	}
	return response.OK(c, profiles)
}

// Get handles GET /api/profiles/:id
// @Summary      Get a profile
// @Tags         Profiles
// @Produce      json
// @Param        id path string true "Profile ID"
// @Success      200 {object} model.Profile
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/profiles/{id} [get]
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	profile, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Profile not found")
		}
		return response.ServiceError(c, "Failed to load profile")
	}
	return response.OK(c, profile)
}

// Delete handles DELETE /api/profiles/:id
// @Summary      Delete a profile
// @Tags         Profiles
// @Param        id path string true "Profile ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/profiles/{id} [delete]
func (h *ProfileHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Profile not found")
		}
		return response.ServiceError(c, "Failed to delete profile")
	}
	return response.NoContent(c)
}

// Scrape handles POST /api/profiles/scrape
// @Summary      Start a profile scrape job
// @Description  Queue an asynchronous scrape of the selected profiles
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Param        request body model.ScrapeProfilesRequest true "Targets"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/profiles/scrape [post]
func (h *ProfileHandler) Scrape(c *fiber.Ctx) error {
	var req model.ScrapeProfilesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.StartScrape(c.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrNoTargets) {
			return response.ValidationError(c, "No profiles to scrape", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Profile not found")
		}
		return response.ServiceError(c, "Failed to start scrape")
	}

	return response.Accepted(c, job)
}
