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

type CompanyHandler struct {
	service   *service.CompanyService
	validator *validator.Validate
}

func NewCompanyHandler(svc *service.CompanyService, v *validator.Validate) *CompanyHandler {
	return &CompanyHandler{
		service:   svc,
		validator: v,
	}
}

// Add handles POST /api/companies
// @Summary      Add a watched company
// @Tags         Companies
// @Accept       json
// @Produce      json
// @Param        request body model.AddCompanyRequest true "Company"
// @Success      201 {object} model.Company
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/companies [post]
func (h *CompanyHandler) Add(c *fiber.Ctx) error {
	var req model.AddCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	company, err := h.service.Add(c.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrCompanyExists) {
			return response.ValidationError(c, "Company is already being watched", nil)
		}
		return response.ServiceError(c, "Failed to add company")
	}

	return response.Created(c, company)
}

// List handles GET /api/companies
// @Summary      List watched companies
// @Tags         Companies
// @Produce      json
// @Success      200 {array} model.Company
// @Security     BearerAuth
// @Router       /api/companies [get]
func (h *CompanyHandler) List(c *fiber.Ctx) error {
	companies, err := h.service.List(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list companies")
	}
	return response.OK(c, companies)
}

// Get handles GET /api/companies/:id
// @Summary      Get a company
// @Tags         Companies
// @Produce      json
// @Param        id path string true "Company ID"
// @Success      200 {object} model.Company
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/companies/{id} [get]
func (h *CompanyHandler) Get(c *fiber.Ctx) error {
	company, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Company not found")
		}
		return response.ServiceError(c, "Failed to load company")
	}
	return response.OK(c, company)
}

// ScrapePosts handles POST /api/companies/:id/scrape-posts
// @Summary      Start a company post scrape job
// @Description  Queue an asynchronous fetch of the company's recent posts
// @Tags         Companies
// @Accept       json
// @Produce      json
// @Param        id path string true "Company ID"
// @Param        request body model.ScrapeCompanyPostsRequest false "Options"
// @Success      202 {object} model.JobStartResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/companies/{id}/scrape-posts [post]
func (h *CompanyHandler) ScrapePosts(c *fiber.Ctx) error {
	var req model.ScrapeCompanyPostsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	job, err := h.service.StartPostScrape(c.Context(), middleware.GetTenantID(c), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Company not found")
		}
		return response.ServiceError(c, "Failed to start scrape")
	}

	return response.Accepted(c, job)
}
