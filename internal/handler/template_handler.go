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

type TemplateHandler struct {
	service   *service.TemplateService
	validator *validator.Validate
}

func NewTemplateHandler(svc *service.TemplateService, v *validator.Validate) *TemplateHandler {
	return &TemplateHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/templates
// @Summary      Create an outreach template
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Param        request body model.TemplateRequest true "Template"
// @Success      201 {object} model.EmailTemplate
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/templates [post]
func (h *TemplateHandler) Create(c *fiber.Ctx) error {
	var req model.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	tmpl, err := h.service.Create(c.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		return response.ServiceError(c, "Failed to create template")
	}

	return response.Created(c, tmpl)
}

// List handles GET /api/templates
// @Summary      List templates visible to the workspace
// @Description  Shared default templates plus the workspace's own
// @Tags         Templates
// @Produce      json
// @Success      200 {array} model.EmailTemplate
// @Security     BearerAuth
// @Router       /api/templates [get]
func (h *TemplateHandler) List(c *fiber.Ctx) error {
	templates, err := h.service.List(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list templates")
	}
	return response.OK(c, templates)
}

// Get handles GET /api/templates/:id
// @Summary      Get a template
// @Tags         Templates
// @Produce      json
// @Param        id path string true "Template ID"
// @Success      200 {object} model.EmailTemplate
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/templates/{id} [get]
func (h *TemplateHandler) Get(c *fiber.Ctx) error {
	tmpl, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template not found")
		}
		return response.ServiceError(c, "Failed to load template")
	}
	return response.OK(c, tmpl)
}

// Update handles PUT /api/templates/:id
// @Summary      Update a template
// @Description  Shared default templates are read-only
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Param        id path string true "Template ID"
// @Param        request body model.TemplateRequest true "Template"
// @Success      200 {object} model.EmailTemplate
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/templates/{id} [put]
func (h *TemplateHandler) Update(c *fiber.Ctx) error {
	var req model.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	tmpl, err := h.service.Update(c.Context(), middleware.GetTenantID(c), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template not found")
		}
		return response.ServiceError(c, "Failed to update template")
	}

	return response.OK(c, tmpl)
}

// Delete handles DELETE /api/templates/:id
// @Summary      Delete a template
// @Description  Shared default templates cannot be deleted
// @Tags         Templates
// @Param        id path string true "Template ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/templates/{id} [delete]
func (h *TemplateHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template not found")
		}
		return response.ServiceError(c, "Failed to delete template")
	}
	return response.NoContent(c)
}
