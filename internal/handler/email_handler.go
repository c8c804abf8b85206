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

type EmailHandler struct {
	service   *service.EmailService
	validator *validator.Validate
}

func NewEmailHandler(svc *service.EmailService, v *validator.Validate) *EmailHandler {
	return &EmailHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/emails
// @Summary      List outreach emails
// @Tags         Emails
// @Produce      json
// @Success      200 {array} model.Email
// @Security     BearerAuth
// @Router       /api/emails [get]
func (h *EmailHandler) List(c *fiber.Ctx) error {
	emails, err := h.service.List(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list emails")
	}
	return response.OK(c, emails)
}

// Get handles GET /api/emails/:id
// @Summary      Get an email
// @Tags         Emails
// @Produce      json
// @Param        id path string true "Email ID"
// @Success      200 {object} model.Email
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/emails/{id} [get]
func (h *EmailHandler) Get(c *fiber.Ctx) error {
	email, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Email not found")
		}
		return response.ServiceError(c, "Failed to load email")
	}
	return response.OK(c, email)
}

// Delete handles DELETE /api/emails/:id
// @Summary      Delete a draft email
// @Description  Drafts can be deleted; sent emails are immutable
// @Tags         Emails
// @Param        id path string true "Email ID"
// @Success      204
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/emails/{id} [delete]
func (h *EmailHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Email not found")
		}
		if errors.Is(err, store.ErrEmailImmutable) {
			return response.ValidationError(c, "Sent emails cannot be deleted", nil)
		}
		return response.ServiceError(c, "Failed to delete email")
	}
	return response.NoContent(c)
}

// Generate handles POST /api/emails/generate
// @Summary      Start an email generation job
// @Description  Queue draft generation for the selected profiles from a launch post and template
// @Tags         Emails
// @Accept       json
// @Produce      json
// @Param        request body model.GenerateEmailsRequest true "Generation request"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/emails/generate [post]
func (h *EmailHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateEmailsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.StartGeneration(c.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.ServiceError(c, "Failed to start generation")
	}

	return response.Accepted(c, job)
}

// Send handles POST /api/emails/send
// @Summary      Start an email send job
// @Description  Queue delivery of the selected draft emails
// @Tags         Emails
// @Accept       json
// @Produce      json
// @Param        request body model.SendEmailsRequest true "Send request"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/emails/send [post]
func (h *EmailHandler) Send(c *fiber.Ctx) error {
	var req model.SendEmailsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.StartSend(c.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, err.Error())
		}
		if errors.Is(err, service.ErrEmailNotDraft) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, "Failed to start send")
	}

	return response.Accepted(c, job)
}
