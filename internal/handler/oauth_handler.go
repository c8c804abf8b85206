package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/launchsignal/api/internal/middleware"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/pkg/response"
)

type OAuthHandler struct {
	service *service.OAuthService
}

func NewOAuthHandler(svc *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{service: svc}
}

// Authorize handles GET /api/oauth/:provider/authorize
// @Summary      Start mailbox authorization
// @Description  Returns the provider consent URL for connecting a mailbox
// @Tags         OAuth
// @Produce      json
// @Param        provider path string true "Provider" Enums(google, microsoft)
// @Success      200 {object} model.AuthorizeURLResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/oauth/{provider}/authorize [get]
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	kind := model.ProviderKind(c.Params("provider"))

	result, err := h.service.AuthorizeURL(c.Context(), middleware.GetUserID(c), middleware.GetTenantID(c), kind)
	if err != nil {
		if errors.Is(err, service.ErrUnknownProvider) {
			return response.ValidationError(c, "Unknown provider", nil)
		}
		return response.ServiceError(c, "Failed to start authorization")
	}

	return response.OK(c, result)
}

// Callback handles GET /api/oauth/callback
// @Summary      Complete mailbox authorization
// @Description  Redeems the one-time state and stores the mailbox credential
// @Tags         OAuth
// @Produce      json
// @Param        state query string true "State issued by authorize"
// @Param        code  query string true "Authorization code"
// @Success      200 {object} model.MailProviderInfo
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/oauth/callback [get]
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		return response.ValidationError(c, "Missing state or code", nil)
	}

	info, err := h.service.HandleCallback(c.Context(), state, code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			return response.ValidationError(c, "Invalid or expired state", nil)
		}
		return response.ServiceError(c, "Failed to connect mailbox")
	}

	return response.OK(c, info)
}

// List handles GET /api/oauth/providers
// @Summary      List connected mailboxes
// @Tags         OAuth
// @Produce      json
// @Success      200 {array} model.MailProviderInfo
// @Security     BearerAuth
// @Router       /api/oauth/providers [get]
func (h *OAuthHandler) List(c *fiber.Ctx) error {
	providers, err := h.service.List(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list providers")
	}
	return response.OK(c, providers)
}

// Disconnect handles DELETE /api/oauth/providers/:id
// @Summary      Disconnect a mailbox
// @Tags         OAuth
// @Param        id path string true "Provider ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/oauth/providers/{id} [delete]
func (h *OAuthHandler) Disconnect(c *fiber.Ctx) error {
	err := h.service.Disconnect(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Provider not found")
		}
		return response.ServiceError(c, "Failed to disconnect provider")
	}
	return response.NoContent(c)
}
