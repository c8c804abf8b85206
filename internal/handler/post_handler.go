package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/launchsignal/api/internal/middleware"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/pkg/response"
)

type PostHandler struct {
	service   *service.PostService
	validator *validator.Validate
}

func NewPostHandler(svc *service.PostService, v *validator.Validate) *PostHandler {
	return &PostHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/posts
// @Summary      List scraped posts
// @Tags         Posts
// @Produce      json
// @Success      200 {array} model.Post
// @Security     BearerAuth
// @Router       /api/posts [get]
func (h *PostHandler) List(c *fiber.Ctx) error {
	posts, err := h.service.List(c.Context(), middleware.GetTenantID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to list posts")
	}
	return response.OK(c, posts)
}

// Get handles GET /api/posts/:id
// @Summary      Get a post
// @Tags         Posts
// @Produce      json
// @Param        id path string true "Post ID"
// @Success      200 {object} model.Post
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/posts/{id} [get]
func (h *PostHandler) Get(c *fiber.Ctx) error {
	post, err := h.service.Get(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.ServiceError(c, "Failed to load post")
	}
	return response.OK(c, post)
}

// Delete handles DELETE /api/posts/:id
// @Summary      Delete a post
// @Tags         Posts
// @Param        id path string true "Post ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/posts/{id} [delete]
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetTenantID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.ServiceError(c, "Failed to delete post")
	}
	return response.NoContent(c)
}

// Launches handles GET /api/posts/launches
// @Summary      List posts classified as product launches
// @Description  Posts judged to announce a product launch, filtered by a minimum confidence score
// @Tags         Posts
// @Produce      json
// @Param        minScore query int false "Minimum score (default 70)"
// @Success      200 {array} model.Post
// @Security     BearerAuth
// @Router       /api/posts/launches [get]
func (h *PostHandler) Launches(c *fiber.Ctx) error {
	minScore := 70
	if raw := c.Query("minScore"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 100 {
			return response.ValidationError(c, "minScore must be between 0 and 100", nil)
		}
		minScore = parsed
	}

	posts, err := h.service.ListLaunches(c.Context(), middleware.GetTenantID(c), minScore)
	if err != nil {
		return response.ServiceError(c, "Failed to list launches")
	}
	return response.OK(c, posts)
}

// Analyze handles POST /api/posts/analyze
// @Summary      Start a post analysis job
// @Description  Queue asynchronous launch classification of the selected posts
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Param        request body model.AnalyzePostsRequest true "Targets"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/posts/analyze [post]
func (h *PostHandler) Analyze(c *fiber.Ctx) error {
	var req model.AnalyzePostsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.StartAnalysis(c.Context(), middleware.GetTenantID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrNoTargets) {
			return response.ValidationError(c, "No posts to analyze", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.ServiceError(c, "Failed to start analysis")
	}

	return response.Accepted(c, job)
}
