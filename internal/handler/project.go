package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/homereel/api/internal/middleware"
	"github.com/homereel/api/internal/model"
	"github.com/homereel/api/internal/service"
	"github.com/homereel/api/pkg/response"
)

type ProjectHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewProjectHandler(svc *service.GenerationService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req model.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.service.CreateProject(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, project)
}

// Delete handles DELETE /api/projects/:projectId
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	if err := h.service.DeleteProject(c.Context(), middleware.GetUserID(c), projectID); err != nil {
		return response.FromError(c, err)
	}

	return response.NoContent(c)
}
