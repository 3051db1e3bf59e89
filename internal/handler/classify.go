package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/homereel/api/internal/client"
	"github.com/homereel/api/internal/model"
	"github.com/homereel/api/pkg/response"
)

// classifyConcurrency bounds parallel vision calls per request.
const classifyConcurrency = 4

type ClassifyHandler struct {
	classifier client.RoomClassifier
	validator  *validator.Validate
}

func NewClassifyHandler(classifier client.RoomClassifier, v *validator.Validate) *ClassifyHandler {
	return &ClassifyHandler{
		classifier: classifier,
		validator:  v,
	}
}

// Classify handles POST /api/classify
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	var req model.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	results, err := h.classifier.ClassifyBatch(c.Context(), req.ImageURLs, classifyConcurrency)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, &model.ClassifyResponse{Results: results})
}
