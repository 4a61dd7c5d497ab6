package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"talentrank/internal/llm"
	"talentrank/internal/models"
	"talentrank/internal/services"
)

// maxJobDescriptionLen bounds the free-text job description at the boundary.
const maxJobDescriptionLen = 200

type ScoreHandler struct {
	tasks services.TaskManager
}

func NewScoreHandler(tasks services.TaskManager) *ScoreHandler {
	return &ScoreHandler{
		tasks: tasks,
	}
}

// HandleScore handles POST /score. It validates the request, creates a
// pending task and returns its id immediately; scoring happens in the
// background.
func (h *ScoreHandler) HandleScore(c *fiber.Ctx) error {
	var req models.ScoreRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.JobDescription = strings.TrimSpace(req.JobDescription)
	if req.JobDescription == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_description is required",
		})
	}

	if len(req.JobDescription) > maxJobDescriptionLen {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_description must be at most 200 characters",
		})
	}

	if len(req.Candidates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "candidates must not be empty",
		})
	}

	if req.ModelProvider == "" {
		req.ModelProvider = llm.ProviderOpenAI
	}
	if !llm.SupportedProvider(req.ModelProvider) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "model_provider must be one of: openai, gemini",
		})
	}

	task, err := h.tasks.Create(req.JobDescription, req.Candidates, req.ModelProvider)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create scoring task",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.ScoreResponse{
		ID:     task.ID.String(),
		Status: string(task.Status),
	})
}
