package handlers

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"talentrank/internal/models"
	"talentrank/internal/services"
)

// topResultLimit caps how many scored candidates a status response presents.
// The stored result keeps everything.
const topResultLimit = 30

type StatusHandler struct {
	tasks services.TaskManager
}

func NewStatusHandler(tasks services.TaskManager) *StatusHandler {
	return &StatusHandler{
		tasks: tasks,
	}
}

// HandleGetStatus handles GET /score/:id.
func (h *StatusHandler) HandleGetStatus(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	task, err := h.tasks.Get(taskID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to look up task",
		})
	}

	response := models.TaskStatusResponse{
		ID:      task.ID.String(),
		Status:  string(task.Status),
		Message: task.Message,
	}

	if task.Status == models.StatusCompleted && task.Result != nil {
		response.Result = presentResult(task.Result)
	}
	if task.Status == models.StatusFailed {
		response.ErrorMessage = task.ErrorMessage
	}

	return c.JSON(response)
}

// HandleDeleteTask handles DELETE /score/:id.
func (h *StatusHandler) HandleDeleteTask(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID format",
		})
	}

	if err := h.tasks.Delete(taskID); err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete task",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Task deleted",
	})
}

// presentResult returns a copy ranked by descending score and trimmed to the
// presentation limit.
func presentResult(result *models.ScoringResult) *models.ScoringResult {
	ranked := make([]models.ScoredCandidate, len(result.ScoredCandidates))
	copy(ranked, result.ScoredCandidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topResultLimit {
		ranked = ranked[:topResultLimit]
	}

	return &models.ScoringResult{
		ScoredCandidates: ranked,
		Errors:           result.Errors,
	}
}
