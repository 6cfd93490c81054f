package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

type taskApplicationService interface {
	ListPendingTasks(ctx context.Context, now time.Time) ([]models.Task, error)
	CountPendingTasks(ctx context.Context, now time.Time) (int, error)
}

type TaskHandler struct {
	service taskApplicationService
	clock   func() time.Time
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service, clock: time.Now}
}

// resolveNow lets callers pin the clock with a ?now=RFC3339 query, which keeps
// the overdue computation reproducible. Without it the server clock applies.
func (h *TaskHandler) resolveNow(c *fiber.Ctx) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("now"))
	if raw == "" {
		return h.clock(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (h *TaskHandler) ListPendingTasks(c *fiber.Ctx) error {
	now, err := h.resolveNow(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "now must be a valid RFC3339 timestamp"})
	}

	tasks, err := h.service.ListPendingTasks(c.Context(), now)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *TaskHandler) CountPendingTasks(c *fiber.Ctx) error {
	now, err := h.resolveNow(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "now must be a valid RFC3339 timestamp"})
	}

	count, err := h.service.CountPendingTasks(c.Context(), now)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}
