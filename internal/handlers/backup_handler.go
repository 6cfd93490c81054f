package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

type backupApplicationService interface {
	Snapshot(ctx context.Context) (*services.Snapshot, error)
	Restore(ctx context.Context, snapshot *services.Snapshot) error
}

type BackupHandler struct {
	service backupApplicationService
}

func NewBackupHandler(service *services.BackupService) *BackupHandler {
	return &BackupHandler{service: service}
}

func (h *BackupHandler) Snapshot(c *fiber.Ctx) error {
	snapshot, err := h.service.Snapshot(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(snapshot)
}

// Restore installs a full replacement data set. This is an overwrite, not a
// merge.
func (h *BackupHandler) Restore(c *fiber.Ctx) error {
	var snapshot services.Snapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.service.Restore(c.Context(), &snapshot); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
