package handlers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

var validate = validator.New()

func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrStudentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, services.ErrNoteNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Note not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}

// parseDay reads an optional "YYYY-MM-DD" value.
func parseDay(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, err
	}
	return &day, nil
}
