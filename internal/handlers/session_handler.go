package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

type sessionApplicationService interface {
	ScheduleSession(ctx context.Context, input services.ScheduleSessionInput) (*models.Session, error)
	UpdateSession(ctx context.Context, sessionID string, input services.ScheduleSessionInput) (*models.Session, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CancelSession(ctx context.Context, sessionID string) (*models.Session, error)
	CompleteSession(ctx context.Context, sessionID string, confirmedStudentIDs []string) (*models.Session, error)
}

type SessionHandler struct {
	service sessionApplicationService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type scheduleSessionRequest struct {
	Date            string          `json:"date" validate:"required"`
	StartTime       string          `json:"start_time" validate:"required"`
	DurationMinutes int             `json:"duration_minutes" validate:"required"`
	StudentIDs      []string        `json:"student_ids" validate:"required,min=1"`
	Goals           []string        `json:"goals"`
	SessionType     string          `json:"session_type"`
	PricePerStudent *int            `json:"price_per_student"`
	BalanceEntries  map[string]*int `json:"balance_entries"`
	Notes           *string         `json:"notes"`
}

type completeSessionRequest struct {
	ConfirmedStudentIDs []string `json:"confirmed_student_ids"`
}

func parseScheduleRequest(c *fiber.Ctx) (*services.ScheduleSessionInput, error) {
	var req scheduleSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date, start_time, duration_minutes and student_ids are required"})
	}

	day, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}

	return &services.ScheduleSessionInput{
		Date:            day,
		StartTime:       strings.TrimSpace(req.StartTime),
		DurationMinutes: req.DurationMinutes,
		StudentIDs:      req.StudentIDs,
		Goals:           req.Goals,
		SessionType:     strings.TrimSpace(req.SessionType),
		PricePerStudent: req.PricePerStudent,
		BalanceEntries:  req.BalanceEntries,
		Notes:           req.Notes,
	}, nil
}

func (h *SessionHandler) ScheduleSession(c *fiber.Ctx) error {
	input, err := parseScheduleRequest(c)
	if input == nil {
		return err
	}

	session, err := h.service.ScheduleSession(c.Context(), *input)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	input, err := parseScheduleRequest(c)
	if input == nil {
		return err
	}

	session, err := h.service.UpdateSession(c.Context(), c.Params("id"), *input)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.service.ListSessions(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.service.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.service.DeleteSession(c.Context(), c.Params("id")); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	session, err := h.service.CancelSession(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

// CompleteSession takes the confirmed attendee list, which may differ from the
// scheduled one: absentees removed, walk-ins added.
func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	var req completeSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.service.CompleteSession(c.Context(), c.Params("id"), req.ConfirmedStudentIDs)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}
