package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

type studentApplicationService interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	GetStudent(ctx context.Context, studentID string) (*models.Student, error)
	SaveStudent(ctx context.Context, input services.SaveStudentInput) (*models.Student, error)
	DeleteStudent(ctx context.Context, studentID string) error
	AddNote(ctx context.Context, studentID, content string) (*models.StudentNote, error)
	UpdateNote(ctx context.Context, studentID, noteID, content string) (*models.StudentNote, error)
	DeleteNote(ctx context.Context, studentID, noteID string) error
}

type studentSessionLister interface {
	GetSessionsForStudent(ctx context.Context, studentID string) ([]models.Session, error)
}

type StudentHandler struct {
	service  studentApplicationService
	sessions studentSessionLister
}

func NewStudentHandler(service *services.StudentService, sessions *services.SessionService) *StudentHandler {
	return &StudentHandler{service: service, sessions: sessions}
}

type saveStudentRequest struct {
	Name        string   `json:"name" validate:"required"`
	Phone       *string  `json:"phone"`
	Balance     *float64 `json:"balance"`
	Goals       []string `json:"goals"`
	WeightKG    *float64 `json:"weight_kg"`
	HeightCM    *float64 `json:"height_cm"`
	Birthday    *string  `json:"birthday"`
	MemberSince *string  `json:"member_since"`
	Description *string  `json:"description"`
}

type noteRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *StudentHandler) ListStudents(c *fiber.Ctx) error {
	students, err := h.service.ListStudents(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"students": students})
}

func (h *StudentHandler) GetStudent(c *fiber.Ctx) error {
	student, err := h.service.GetStudent(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"student": student})
}

func (h *StudentHandler) CreateStudent(c *fiber.Ctx) error {
	return h.saveStudent(c, "")
}

func (h *StudentHandler) UpdateStudent(c *fiber.Ctx) error {
	return h.saveStudent(c, c.Params("id"))
}

func (h *StudentHandler) saveStudent(c *fiber.Ctx, studentID string) error {
	var req saveStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name must not be empty"})
	}

	birthday, err := parseDay(req.Birthday)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "birthday must be YYYY-MM-DD"})
	}
	memberSince, err := parseDay(req.MemberSince)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "member_since must be YYYY-MM-DD"})
	}

	// an omitted balance keeps the current value on update; resetting it to
	// zero requires sending an explicit 0
	var balance float64
	if studentID != "" {
		current, err := h.service.GetStudent(c.Context(), studentID)
		if err != nil {
			return mapServiceError(c, err)
		}
		balance = float64(current.Balance)
	}
	if req.Balance != nil {
		balance = *req.Balance
	}

	student, err := h.service.SaveStudent(c.Context(), services.SaveStudentInput{
		ID:          studentID,
		Name:        req.Name,
		Phone:       req.Phone,
		Balance:     balance,
		Goals:       req.Goals,
		WeightKG:    req.WeightKG,
		HeightCM:    req.HeightCM,
		Birthday:    birthday,
		MemberSince: memberSince,
		Description: req.Description,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	status := fiber.StatusOK
	if studentID == "" {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"student": student})
}

func (h *StudentHandler) DeleteStudent(c *fiber.Ctx) error {
	if err := h.service.DeleteStudent(c.Context(), c.Params("id")); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *StudentHandler) GetStudentSessions(c *fiber.Ctx) error {
	if _, err := h.service.GetStudent(c.Context(), c.Params("id")); err != nil {
		return mapServiceError(c, err)
	}
	sessions, err := h.sessions.GetSessionsForStudent(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *StudentHandler) AddNote(c *fiber.Ctx) error {
	var req noteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}

	note, err := h.service.AddNote(c.Context(), c.Params("id"), req.Content)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"note": note})
}

func (h *StudentHandler) UpdateNote(c *fiber.Ctx) error {
	var req noteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}

	note, err := h.service.UpdateNote(c.Context(), c.Params("id"), c.Params("noteId"), req.Content)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"note": note})
}

func (h *StudentHandler) DeleteNote(c *fiber.Ctx) error {
	if err := h.service.DeleteNote(c.Context(), c.Params("id"), c.Params("noteId")); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
