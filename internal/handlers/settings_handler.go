package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

type settingsApplicationService interface {
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	SaveSettings(ctx context.Context, settings models.AppSettings) (*models.AppSettings, error)
}

type SettingsHandler struct {
	service settingsApplicationService
}

func NewSettingsHandler(service *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

type saveSettingsRequest struct {
	DefaultTeamSessionCharge       int      `json:"default_team_session_charge" validate:"required,gt=0"`
	DefaultIndividualSessionCharge int      `json:"default_individual_session_charge" validate:"required,gt=0"`
	AvailableGoals                 []string `json:"available_goals"`
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.service.GetSettings(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"settings": settings})
}

func (h *SettingsHandler) SaveSettings(c *fiber.Ctx) error {
	var req saveSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "charges must be positive integers"})
	}

	settings, err := h.service.SaveSettings(c.Context(), models.AppSettings{
		DefaultTeamSessionCharge:       req.DefaultTeamSessionCharge,
		DefaultIndividualSessionCharge: req.DefaultIndividualSessionCharge,
		AvailableGoals:                 req.AvailableGoals,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"settings": settings})
}
