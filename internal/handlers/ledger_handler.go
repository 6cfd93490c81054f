package handlers

import (
	"context"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/services"
)

type ledgerApplicationService interface {
	AddBalanceTransaction(ctx context.Context, studentID string, input services.AddTransactionInput) (*models.BalanceTransaction, error)
	ListTransactions(ctx context.Context, studentID string) ([]models.BalanceTransaction, error)
}

type LedgerHandler struct {
	service ledgerApplicationService
}

func NewLedgerHandler(service *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

type addTransactionRequest struct {
	ChangeAmount float64 `json:"change_amount"`
	Reason       string  `json:"reason" validate:"required"`
	ReasonEn     *string `json:"reason_en"`
	ReasonRu     *string `json:"reason_ru"`
}

// AddTransaction appends a manual ledger entry. Amounts are whole sessions;
// fractional input is rejected here rather than silently rounded.
func (h *LedgerHandler) AddTransaction(c *fiber.Ctx) error {
	var req addTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason must not be empty"})
	}
	if req.ChangeAmount != math.Trunc(req.ChangeAmount) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "change_amount must be a whole number of sessions"})
	}

	transaction, err := h.service.AddBalanceTransaction(c.Context(), c.Params("id"), services.AddTransactionInput{
		ChangeAmount: int(req.ChangeAmount),
		Reason:       req.Reason,
		ReasonEn:     req.ReasonEn,
		ReasonRu:     req.ReasonRu,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"transaction": transaction})
}

func (h *LedgerHandler) ListTransactions(c *fiber.Ctx) error {
	transactions, err := h.service.ListTransactions(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": transactions})
}
