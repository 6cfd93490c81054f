package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibas1989/Yoga-v1-sub000/internal/events"
	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
)

// LedgerService owns the append-only balance history. There is no update or
// delete of a past transaction anywhere in the API; corrections are new
// offsetting entries.
type LedgerService struct {
	db          *pgxpool.Pool
	studentRepo *repository.StudentRepository
	bus         *events.Bus
}

func NewLedgerService(db *pgxpool.Pool, studentRepo *repository.StudentRepository, bus *events.Bus) *LedgerService {
	return &LedgerService{db: db, studentRepo: studentRepo, bus: bus}
}

type AddTransactionInput struct {
	ChangeAmount int
	Reason       string
	ReasonEn     *string
	ReasonRu     *string
}

// AddBalanceTransaction appends a manual ledger entry and moves the student's
// balance in the same database transaction, so the running-balance invariant
// (balance == sum of change amounts == last balance_after) cannot drift.
func (s *LedgerService) AddBalanceTransaction(
	ctx context.Context,
	studentID string,
	input AddTransactionInput,
) (*models.BalanceTransaction, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txStudentRepo := repository.NewStudentRepository(tx)
	reason := balanceReason{Text: input.Reason, En: input.ReasonEn, Ru: input.ReasonRu}
	record, err := appendBalanceTransaction(
		ctx,
		txStudentRepo,
		studentID,
		input.ChangeAmount,
		reason,
		time.Now().UTC(),
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.bus.Publish(events.BalanceTransactionAdded, map[string]any{
		"student_id":  record.StudentID,
		"transaction": record,
		"balance":     record.BalanceAfter,
	})
	s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": record.StudentID})
	return record, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, studentID string) ([]models.BalanceTransaction, error) {
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return s.studentRepo.ListTransactions(ctx, studentID)
}

type balanceReason struct {
	Text string
	En   *string
	Ru   *string
}

// appendBalanceTransaction is the single write path for balance changes,
// shared by manual entries and session completion. The repository must be
// bound to an open transaction; the student row is locked so the balance_after
// snapshot is computed against a stable balance.
func appendBalanceTransaction(
	ctx context.Context,
	students *repository.StudentRepository,
	studentID string,
	changeAmount int,
	reason balanceReason,
	occurredAt time.Time,
) (*models.BalanceTransaction, error) {
	student, err := students.GetByIDForUpdate(ctx, studentID)
	if err != nil {
		return nil, err
	}

	newBalance := student.Balance + changeAmount
	record := &models.BalanceTransaction{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		Date:            occurredAt,
		TransactionType: models.TransactionTypeForAmount(changeAmount),
		ChangeAmount:    changeAmount,
		Reason:          reason.Text,
		ReasonEn:        reason.En,
		ReasonRu:        reason.Ru,
		BalanceAfter:    newBalance,
	}

	saved, err := students.InsertTransaction(ctx, record)
	if err != nil {
		return nil, err
	}
	if err := students.UpdateBalance(ctx, studentID, newBalance); err != nil {
		return nil, err
	}
	return saved, nil
}
