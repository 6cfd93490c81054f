package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ibas1989/Yoga-v1-sub000/internal/events"
	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestCompleteSessionChargesConfirmedAttendeesOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSessionService(pool)

	attendeeID := createTestStudent(t, ctx, pool, "Attendee", 5)
	absenteeID := createTestStudent(t, ctx, pool, "Absentee", 5)
	t.Cleanup(func() { cleanupTestStudents(t, ctx, pool, attendeeID, absenteeID) })

	price := 2
	session, err := service.ScheduleSession(ctx, ScheduleSessionInput{
		Date:            time.Date(2030, 3, 15, 0, 0, 0, 0, time.UTC),
		StartTime:       "09:00",
		DurationMinutes: 60,
		StudentIDs:      []string{attendeeID, absenteeID},
		SessionType:     models.SessionTypeTeam,
		PricePerStudent: &price,
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}
	t.Cleanup(func() { cleanupTestSessions(t, ctx, pool, session.ID) })

	completed, err := service.CompleteSession(ctx, session.ID, []string{attendeeID})
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Fatalf("expected completed session, got %q", completed.Status)
	}
	if len(completed.StudentIDs) != 1 || completed.StudentIDs[0] != attendeeID {
		t.Fatalf("expected attendee list rewritten to confirmed ids, got %v", completed.StudentIDs)
	}

	studentRepo := repository.NewStudentRepository(pool)

	attendee, err := studentRepo.GetByID(ctx, attendeeID)
	if err != nil {
		t.Fatalf("GetByID attendee: %v", err)
	}
	if attendee.Balance != 3 {
		t.Fatalf("expected attendee balance 3, got %d", attendee.Balance)
	}

	absentee, err := studentRepo.GetByID(ctx, absenteeID)
	if err != nil {
		t.Fatalf("GetByID absentee: %v", err)
	}
	if absentee.Balance != 5 {
		t.Fatalf("expected absentee balance untouched at 5, got %d", absentee.Balance)
	}

	transactions, err := studentRepo.ListTransactions(ctx, attendeeID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(transactions))
	}
	if transactions[0].ChangeAmount != -2 || transactions[0].BalanceAfter != 3 {
		t.Fatalf("unexpected ledger entry %+v", transactions[0])
	}
	if transactions[0].TransactionType != models.TransactionDeducted {
		t.Fatalf("expected a deducted entry, got %q", transactions[0].TransactionType)
	}

	// completing again must fail without touching the ledger
	if _, err := service.CompleteSession(ctx, session.ID, []string{attendeeID}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on repeat completion, got %v", err)
	}
	transactions, err = studentRepo.ListTransactions(ctx, attendeeID)
	if err != nil {
		t.Fatalf("ListTransactions after retry: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("repeat completion added ledger entries: %d", len(transactions))
	}
}

func TestCompleteSessionChargesPrepaidDifference(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSessionService(pool)

	prepaidID := createTestStudent(t, ctx, pool, "Prepaid", 0)
	brokeID := createTestStudent(t, ctx, pool, "Broke", 1)
	t.Cleanup(func() { cleanupTestStudents(t, ctx, pool, prepaidID, brokeID) })

	price := 2
	paid := 1
	session, err := service.ScheduleSession(ctx, ScheduleSessionInput{
		Date:            time.Date(2030, 3, 16, 0, 0, 0, 0, time.UTC),
		StartTime:       "10:00",
		DurationMinutes: 90,
		StudentIDs:      []string{prepaidID, brokeID},
		SessionType:     models.SessionTypeTeam,
		PricePerStudent: &price,
		BalanceEntries:  map[string]*int{prepaidID: &paid},
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}
	t.Cleanup(func() { cleanupTestSessions(t, ctx, pool, session.ID) })

	if _, err := service.CompleteSession(ctx, session.ID, []string{prepaidID, brokeID}); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	studentRepo := repository.NewStudentRepository(pool)

	prepaid, err := studentRepo.GetByID(ctx, prepaidID)
	if err != nil {
		t.Fatalf("GetByID prepaid: %v", err)
	}
	if prepaid.Balance != -1 {
		t.Fatalf("expected prepaid balance -1 (paid 1 of 2), got %d", prepaid.Balance)
	}

	// a balance is allowed to go negative; no write is refused for it
	broke, err := studentRepo.GetByID(ctx, brokeID)
	if err != nil {
		t.Fatalf("GetByID broke: %v", err)
	}
	if broke.Balance != -1 {
		t.Fatalf("expected balance -1 after full charge, got %d", broke.Balance)
	}
}

func TestCancelSessionLeavesBalancesUntouched(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSessionService(pool)

	studentID := createTestStudent(t, ctx, pool, "Canceller", 4)
	t.Cleanup(func() { cleanupTestStudents(t, ctx, pool, studentID) })

	session, err := service.ScheduleSession(ctx, ScheduleSessionInput{
		Date:            time.Date(2030, 3, 17, 0, 0, 0, 0, time.UTC),
		StartTime:       "18:30",
		DurationMinutes: 60,
		StudentIDs:      []string{studentID},
		SessionType:     models.SessionTypeIndividual,
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}
	t.Cleanup(func() { cleanupTestSessions(t, ctx, pool, session.ID) })

	cancelled, err := service.CancelSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("CancelSession: %v", err)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled session, got %q", cancelled.Status)
	}

	studentRepo := repository.NewStudentRepository(pool)
	student, err := studentRepo.GetByID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if student.Balance != 4 {
		t.Fatalf("cancellation moved the balance: %d", student.Balance)
	}
	transactions, err := studentRepo.ListTransactions(ctx, studentID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("cancellation wrote ledger entries: %d", len(transactions))
	}

	// terminal states reject further transitions
	if _, err := service.CancelSession(ctx, session.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on repeat cancel, got %v", err)
	}
	if _, err := service.CompleteSession(ctx, session.ID, []string{studentID}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition completing a cancelled session, got %v", err)
	}
}

func TestScheduleSessionRejectsReusedID(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSessionService(pool)

	studentID := createTestStudent(t, ctx, pool, "Reused", 3)
	t.Cleanup(func() { cleanupTestStudents(t, ctx, pool, studentID) })

	session, err := service.ScheduleSession(ctx, ScheduleSessionInput{
		Date:            time.Date(2030, 3, 18, 0, 0, 0, 0, time.UTC),
		StartTime:       "11:00",
		DurationMinutes: 60,
		StudentIDs:      []string{studentID},
		SessionType:     models.SessionTypeIndividual,
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}
	t.Cleanup(func() { cleanupTestSessions(t, ctx, pool, session.ID) })

	if _, err := service.CancelSession(ctx, session.ID); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}

	// scheduling under a taken id must fail, not rewrite the terminal record
	if _, err := service.ScheduleSession(ctx, ScheduleSessionInput{
		ID:              session.ID,
		Date:            time.Date(2030, 3, 19, 0, 0, 0, 0, time.UTC),
		StartTime:       "12:00",
		DurationMinutes: 60,
		StudentIDs:      []string{studentID},
		SessionType:     models.SessionTypeIndividual,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for reused id, got %v", err)
	}

	stored, err := service.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != models.SessionCancelled {
		t.Fatalf("reused id rewrote the session to %q", stored.Status)
	}
}

func TestAddBalanceTransactionMaintainsRunningBalance(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	studentRepo := repository.NewStudentRepository(pool)
	service := NewLedgerService(pool, studentRepo, events.NewBus())

	studentID := createTestStudent(t, ctx, pool, "Ledger", 0)
	t.Cleanup(func() { cleanupTestStudents(t, ctx, pool, studentID) })

	first, err := service.AddBalanceTransaction(ctx, studentID, AddTransactionInput{
		ChangeAmount: 5,
		Reason:       "Purchased a 5-session pack",
	})
	if err != nil {
		t.Fatalf("AddBalanceTransaction: %v", err)
	}
	if first.TransactionType != models.TransactionAdded || first.BalanceAfter != 5 {
		t.Fatalf("unexpected first entry %+v", first)
	}

	second, err := service.AddBalanceTransaction(ctx, studentID, AddTransactionInput{
		ChangeAmount: -2,
		Reason:       "Correction",
	})
	if err != nil {
		t.Fatalf("AddBalanceTransaction: %v", err)
	}
	if second.TransactionType != models.TransactionDeducted || second.BalanceAfter != 3 {
		t.Fatalf("unexpected second entry %+v", second)
	}

	student, err := studentRepo.GetByID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	transactions, err := studentRepo.ListTransactions(ctx, studentID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}

	sum := 0
	for _, transaction := range transactions {
		sum += transaction.ChangeAmount
	}
	if sum != student.Balance {
		t.Fatalf("ledger sum %d does not match balance %d", sum, student.Balance)
	}
	if len(transactions) == 0 || transactions[len(transactions)-1].BalanceAfter != student.Balance {
		t.Fatalf("last balance_after does not match balance %d: %+v", student.Balance, transactions)
	}

	if _, err := service.AddBalanceTransaction(ctx, "missing-"+uuid.NewString(), AddTransactionInput{
		ChangeAmount: 1,
		Reason:       "no such student",
	}); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationSessionService(pool *pgxpool.Pool) *SessionService {
	return NewSessionService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewStudentRepository(pool),
		repository.NewSettingsRepository(pool),
		events.NewBus(),
	)
}

func createTestStudent(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string, balance int) string {
	t.Helper()

	studentRepo := repository.NewStudentRepository(pool)
	student := &models.Student{
		ID:      uuid.NewString(),
		Name:    fmt.Sprintf("%s %d", name, time.Now().UnixNano()),
		Balance: balance,
		Goals:   []string{},
	}
	saved, err := studentRepo.Upsert(ctx, student)
	if err != nil {
		t.Fatalf("Upsert student %q: %v", name, err)
	}
	return saved.ID
}

func cleanupTestStudents(t *testing.T, ctx context.Context, pool *pgxpool.Pool, studentIDs ...string) {
	t.Helper()

	if len(studentIDs) == 0 {
		return
	}
	// notes and transactions cascade with the student rows
	if _, err := pool.Exec(ctx, "DELETE FROM students WHERE id = ANY($1)", studentIDs); err != nil {
		t.Fatalf("cleanup students: %v", err)
	}
}

func cleanupTestSessions(t *testing.T, ctx context.Context, pool *pgxpool.Pool, sessionIDs ...string) {
	t.Helper()

	if len(sessionIDs) == 0 {
		return
	}
	if _, err := pool.Exec(ctx, "DELETE FROM sessions WHERE id = ANY($1)", sessionIDs); err != nil {
		t.Fatalf("cleanup sessions: %v", err)
	}
}
