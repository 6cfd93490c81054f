package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibas1989/Yoga-v1-sub000/internal/events"
	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
	"github.com/ibas1989/Yoga-v1-sub000/pkg/utils"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStudentNotFound        = errors.New("student not found")
	ErrSessionNotFound        = errors.New("session not found")
	ErrNoteNotFound           = errors.New("note not found")
)

type SessionService struct {
	db           *pgxpool.Pool
	sessionRepo  *repository.SessionRepository
	studentRepo  *repository.StudentRepository
	settingsRepo *repository.SettingsRepository
	bus          *events.Bus
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	studentRepo *repository.StudentRepository,
	settingsRepo *repository.SettingsRepository,
	bus *events.Bus,
) *SessionService {
	return &SessionService{
		db:           db,
		sessionRepo:  sessionRepo,
		studentRepo:  studentRepo,
		settingsRepo: settingsRepo,
		bus:          bus,
	}
}

type ScheduleSessionInput struct {
	ID              string
	Date            time.Time
	StartTime       string
	DurationMinutes int
	StudentIDs      []string
	Goals           []string
	SessionType     string
	PricePerStudent *int
	BalanceEntries  map[string]*int
	Notes           *string
}

func (s *SessionService) ScheduleSession(ctx context.Context, input ScheduleSessionInput) (*models.Session, error) {
	endTime, err := validateScheduleInput(&input)
	if err != nil {
		return nil, err
	}
	if err := s.verifyStudentsExist(ctx, input.StudentIDs); err != nil {
		return nil, err
	}

	price, err := s.resolvePrice(ctx, input.PricePerStudent, input.SessionType)
	if err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	session := &models.Session{
		ID:              id,
		Date:            input.Date,
		StartTime:       input.StartTime,
		EndTime:         endTime,
		StudentIDs:      dedupeIDs(input.StudentIDs),
		Goals:           input.Goals,
		SessionType:     input.SessionType,
		PricePerStudent: price,
		Status:          models.SessionScheduled,
		BalanceEntries:  input.BalanceEntries,
		Notes:           input.Notes,
	}

	// Insert-only: a reused id must not resurrect a terminal session.
	saved, err := s.sessionRepo.Insert(ctx, session)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}

	s.bus.Publish(events.SessionCreated, saved)
	s.bus.Publish(events.SessionChanged, saved)
	return saved, nil
}

// UpdateSession reschedules or edits a session that is still scheduled.
// Terminal sessions are immutable.
func (s *SessionService) UpdateSession(ctx context.Context, sessionID string, input ScheduleSessionInput) (*models.Session, error) {
	current, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if current.Status != models.SessionScheduled {
		return nil, ErrInvalidStateTransition
	}

	endTime, err := validateScheduleInput(&input)
	if err != nil {
		return nil, err
	}
	if err := s.verifyStudentsExist(ctx, input.StudentIDs); err != nil {
		return nil, err
	}

	price := current.PricePerStudent
	if input.PricePerStudent != nil {
		if *input.PricePerStudent <= 0 {
			return nil, ErrInvalidInput
		}
		price = *input.PricePerStudent
	}

	session := &models.Session{
		ID:              current.ID,
		Date:            input.Date,
		StartTime:       input.StartTime,
		EndTime:         endTime,
		StudentIDs:      dedupeIDs(input.StudentIDs),
		Goals:           input.Goals,
		SessionType:     input.SessionType,
		PricePerStudent: price,
		Status:          current.Status,
		BalanceEntries:  input.BalanceEntries,
		Notes:           input.Notes,
	}

	saved, _, err := s.sessionRepo.Upsert(ctx, session)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.SessionUpdated, saved)
	s.bus.Publish(events.SessionChanged, saved)
	return saved, nil
}

func (s *SessionService) ListSessions(ctx context.Context) ([]models.Session, error) {
	return s.sessionRepo.List(ctx)
}

func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *SessionService) GetSessionsForStudent(ctx context.Context, studentID string) ([]models.Session, error) {
	return s.sessionRepo.ListByStudent(ctx, studentID)
}

func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	s.bus.Publish(events.SessionDeleted, map[string]any{"session_id": sessionID})
	s.bus.Publish(events.SessionChanged, map[string]any{"session_id": sessionID})
	return nil
}

// CancelSession moves scheduled to cancelled. No student balance is touched.
func (s *SessionService) CancelSession(ctx context.Context, sessionID string) (*models.Session, error) {
	cancelled, err := s.sessionRepo.UpdateStatusIfCurrent(
		ctx,
		sessionID,
		models.SessionScheduled,
		models.SessionCancelled,
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Either the session does not exist or it already left scheduled.
			if _, getErr := s.sessionRepo.GetByID(ctx, sessionID); errors.Is(getErr, repository.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	s.bus.Publish(events.SessionCancelled, cancelled)
	s.bus.Publish(events.SessionChanged, cancelled)
	return cancelled, nil
}

// CompleteSession settles a scheduled session in one database transaction:
// every confirmed attendee gets a ledger entry, the attendee list is rewritten
// to who actually attended, and the status moves to completed. The status
// compare-and-set means a retry after a crash or a concurrent call cannot
// charge anyone twice.
//
// The charge per attendee is the price snapshotted at scheduling time; the
// settings default only applies to sessions stored before the snapshot field
// existed. A prepaid amount recorded for an attendee charges the difference
// between paid and owed instead of the full price.
func (s *SessionService) CompleteSession(
	ctx context.Context,
	sessionID string,
	confirmedStudentIDs []string,
) (*models.Session, error) {
	confirmed := dedupeIDs(confirmedStudentIDs)
	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txStudentRepo := repository.NewStudentRepository(tx)
	txSettingsRepo := repository.NewSettingsRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, ErrInvalidStateTransition
	}

	price := session.PricePerStudent
	if price <= 0 {
		settings, err := loadSettings(ctx, txSettingsRepo)
		if err != nil {
			return nil, err
		}
		price = settings.ChargeFor(session.SessionType)
	}

	reason := completionReason(session)
	applied := make([]*models.BalanceTransaction, 0, len(confirmed))
	for _, studentID := range confirmed {
		changeAmount := -price
		if paid, ok := session.BalanceEntries[studentID]; ok && paid != nil {
			changeAmount = *paid - price
		}

		record, err := appendBalanceTransaction(ctx, txStudentRepo, studentID, changeAmount, reason, now)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrStudentNotFound
			}
			return nil, err
		}
		applied = append(applied, record)
	}

	completed, err := txSessionRepo.CompleteIfScheduled(ctx, sessionID, confirmed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for _, record := range applied {
		s.bus.Publish(events.BalanceTransactionAdded, map[string]any{
			"student_id":  record.StudentID,
			"transaction": record,
			"balance":     record.BalanceAfter,
		})
		s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": record.StudentID})
	}
	s.bus.Publish(events.SessionUpdated, completed)
	s.bus.Publish(events.SessionCompleted, completed)
	s.bus.Publish(events.SessionChanged, completed)
	return completed, nil
}

func (s *SessionService) verifyStudentsExist(ctx context.Context, studentIDs []string) error {
	for _, studentID := range dedupeIDs(studentIDs) {
		if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
	}
	return nil
}

func (s *SessionService) resolvePrice(ctx context.Context, override *int, sessionType string) (int, error) {
	if override != nil {
		if *override <= 0 {
			return 0, ErrInvalidInput
		}
		return *override, nil
	}
	settings, err := loadSettings(ctx, s.settingsRepo)
	if err != nil {
		return 0, err
	}
	return settings.ChargeFor(sessionType), nil
}

func validateScheduleInput(input *ScheduleSessionInput) (string, error) {
	if input.Date.IsZero() {
		return "", ErrInvalidInput
	}
	if !utils.IsValidStartTime(input.StartTime) {
		return "", ErrInvalidInput
	}
	if !utils.IsValidDuration(input.DurationMinutes) {
		return "", ErrInvalidInput
	}
	if len(input.StudentIDs) == 0 {
		return "", ErrInvalidInput
	}
	switch input.SessionType {
	case models.SessionTypeTeam, models.SessionTypeIndividual:
	case "":
		input.SessionType = models.SessionTypeTeam
	default:
		return "", ErrInvalidInput
	}
	if input.Goals == nil {
		input.Goals = []string{}
	}

	endTime, err := utils.EndTimeFor(input.StartTime, input.DurationMinutes)
	if err != nil {
		return "", ErrInvalidInput
	}
	return endTime, nil
}

func completionReason(session *models.Session) balanceReason {
	day := session.Date.Format("2006-01-02")
	kindEn := "team session"
	kindRu := "групповое занятие"
	if session.SessionType == models.SessionTypeIndividual {
		kindEn = "individual session"
		kindRu = "индивидуальное занятие"
	}
	en := fmt.Sprintf("Completed %s on %s at %s", kindEn, day, session.StartTime)
	ru := fmt.Sprintf("Проведено %s %s в %s", kindRu, day, session.StartTime)
	return balanceReason{Text: en, En: &en, Ru: &ru}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
