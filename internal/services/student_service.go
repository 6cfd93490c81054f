package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibas1989/Yoga-v1-sub000/internal/events"
	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
)

type StudentService struct {
	db          *pgxpool.Pool
	studentRepo *repository.StudentRepository
	sessionRepo *repository.SessionRepository
	bus         *events.Bus
}

func NewStudentService(
	db *pgxpool.Pool,
	studentRepo *repository.StudentRepository,
	sessionRepo *repository.SessionRepository,
	bus *events.Bus,
) *StudentService {
	return &StudentService{
		db:          db,
		studentRepo: studentRepo,
		sessionRepo: sessionRepo,
		bus:         bus,
	}
}

type SaveStudentInput struct {
	ID          string
	Name        string
	Phone       *string
	Balance     float64
	Goals       []string
	WeightKG    *float64
	HeightCM    *float64
	Birthday    *time.Time
	MemberSince *time.Time
	Description *string
}

// ListStudents returns every student with notes, ledger history and the age
// derived from the birthday. Age is never read from storage.
func (s *StudentService) ListStudents(ctx context.Context) ([]models.Student, error) {
	students, err := s.studentRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	studentIDs := make([]string, 0, len(students))
	for _, student := range students {
		studentIDs = append(studentIDs, student.ID)
	}

	notesByStudent, err := s.studentRepo.ListNotesByStudentIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	transactionsByStudent, err := s.studentRepo.ListTransactionsByStudentIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range students {
		enrichStudent(&students[i], notesByStudent[students[i].ID], transactionsByStudent[students[i].ID], now)
	}
	return students, nil
}

func (s *StudentService) GetStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	notes, err := s.studentRepo.ListNotes(ctx, studentID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.studentRepo.ListTransactions(ctx, studentID)
	if err != nil {
		return nil, err
	}

	enrichStudent(student, notes, transactions, time.Now())
	return student, nil
}

// SaveStudent upserts by id. A direct balance edit here bypasses the ledger by
// design: it is an out-of-band correction, not a ledger event.
func (s *StudentService) SaveStudent(ctx context.Context, input SaveStudentInput) (*models.Student, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	goals := input.Goals
	if goals == nil {
		goals = []string{}
	}

	student := &models.Student{
		ID:          id,
		Name:        name,
		Phone:       input.Phone,
		Balance:     int(math.Round(input.Balance)),
		Goals:       goals,
		WeightKG:    input.WeightKG,
		HeightCM:    input.HeightCM,
		Birthday:    input.Birthday,
		MemberSince: input.MemberSince,
		Description: input.Description,
	}

	saved, err := s.studentRepo.Upsert(ctx, student)
	if err != nil {
		return nil, err
	}
	saved.Age = models.AgeAt(saved.Birthday, time.Now())

	s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": saved.ID})
	return saved, nil
}

// DeleteStudent removes the student and, in the same transaction, detaches the
// id from every session's attendee list so no dangling references survive.
// Notes and ledger history go with the student via the schema's cascade.
func (s *StudentService) DeleteStudent(ctx context.Context, studentID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txStudentRepo := repository.NewStudentRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)

	if err := txSessionRepo.DetachStudent(ctx, studentID); err != nil {
		return err
	}
	if err := txStudentRepo.Delete(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": studentID})
	s.bus.Publish(events.SessionChanged, map[string]any{"student_id": studentID})
	return nil
}

func (s *StudentService) AddNote(ctx context.Context, studentID, content string) (*models.StudentNote, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	note := &models.StudentNote{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	saved, err := s.studentRepo.InsertNote(ctx, note)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.NoteAdded, saved)
	s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": studentID})
	return saved, nil
}

func (s *StudentService) UpdateNote(ctx context.Context, studentID, noteID, content string) (*models.StudentNote, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}

	saved, err := s.studentRepo.UpdateNoteContent(ctx, studentID, noteID, content, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	s.bus.Publish(events.NoteUpdated, saved)
	s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": studentID})
	return saved, nil
}

func (s *StudentService) DeleteNote(ctx context.Context, studentID, noteID string) error {
	if err := s.studentRepo.DeleteNote(ctx, studentID, noteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoteNotFound
		}
		return err
	}

	s.bus.Publish(events.NoteDeleted, map[string]any{"student_id": studentID, "note_id": noteID})
	s.bus.Publish(events.StudentUpdated, map[string]any{"student_id": studentID})
	return nil
}

func enrichStudent(
	student *models.Student,
	notes []models.StudentNote,
	transactions []models.BalanceTransaction,
	now time.Time,
) {
	if notes == nil {
		notes = []models.StudentNote{}
	}
	if transactions == nil {
		transactions = []models.BalanceTransaction{}
	}
	student.Notes = notes
	student.BalanceTransactions = transactions
	student.Age = models.AgeAt(student.Birthday, now)
}
