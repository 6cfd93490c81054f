package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibas1989/Yoga-v1-sub000/internal/events"
	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
	"github.com/ibas1989/Yoga-v1-sub000/internal/repository"
)

// Snapshot is the wholesale backup contract: the three collections plus the
// settings record. How it reaches a file or cloud store is the caller's
// business.
type Snapshot struct {
	Students  []models.Student   `json:"students"`
	Sessions  []models.Session   `json:"sessions"`
	Settings  models.AppSettings `json:"settings"`
	CreatedAt time.Time          `json:"created_at"`
}

type BackupService struct {
	db       *pgxpool.Pool
	students *StudentService
	sessions *SessionService
	settings *SettingsService
	bus      *events.Bus
}

func NewBackupService(
	db *pgxpool.Pool,
	students *StudentService,
	sessions *SessionService,
	settings *SettingsService,
	bus *events.Bus,
) *BackupService {
	return &BackupService{
		db:       db,
		students: students,
		sessions: sessions,
		settings: settings,
		bus:      bus,
	}
}

func (s *BackupService) Snapshot(ctx context.Context) (*Snapshot, error) {
	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Students:  students,
		Sessions:  sessions,
		Settings:  *settings,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Restore installs a full replacement set: everything currently stored is
// dropped and the snapshot is written in its place, in one transaction.
// This is an overwrite, never a merge.
func (s *BackupService) Restore(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, table := range []string{"sessions", "balance_transactions", "student_notes", "students"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	txStudentRepo := repository.NewStudentRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)
	txSettingsRepo := repository.NewSettingsRepository(tx)

	for i := range snapshot.Students {
		student := snapshot.Students[i]
		if _, err := txStudentRepo.Upsert(ctx, &student); err != nil {
			return err
		}
		for j := range student.Notes {
			note := student.Notes[j]
			note.StudentID = student.ID
			if _, err := txStudentRepo.InsertNote(ctx, &note); err != nil {
				return err
			}
		}
		for j := range student.BalanceTransactions {
			transaction := student.BalanceTransactions[j]
			transaction.StudentID = student.ID
			if _, err := txStudentRepo.InsertTransaction(ctx, &transaction); err != nil {
				return err
			}
		}
	}

	for i := range snapshot.Sessions {
		session := snapshot.Sessions[i]
		repository.NormalizeSession(&session)
		if _, _, err := txSessionRepo.Upsert(ctx, &session); err != nil {
			return err
		}
	}

	if _, err := txSettingsRepo.Upsert(ctx, &snapshot.Settings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.bus.Publish(events.StudentUpdated, map[string]any{"restored": true})
	s.bus.Publish(events.SessionChanged, map[string]any{"restored": true})
	return nil
}
