package repository

import (
	"context"
	"encoding/json"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, session_date, start_time, end_time, student_ids, goals,
	session_type, price_per_student, status, balance_entries, notes, created_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*models.Session, error) {
	var session models.Session
	var sessionType *string
	var balanceEntries []byte
	err := row.Scan(
		&session.ID,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
		&session.StudentIDs,
		&session.Goals,
		&sessionType,
		&session.PricePerStudent,
		&session.Status,
		&balanceEntries,
		&session.Notes,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sessionType != nil {
		session.SessionType = *sessionType
	}
	if len(balanceEntries) > 0 {
		if err := json.Unmarshal(balanceEntries, &session.BalanceEntries); err != nil {
			return nil, err
		}
	}
	NormalizeSession(&session)
	return &session, nil
}

// NormalizeSession fills fields that predate the current schema: rows written
// before goals and session_type existed read back as an empty goal list and a
// team session.
func NormalizeSession(session *models.Session) {
	if session.StudentIDs == nil {
		session.StudentIDs = []string{}
	}
	if session.Goals == nil {
		session.Goals = []string{}
	}
	if session.SessionType == "" {
		session.SessionType = models.SessionTypeTeam
	}
}

func encodeBalanceEntries(entries map[string]*int) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	return json.Marshal(entries)
}

func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY session_date ASC, start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`
	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return session, nil
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
		FOR UPDATE
	`
	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return session, nil
}

func (r *SessionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE $1 = ANY(student_ids)
		ORDER BY session_date ASC, start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Insert creates a new session row and fails with ErrDuplicate when the id is
// already taken. Scheduling goes through this rather than Upsert so a reused
// id can never rewrite an existing record back to scheduled.
func (r *SessionRepository) Insert(ctx context.Context, session *models.Session) (*models.Session, error) {
	entries, err := encodeBalanceEntries(session.BalanceEntries)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO sessions (id, session_date, start_time, end_time, student_ids,
			goals, session_type, price_per_student, status, balance_entries, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, NOW()))
		RETURNING ` + sessionColumns + `
	`
	saved, err := scanSession(r.db.QueryRow(
		ctx,
		query,
		session.ID,
		session.Date,
		session.StartTime,
		session.EndTime,
		session.StudentIDs,
		session.Goals,
		session.SessionType,
		session.PricePerStudent,
		session.Status,
		entries,
		session.Notes,
		nullableTime(session.CreatedAt),
	))
	if err != nil {
		return nil, wrapDuplicateKey(err)
	}
	return saved, nil
}

// Upsert inserts the session if the id is unknown, otherwise replaces the
// stored record. The returned flag reports whether a new row was created so
// callers can publish created vs updated.
func (r *SessionRepository) Upsert(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	entries, err := encodeBalanceEntries(session.BalanceEntries)
	if err != nil {
		return nil, false, err
	}

	// xmax = 0 only holds for freshly inserted rows.
	query := `
		INSERT INTO sessions (id, session_date, start_time, end_time, student_ids,
			goals, session_type, price_per_student, status, balance_entries, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, NOW()))
		ON CONFLICT (id) DO UPDATE SET
			session_date = EXCLUDED.session_date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			student_ids = EXCLUDED.student_ids,
			goals = EXCLUDED.goals,
			session_type = EXCLUDED.session_type,
			price_per_student = EXCLUDED.price_per_student,
			status = EXCLUDED.status,
			balance_entries = EXCLUDED.balance_entries,
			notes = EXCLUDED.notes
		RETURNING ` + sessionColumns + `, (xmax = 0) AS inserted
	`

	var saved models.Session
	var sessionType *string
	var balanceEntries []byte
	var inserted bool
	err = r.db.QueryRow(
		ctx,
		query,
		session.ID,
		session.Date,
		session.StartTime,
		session.EndTime,
		session.StudentIDs,
		session.Goals,
		session.SessionType,
		session.PricePerStudent,
		session.Status,
		entries,
		session.Notes,
		nullableTime(session.CreatedAt),
	).Scan(
		&saved.ID,
		&saved.Date,
		&saved.StartTime,
		&saved.EndTime,
		&saved.StudentIDs,
		&saved.Goals,
		&sessionType,
		&saved.PricePerStudent,
		&saved.Status,
		&balanceEntries,
		&saved.Notes,
		&saved.CreatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, err
	}
	if sessionType != nil {
		saved.SessionType = *sessionType
	}
	if len(balanceEntries) > 0 {
		if err := json.Unmarshal(balanceEntries, &saved.BalanceEntries); err != nil {
			return nil, false, err
		}
	}
	NormalizeSession(&saved)
	return &saved, inserted, nil
}

// UpdateStatusIfCurrent is the compare-and-set on the state machine: the row
// only moves when it still holds the expected status.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID string,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns + `
	`
	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return session, nil
}

// CompleteIfScheduled moves a scheduled session to completed and rewrites the
// attendee list to the confirmed one in the same statement.
func (r *SessionRepository) CompleteIfScheduled(
	ctx context.Context,
	sessionID string,
	confirmedStudentIDs []string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, student_ids = $2
		WHERE id = $1 AND status = $4
		RETURNING ` + sessionColumns + `
	`
	session, err := scanSession(r.db.QueryRow(
		ctx,
		query,
		sessionID,
		confirmedStudentIDs,
		models.SessionCompleted,
		models.SessionScheduled,
	))
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DetachStudent removes a student id from every attendee list. Student
// deletion runs this in the same transaction so no dangling references
// survive.
func (r *SessionRepository) DetachStudent(ctx context.Context, studentID string) error {
	query := `
		UPDATE sessions
		SET student_ids = array_remove(student_ids, $1)
		WHERE $1 = ANY(student_ids)
	`
	_, err := r.db.Exec(ctx, query, studentID)
	return err
}
