package repository

import (
	"context"
	"time"

	"github.com/ibas1989/Yoga-v1-sub000/internal/models"
)

type StudentRepository struct {
	db DBTX
}

func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, phone, balance, goals, weight_kg, height_cm,
	birthday, member_since, description, created_at`

func scanStudent(row interface{ Scan(dest ...any) error }) (*models.Student, error) {
	var student models.Student
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Phone,
		&student.Balance,
		&student.Goals,
		&student.WeightKG,
		&student.HeightCM,
		&student.Birthday,
		&student.MemberSince,
		&student.Description,
		&student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if student.Goals == nil {
		student.Goals = []string{}
	}
	return &student, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *student)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, studentID string) (*models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE id = $1
	`
	student, err := scanStudent(r.db.QueryRow(ctx, query, studentID))
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return student, nil
}

// GetByIDForUpdate locks the student row for the duration of the surrounding
// transaction. Ledger writes go through this to keep the running balance
// consistent.
func (r *StudentRepository) GetByIDForUpdate(ctx context.Context, studentID string) (*models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE id = $1
		FOR UPDATE
	`
	student, err := scanStudent(r.db.QueryRow(ctx, query, studentID))
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return student, nil
}

// Upsert inserts the student if the id is unknown, otherwise replaces the
// stored record. created_at is set once on insert and never overwritten.
func (r *StudentRepository) Upsert(ctx context.Context, student *models.Student) (*models.Student, error) {
	query := `
		INSERT INTO students (id, name, phone, balance, goals, weight_kg, height_cm,
			birthday, member_since, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			balance = EXCLUDED.balance,
			goals = EXCLUDED.goals,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			birthday = EXCLUDED.birthday,
			member_since = EXCLUDED.member_since,
			description = EXCLUDED.description
		RETURNING ` + studentColumns + `
	`
	saved, err := scanStudent(r.db.QueryRow(
		ctx,
		query,
		student.ID,
		student.Name,
		student.Phone,
		student.Balance,
		student.Goals,
		student.WeightKG,
		student.HeightCM,
		student.Birthday,
		student.MemberSince,
		student.Description,
		nullableTime(student.CreatedAt),
	))
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *StudentRepository) UpdateBalance(ctx context.Context, studentID string, balance int) error {
	tag, err := r.db.Exec(ctx, `UPDATE students SET balance = $2 WHERE id = $1`, studentID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudentRepository) Delete(ctx context.Context, studentID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, studentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudentRepository) ListNotes(ctx context.Context, studentID string) ([]models.StudentNote, error) {
	query := `
		SELECT id, student_id, content, created_at, updated_at
		FROM student_notes
		WHERE student_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]models.StudentNote, 0)
	for rows.Next() {
		var note models.StudentNote
		if err := rows.Scan(&note.ID, &note.StudentID, &note.Content, &note.Timestamp, &note.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *StudentRepository) InsertNote(ctx context.Context, note *models.StudentNote) (*models.StudentNote, error) {
	query := `
		INSERT INTO student_notes (id, student_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, student_id, content, created_at, updated_at
	`
	var saved models.StudentNote
	err := r.db.QueryRow(ctx, query, note.ID, note.StudentID, note.Content, note.Timestamp).Scan(
		&saved.ID,
		&saved.StudentID,
		&saved.Content,
		&saved.Timestamp,
		&saved.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateNoteContent replaces a note's text and stamps updated_at. The creation
// timestamp is immutable.
func (r *StudentRepository) UpdateNoteContent(
	ctx context.Context,
	studentID string,
	noteID string,
	content string,
	updatedAt time.Time,
) (*models.StudentNote, error) {
	query := `
		UPDATE student_notes
		SET content = $3, updated_at = $4
		WHERE id = $2 AND student_id = $1
		RETURNING id, student_id, content, created_at, updated_at
	`
	var saved models.StudentNote
	err := r.db.QueryRow(ctx, query, studentID, noteID, content, updatedAt).Scan(
		&saved.ID,
		&saved.StudentID,
		&saved.Content,
		&saved.Timestamp,
		&saved.UpdatedAt,
	)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &saved, nil
}

func (r *StudentRepository) DeleteNote(ctx context.Context, studentID, noteID string) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM student_notes WHERE id = $2 AND student_id = $1`,
		studentID,
		noteID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudentRepository) ListTransactions(ctx context.Context, studentID string) ([]models.BalanceTransaction, error) {
	query := `
		SELECT id, student_id, occurred_at, transaction_type, change_amount,
			reason, reason_en, reason_ru, balance_after
		FROM balance_transactions
		WHERE student_id = $1
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.BalanceTransaction, 0)
	for rows.Next() {
		var tx models.BalanceTransaction
		if err := rows.Scan(
			&tx.ID,
			&tx.StudentID,
			&tx.Date,
			&tx.TransactionType,
			&tx.ChangeAmount,
			&tx.Reason,
			&tx.ReasonEn,
			&tx.ReasonRu,
			&tx.BalanceAfter,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

// InsertTransaction appends to the ledger. There is deliberately no update or
// delete counterpart; corrections are new offsetting entries.
func (r *StudentRepository) InsertTransaction(ctx context.Context, tx *models.BalanceTransaction) (*models.BalanceTransaction, error) {
	query := `
		INSERT INTO balance_transactions (id, student_id, occurred_at, transaction_type,
			change_amount, reason, reason_en, reason_ru, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, student_id, occurred_at, transaction_type, change_amount,
			reason, reason_en, reason_ru, balance_after
	`
	var saved models.BalanceTransaction
	err := r.db.QueryRow(
		ctx,
		query,
		tx.ID,
		tx.StudentID,
		tx.Date,
		tx.TransactionType,
		tx.ChangeAmount,
		tx.Reason,
		tx.ReasonEn,
		tx.ReasonRu,
		tx.BalanceAfter,
	).Scan(
		&saved.ID,
		&saved.StudentID,
		&saved.Date,
		&saved.TransactionType,
		&saved.ChangeAmount,
		&saved.Reason,
		&saved.ReasonEn,
		&saved.ReasonRu,
		&saved.BalanceAfter,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *StudentRepository) ListNotesByStudentIDs(ctx context.Context, studentIDs []string) (map[string][]models.StudentNote, error) {
	notes := make(map[string][]models.StudentNote, len(studentIDs))
	if len(studentIDs) == 0 {
		return notes, nil
	}

	query := `
		SELECT id, student_id, content, created_at, updated_at
		FROM student_notes
		WHERE student_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var note models.StudentNote
		if err := rows.Scan(&note.ID, &note.StudentID, &note.Content, &note.Timestamp, &note.UpdatedAt); err != nil {
			return nil, err
		}
		notes[note.StudentID] = append(notes[note.StudentID], note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *StudentRepository) ListTransactionsByStudentIDs(ctx context.Context, studentIDs []string) (map[string][]models.BalanceTransaction, error) {
	transactions := make(map[string][]models.BalanceTransaction, len(studentIDs))
	if len(studentIDs) == 0 {
		return transactions, nil
	}

	query := `
		SELECT id, student_id, occurred_at, transaction_type, change_amount,
			reason, reason_en, reason_ru, balance_after
		FROM balance_transactions
		WHERE student_id = ANY($1)
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tx models.BalanceTransaction
		if err := rows.Scan(
			&tx.ID,
			&tx.StudentID,
			&tx.Date,
			&tx.TransactionType,
			&tx.ChangeAmount,
			&tx.Reason,
			&tx.ReasonEn,
			&tx.ReasonRu,
			&tx.BalanceAfter,
		); err != nil {
			return nil, err
		}
		transactions[tx.StudentID] = append(transactions[tx.StudentID], tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}
