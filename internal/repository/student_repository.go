package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/student-records/internal/model"
)

var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrDuplicateEnrollment = errors.New("student with this enrollment already exists")
)

const studentColumns = `id, name, enrollment, to_char(birth_date, 'YYYY-MM-DD'), email, status, created_by, created_at, updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func scanStudent(row pgx.Row, s *model.Student) error {
	return row.Scan(&s.ID, &s.Name, &s.Enrollment, &s.BirthDate, &s.Email, &s.Status, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
}

// List retrieves every student, newest first.
func (r *StudentRepository) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := scanStudent(rows, &s); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s := &model.Student{}
	err := scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id), s)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new student. ID and timestamps are assigned by the database.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	birth, err := parseBirthDate(s.BirthDate)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO students (name, enrollment, birth_date, email, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		s.Name, s.Enrollment, birth, s.Email, s.Status, s.CreatedBy,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapWriteError(err)
}

// Update overwrites every writable field of a student.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	birth, err := parseBirthDate(s.BirthDate)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`UPDATE students
		 SET name = $1, enrollment = $2, birth_date = $3, email = $4, status = $5, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $6
		 RETURNING created_by, created_at, updated_at`,
		s.Name, s.Enrollment, birth, s.Email, s.Status, s.ID,
	).Scan(&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStudentNotFound
	}
	return mapWriteError(err)
}

// Delete removes a student by ID.
func (r *StudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// Summary counts students per status.
func (r *StudentRepository) Summary(ctx context.Context) (model.StudentSummary, error) {
	var sum model.StudentSummary
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'inactive')
		 FROM students`,
	).Scan(&sum.Total, &sum.Active, &sum.Inactive)
	return sum, err
}

func parseBirthDate(v string) (time.Time, error) {
	t, err := time.Parse(model.BirthDateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse birth date: %w", err)
	}
	return t, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEnrollment
	}
	return err
}
