package sqlstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/example/coaching-scheduler/internal/persistence"
)

const teacherColumns = `id, full_name, email, phone, is_active, created_at, updated_at`

type teacherRow struct {
	ID        string         `db:"id"`
	FullName  string         `db:"full_name"`
	Email     sql.NullString `db:"email"`
	Phone     sql.NullString `db:"phone"`
	IsActive  bool           `db:"is_active"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

func newTeacherRow(t persistence.Teacher) teacherRow {
	return teacherRow{
		ID:        t.ID,
		FullName:  t.FullName,
		Email:     nullString(t.Email),
		Phone:     nullString(t.Phone),
		IsActive:  t.IsActive,
		CreatedAt: formatTimestamp(t.CreatedAt),
		UpdatedAt: formatTimestamp(t.UpdatedAt),
	}
}

func (r teacherRow) toModel() (persistence.Teacher, error) {
	createdAt, err := parseTimestamp("created_at", r.CreatedAt)
	if err != nil {
		return persistence.Teacher{}, err
	}
	updatedAt, err := parseTimestamp("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.Teacher{}, err
	}
	return persistence.Teacher{
		ID:        r.ID,
		FullName:  r.FullName,
		Email:     stringPtr(r.Email),
		Phone:     stringPtr(r.Phone),
		IsActive:  r.IsActive,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// TeacherRepository implements persistence.TeacherRepository.
type TeacherRepository struct {
	db *DB
}

// NewTeacherRepository creates a teacher repository.
func NewTeacherRepository(db *DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// CreateTeacher inserts a new teacher.
func (r *TeacherRepository) CreateTeacher(ctx context.Context, teacher persistence.Teacher) error {
	if teacher.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO teachers (` + teacherColumns + `)
		VALUES (:id, :full_name, :email, :phone, :is_active, :created_at, :updated_at)
	`
	_, err := sqlx.NamedExecContext(ctx, r.db.conn, query, newTeacherRow(teacher))
	return r.db.mapper.MapError(err)
}

// UpdateTeacher updates an existing teacher.
func (r *TeacherRepository) UpdateTeacher(ctx context.Context, teacher persistence.Teacher) error {
	if teacher.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE teachers
		SET full_name = :full_name, email = :email, phone = :phone, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := sqlx.NamedExecContext(ctx, r.db.conn, query, newTeacherRow(teacher))
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetTeacher retrieves a teacher by ID.
func (r *TeacherRepository) GetTeacher(ctx context.Context, id string) (persistence.Teacher, error) {
	if id == "" {
		return persistence.Teacher{}, persistence.ErrNotFound
	}

	var row teacherRow
	query := r.db.conn.Rebind(`SELECT ` + teacherColumns + ` FROM teachers WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db.conn, &row, query, id); err != nil {
		return persistence.Teacher{}, r.db.mapper.MapError(err)
	}
	return row.toModel()
}

// ListTeachers returns all teachers ordered by name then ID.
func (r *TeacherRepository) ListTeachers(ctx context.Context) ([]persistence.Teacher, error) {
	var rows []teacherRow
	query := `SELECT ` + teacherColumns + ` FROM teachers ORDER BY full_name ASC, id ASC`
	if err := sqlx.SelectContext(ctx, r.db.conn, &rows, query); err != nil {
		return nil, r.db.mapper.MapError(err)
	}

	teachers := make([]persistence.Teacher, 0, len(rows))
	for _, row := range rows {
		teacher, err := row.toModel()
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, teacher)
	}
	return teachers, nil
}

// DeleteTeacher removes a teacher and their attendance history. Teachers
// referenced by bookings cannot be deleted.
func (r *TeacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.db.conn.ExecContext(ctx, r.db.conn.Rebind(`DELETE FROM teachers WHERE id = ?`), id)
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}
