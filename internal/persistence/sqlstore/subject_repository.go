package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/example/coaching-scheduler/internal/persistence"
)

const subjectColumns = `id, code, name, created_at, updated_at`

type subjectRow struct {
	ID        string `db:"id"`
	Code      string `db:"code"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r subjectRow) toModel() (persistence.Subject, error) {
	createdAt, err := parseTimestamp("created_at", r.CreatedAt)
	if err != nil {
		return persistence.Subject{}, err
	}
	updatedAt, err := parseTimestamp("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.Subject{}, err
	}
	return persistence.Subject{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// SubjectRepository implements persistence.SubjectRepository.
type SubjectRepository struct {
	db *DB
}

// NewSubjectRepository creates a subject repository.
func NewSubjectRepository(db *DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// CreateSubject inserts a new subject.
func (r *SubjectRepository) CreateSubject(ctx context.Context, subject persistence.Subject) error {
	if subject.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := r.db.conn.Rebind(`
		INSERT INTO subjects (` + subjectColumns + `)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := r.db.conn.ExecContext(ctx, query,
		subject.ID,
		subject.Code,
		subject.Name,
		formatTimestamp(subject.CreatedAt),
		formatTimestamp(subject.UpdatedAt),
	)
	return r.db.mapper.MapError(err)
}

// UpdateSubject updates an existing subject.
func (r *SubjectRepository) UpdateSubject(ctx context.Context, subject persistence.Subject) error {
	if subject.ID == "" {
		return persistence.ErrNotFound
	}

	query := r.db.conn.Rebind(`UPDATE subjects SET code = ?, name = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.conn.ExecContext(ctx, query,
		subject.Code,
		subject.Name,
		formatTimestamp(subject.UpdatedAt),
		subject.ID,
	)
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetSubject retrieves a subject by ID.
func (r *SubjectRepository) GetSubject(ctx context.Context, id string) (persistence.Subject, error) {
	if id == "" {
		return persistence.Subject{}, persistence.ErrNotFound
	}

	var row subjectRow
	query := r.db.conn.Rebind(`SELECT ` + subjectColumns + ` FROM subjects WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db.conn, &row, query, id); err != nil {
		return persistence.Subject{}, r.db.mapper.MapError(err)
	}
	return row.toModel()
}

// ListSubjects returns all subjects ordered by code then ID.
func (r *SubjectRepository) ListSubjects(ctx context.Context) ([]persistence.Subject, error) {
	var rows []subjectRow
	query := `SELECT ` + subjectColumns + ` FROM subjects ORDER BY code ASC, id ASC`
	if err := sqlx.SelectContext(ctx, r.db.conn, &rows, query); err != nil {
		return nil, r.db.mapper.MapError(err)
	}

	subjects := make([]persistence.Subject, 0, len(rows))
	for _, row := range rows {
		subject, err := row.toModel()
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// DeleteSubject removes a subject. Subjects referenced by bookings cannot be
// deleted.
func (r *SubjectRepository) DeleteSubject(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.db.conn.ExecContext(ctx, r.db.conn.Rebind(`DELETE FROM subjects WHERE id = ?`), id)
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}
