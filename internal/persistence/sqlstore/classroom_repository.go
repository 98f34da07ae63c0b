package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/example/coaching-scheduler/internal/persistence"
)

const classroomColumns = `id, name, location, capacity, created_at, updated_at`

type classroomRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Location  string `db:"location"`
	Capacity  int    `db:"capacity"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r classroomRow) toModel() (persistence.Classroom, error) {
	createdAt, err := parseTimestamp("created_at", r.CreatedAt)
	if err != nil {
		return persistence.Classroom{}, err
	}
	updatedAt, err := parseTimestamp("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.Classroom{}, err
	}
	return persistence.Classroom{
		ID:        r.ID,
		Name:      r.Name,
		Location:  r.Location,
		Capacity:  r.Capacity,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// ClassroomRepository implements persistence.ClassroomRepository.
type ClassroomRepository struct {
	db *DB
}

// NewClassroomRepository creates a classroom repository.
func NewClassroomRepository(db *DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// CreateClassroom inserts a new classroom.
func (r *ClassroomRepository) CreateClassroom(ctx context.Context, classroom persistence.Classroom) error {
	if classroom.ID == "" || classroom.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := r.db.conn.Rebind(`
		INSERT INTO classrooms (` + classroomColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.conn.ExecContext(ctx, query,
		classroom.ID,
		classroom.Name,
		classroom.Location,
		classroom.Capacity,
		formatTimestamp(classroom.CreatedAt),
		formatTimestamp(classroom.UpdatedAt),
	)
	return r.db.mapper.MapError(err)
}

// UpdateClassroom updates an existing classroom.
func (r *ClassroomRepository) UpdateClassroom(ctx context.Context, classroom persistence.Classroom) error {
	if classroom.ID == "" {
		return persistence.ErrNotFound
	}
	if classroom.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := r.db.conn.Rebind(`
		UPDATE classrooms
		SET name = ?, location = ?, capacity = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.conn.ExecContext(ctx, query,
		classroom.Name,
		classroom.Location,
		classroom.Capacity,
		formatTimestamp(classroom.UpdatedAt),
		classroom.ID,
	)
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetClassroom retrieves a classroom by ID.
func (r *ClassroomRepository) GetClassroom(ctx context.Context, id string) (persistence.Classroom, error) {
	if id == "" {
		return persistence.Classroom{}, persistence.ErrNotFound
	}

	var row classroomRow
	query := r.db.conn.Rebind(`SELECT ` + classroomColumns + ` FROM classrooms WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db.conn, &row, query, id); err != nil {
		return persistence.Classroom{}, r.db.mapper.MapError(err)
	}
	return row.toModel()
}

// ListClassrooms returns all classrooms ordered by name then ID.
func (r *ClassroomRepository) ListClassrooms(ctx context.Context) ([]persistence.Classroom, error) {
	var rows []classroomRow
	query := `SELECT ` + classroomColumns + ` FROM classrooms ORDER BY name ASC, id ASC`
	if err := sqlx.SelectContext(ctx, r.db.conn, &rows, query); err != nil {
		return nil, r.db.mapper.MapError(err)
	}

	classrooms := make([]persistence.Classroom, 0, len(rows))
	for _, row := range rows {
		classroom, err := row.toModel()
		if err != nil {
			return nil, err
		}
		classrooms = append(classrooms, classroom)
	}
	return classrooms, nil
}

// DeleteClassroom removes a classroom. Classrooms referenced by bookings
// cannot be deleted.
func (r *ClassroomRepository) DeleteClassroom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.db.conn.ExecContext(ctx, r.db.conn.Rebind(`DELETE FROM classrooms WHERE id = ?`), id)
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}
