package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coaching-scheduler/internal/persistence"
)

const (
	attendanceColumns = `id, teacher_id, attendance_date, status, remarks, created_at, updated_at`
	dateLayout        = time.DateOnly
)

type attendanceRow struct {
	ID             string         `db:"id"`
	TeacherID      string         `db:"teacher_id"`
	AttendanceDate string         `db:"attendance_date"`
	Status         string         `db:"status"`
	Remarks        sql.NullString `db:"remarks"`
	CreatedAt      string         `db:"created_at"`
	UpdatedAt      string         `db:"updated_at"`
}

func (r attendanceRow) toModel() (persistence.TeacherAttendance, error) {
	date, err := time.Parse(dateLayout, r.AttendanceDate)
	if err != nil {
		return persistence.TeacherAttendance{}, fmt.Errorf("failed to parse attendance_date: %w", err)
	}
	createdAt, err := parseTimestamp("created_at", r.CreatedAt)
	if err != nil {
		return persistence.TeacherAttendance{}, err
	}
	updatedAt, err := parseTimestamp("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.TeacherAttendance{}, err
	}
	return persistence.TeacherAttendance{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		Date:      date,
		Status:    r.Status,
		Remarks:   stringPtr(r.Remarks),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func toAttendance(rows []attendanceRow) ([]persistence.TeacherAttendance, error) {
	records := make([]persistence.TeacherAttendance, 0, len(rows))
	for _, row := range rows {
		record, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// AttendanceRepository implements persistence.AttendanceRepository.
type AttendanceRepository struct {
	db *DB
}

// NewAttendanceRepository creates an attendance repository.
func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// UpsertAttendance inserts the record, or updates status and remarks of the
// existing record for the same teacher and date, and returns the stored row.
// The original ID and created_at survive an update.
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, record persistence.TeacherAttendance) (persistence.TeacherAttendance, error) {
	if record.ID == "" || record.TeacherID == "" {
		return persistence.TeacherAttendance{}, persistence.ErrConstraintViolation
	}

	var stored persistence.TeacherAttendance
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO teacher_attendance (` + attendanceColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (teacher_id, attendance_date)
			DO UPDATE SET status = excluded.status, remarks = excluded.remarks, updated_at = excluded.updated_at
		`)
		if _, err := tx.ExecContext(ctx, query,
			record.ID,
			record.TeacherID,
			record.Date.Format(dateLayout),
			record.Status,
			nullString(record.Remarks),
			formatTimestamp(record.CreatedAt),
			formatTimestamp(record.UpdatedAt),
		); err != nil {
			return r.db.mapper.MapError(err)
		}

		var err error
		stored, err = getAttendance(ctx, r.db, tx, record.TeacherID, record.Date)
		return err
	})
	if err != nil {
		return persistence.TeacherAttendance{}, err
	}
	return stored, nil
}

// GetAttendance returns the record of a teacher for a date.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, teacherID string, date time.Time) (persistence.TeacherAttendance, error) {
	return getAttendance(ctx, r.db, r.db.conn, teacherID, date)
}

// ListAttendanceByDate returns every record on date ordered by teacher.
func (r *AttendanceRepository) ListAttendanceByDate(ctx context.Context, date time.Time) ([]persistence.TeacherAttendance, error) {
	query := r.db.conn.Rebind(`
		SELECT ` + attendanceColumns + `
		FROM teacher_attendance
		WHERE attendance_date = ?
		ORDER BY teacher_id ASC
	`)

	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, r.db.conn, &rows, query, date.Format(dateLayout)); err != nil {
		return nil, r.db.mapper.MapError(err)
	}
	return toAttendance(rows)
}

// ListAttendanceForTeacher returns the records of a teacher between from and
// to, both inclusive, ordered by date.
func (r *AttendanceRepository) ListAttendanceForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]persistence.TeacherAttendance, error) {
	query := r.db.conn.Rebind(`
		SELECT ` + attendanceColumns + `
		FROM teacher_attendance
		WHERE teacher_id = ? AND attendance_date >= ? AND attendance_date <= ?
		ORDER BY attendance_date ASC
	`)

	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, r.db.conn, &rows, query, teacherID, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return nil, r.db.mapper.MapError(err)
	}
	return toAttendance(rows)
}

func getAttendance(ctx context.Context, db *DB, q sqlx.QueryerContext, teacherID string, date time.Time) (persistence.TeacherAttendance, error) {
	query := db.conn.Rebind(`
		SELECT ` + attendanceColumns + `
		FROM teacher_attendance
		WHERE teacher_id = ? AND attendance_date = ?
	`)

	var row attendanceRow
	if err := sqlx.GetContext(ctx, q, &row, query, teacherID, date.Format(dateLayout)); err != nil {
		return persistence.TeacherAttendance{}, db.mapper.MapError(err)
	}
	return row.toModel()
}
