package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

const bookingColumns = `id, subject_id, teacher_id, classroom_id, day_of_week, start_time, end_time, is_active, created_at, updated_at`

type bookingRow struct {
	ID          string `db:"id"`
	SubjectID   string `db:"subject_id"`
	TeacherID   string `db:"teacher_id"`
	ClassroomID string `db:"classroom_id"`
	DayOfWeek   string `db:"day_of_week"`
	StartTime   string `db:"start_time"`
	EndTime     string `db:"end_time"`
	IsActive    bool   `db:"is_active"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func newBookingRow(b persistence.Booking) bookingRow {
	return bookingRow{
		ID:          b.ID,
		SubjectID:   b.SubjectID,
		TeacherID:   b.TeacherID,
		ClassroomID: b.ClassroomID,
		DayOfWeek:   b.Day.String(),
		StartTime:   b.Start.String(),
		EndTime:     b.End.String(),
		IsActive:    b.IsActive,
		CreatedAt:   formatTimestamp(b.CreatedAt),
		UpdatedAt:   formatTimestamp(b.UpdatedAt),
	}
}

func (r bookingRow) toModel() (persistence.Booking, error) {
	day, err := scheduler.ParseDayOfWeek(r.DayOfWeek)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("booking %s: %w", r.ID, err)
	}
	start, err := scheduler.ParseClockTime(r.StartTime)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("booking %s start_time: %w", r.ID, err)
	}
	end, err := scheduler.ParseClockTime(r.EndTime)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("booking %s end_time: %w", r.ID, err)
	}
	createdAt, err := parseTimestamp("created_at", r.CreatedAt)
	if err != nil {
		return persistence.Booking{}, err
	}
	updatedAt, err := parseTimestamp("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.Booking{}, err
	}

	return persistence.Booking{
		ID:          r.ID,
		SubjectID:   r.SubjectID,
		TeacherID:   r.TeacherID,
		ClassroomID: r.ClassroomID,
		Day:         day,
		Start:       start,
		End:         end,
		IsActive:    r.IsActive,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func toBookings(rows []bookingRow) ([]persistence.Booking, error) {
	bookings := make([]persistence.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := row.toModel()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// BookingRepository implements persistence.BookingRepository on class_schedule.
type BookingRepository struct {
	db *DB
}

// NewBookingRepository creates a booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return getBooking(ctx, r.db, r.db.conn, id)
}

// ListBookings returns bookings matching the filter ordered by start time and ID.
// Callers needing weekday order sort the result themselves.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.TeacherID != "" {
		clauses = append(clauses, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		clauses = append(clauses, "classroom_id = ?")
		args = append(args, filter.ClassroomID)
	}
	if filter.SubjectID != "" {
		clauses = append(clauses, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Day != nil {
		clauses = append(clauses, "day_of_week = ?")
		args = append(args, filter.Day.String())
	}
	if !filter.IncludeInactive {
		clauses = append(clauses, "is_active = ?")
		args = append(args, true)
	}

	query := `SELECT ` + bookingColumns + ` FROM class_schedule`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, r.db.conn, &rows, r.db.conn.Rebind(query), args...); err != nil {
		return nil, r.db.mapper.MapError(err)
	}
	return toBookings(rows)
}

// DeleteBooking removes a booking by ID.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.db.conn.ExecContext(ctx, r.db.conn.Rebind(`DELETE FROM class_schedule WHERE id = ?`), id)
	if err != nil {
		return r.db.mapper.MapError(err)
	}
	return requireAffected(result)
}

// WithinTransaction runs fn inside a write transaction.
func (r *BookingRepository) WithinTransaction(ctx context.Context, fn func(tx persistence.BookingTx) error) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return fn(&bookingTx{db: r.db, tx: tx})
	})
}

type bookingTx struct {
	db *DB
	tx *sqlx.Tx
}

// LockResources takes transaction-scoped advisory locks on PostgreSQL. SQLite
// write transactions begin with an immediate lock on the whole database, so
// nothing further is needed there.
func (t *bookingTx) LockResources(ctx context.Context, keys ...string) error {
	if t.db.dialect != DialectPostgres || len(keys) == 0 {
		return nil
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	query := t.tx.Rebind(`SELECT pg_advisory_xact_lock(hashtext(?))`)
	previous := ""
	for i, key := range sorted {
		if i > 0 && key == previous {
			continue
		}
		previous = key
		if _, err := t.tx.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

func (t *bookingTx) ListActiveBookingsForResources(ctx context.Context, day scheduler.DayOfWeek, teacherID, classroomID string) ([]persistence.Booking, error) {
	query := t.tx.Rebind(`
		SELECT ` + bookingColumns + `
		FROM class_schedule
		WHERE day_of_week = ? AND is_active = ? AND (teacher_id = ? OR classroom_id = ?)
		ORDER BY start_time ASC, id ASC
	`)

	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, t.tx, &rows, query, day.String(), true, teacherID, classroomID); err != nil {
		return nil, t.db.mapper.MapError(err)
	}
	return toBookings(rows)
}

func (t *bookingTx) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return getBooking(ctx, t.db, t.tx, id)
}

func (t *bookingTx) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO class_schedule (` + bookingColumns + `)
		VALUES (:id, :subject_id, :teacher_id, :classroom_id, :day_of_week, :start_time, :end_time, :is_active, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, t.tx, query, newBookingRow(booking)); err != nil {
		return t.db.mapper.MapError(err)
	}
	return nil
}

func (t *bookingTx) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE class_schedule
		SET subject_id = :subject_id, teacher_id = :teacher_id, classroom_id = :classroom_id,
			day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := sqlx.NamedExecContext(ctx, t.tx, query, newBookingRow(booking))
	if err != nil {
		return t.db.mapper.MapError(err)
	}
	return requireAffected(result)
}

func getBooking(ctx context.Context, db *DB, q sqlx.QueryerContext, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	var row bookingRow
	query := db.conn.Rebind(`SELECT ` + bookingColumns + ` FROM class_schedule WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return persistence.Booking{}, db.mapper.MapError(err)
	}
	return row.toModel()
}
