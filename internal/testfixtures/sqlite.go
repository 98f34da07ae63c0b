package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/persistence/sqlstore"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database for integration-style persistence tests.
type SQLiteHarness struct {
	Store      *sqlstore.Store
	Bookings   persistence.BookingRepository
	Classrooms persistence.ClassroomRepository
	Teachers   persistence.TeacherRepository
	Subjects   persistence.SubjectRepository
	Attendance persistence.AttendanceRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	ctx := context.Background()

	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: "sqlite", DSN: sqlstore.SQLiteDSN(path)}, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	store := sqlstore.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:      store,
		Bookings:   store.Bookings,
		Classrooms: store.Classrooms,
		Teachers:   store.Teachers,
		Subjects:   store.Subjects,
		Attendance: store.Attendance,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedCatalog inserts the subject, teacher and classroom fixtures so that
// bookings referencing them satisfy foreign keys.
func (h *SQLiteHarness) SeedCatalog(tb testing.TB, subjects []SubjectFixture, teachers []TeacherFixture, classrooms []ClassroomFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, s := range subjects {
		if err := h.Subjects.CreateSubject(ctx, s.Persistence()); err != nil {
			tb.Fatalf("seed subject %s: %v", s.ID, err)
		}
	}
	for _, t := range teachers {
		if err := h.Teachers.CreateTeacher(ctx, t.Persistence()); err != nil {
			tb.Fatalf("seed teacher %s: %v", t.ID, err)
		}
	}
	for _, c := range classrooms {
		if err := h.Classrooms.CreateClassroom(ctx, c.Persistence()); err != nil {
			tb.Fatalf("seed classroom %s: %v", c.ID, err)
		}
	}
}

// SeedBookings inserts bookings directly, bypassing the conflict check.
func (h *SQLiteHarness) SeedBookings(tb testing.TB, bookings ...BookingFixture) {
	tb.Helper()
	err := h.Bookings.WithinTransaction(context.Background(), func(tx persistence.BookingTx) error {
		for _, b := range bookings {
			if err := tx.CreateBooking(context.Background(), b.Persistence()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("seed bookings: %v", err)
	}
}
