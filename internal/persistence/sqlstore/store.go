package sqlstore

import (
	"context"
	"embed"

	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/persistence/sqlstore/migration"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Store groups the repositories sharing one database.
type Store struct {
	DB         *DB
	Bookings   *BookingRepository
	Classrooms *ClassroomRepository
	Teachers   *TeacherRepository
	Subjects   *SubjectRepository
	Attendance *AttendanceRepository
}

var (
	_ persistence.BookingRepository    = (*BookingRepository)(nil)
	_ persistence.BookingTx            = (*bookingTx)(nil)
	_ persistence.ClassroomRepository  = (*ClassroomRepository)(nil)
	_ persistence.TeacherRepository    = (*TeacherRepository)(nil)
	_ persistence.SubjectRepository    = (*SubjectRepository)(nil)
	_ persistence.AttendanceRepository = (*AttendanceRepository)(nil)
)

// NewStore builds every repository on db.
func NewStore(db *DB) *Store {
	return &Store{
		DB:         db,
		Bookings:   NewBookingRepository(db),
		Classrooms: NewClassroomRepository(db),
		Teachers:   NewTeacherRepository(db),
		Subjects:   NewSubjectRepository(db),
		Attendance: NewAttendanceRepository(db),
	}
}

// Migrator returns a migration manager for the embedded schema.
func (s *Store) Migrator() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(schemaFS, "schema"),
		migration.NewExecutor(s.DB.conn),
		s.DB.logger,
	)
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return s.Migrator().Run(ctx)
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Store) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	return s.Migrator().Status(ctx)
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}
