package persistence

import (
	"context"
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// BookingFilter narrows booking queries. Empty fields do not filter.
type BookingFilter struct {
	TeacherID       string
	ClassroomID     string
	SubjectID       string
	Day             *scheduler.DayOfWeek
	IncludeInactive bool
}

// BookingRepository stores weekly bookings.
type BookingRepository interface {
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	// WithinTransaction runs fn inside a single write transaction. Returning an
	// error from fn rolls the transaction back.
	WithinTransaction(ctx context.Context, fn func(tx BookingTx) error) error
}

// BookingTx exposes the booking operations that must share a transaction with
// the conflict check preceding them.
type BookingTx interface {
	// LockResources takes database-level locks for the given keys until the
	// transaction ends. Stores whose write transactions are already serialized
	// may treat this as a no-op.
	LockResources(ctx context.Context, keys ...string) error
	// ListActiveBookingsForResources returns active bookings on day that share
	// the teacher or the classroom.
	ListActiveBookingsForResources(ctx context.Context, day scheduler.DayOfWeek, teacherID, classroomID string) ([]Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
}

// ClassroomRepository exposes CRUD operations for classrooms.
type ClassroomRepository interface {
	CreateClassroom(ctx context.Context, classroom Classroom) error
	UpdateClassroom(ctx context.Context, classroom Classroom) error
	GetClassroom(ctx context.Context, id string) (Classroom, error)
	ListClassrooms(ctx context.Context) ([]Classroom, error)
	DeleteClassroom(ctx context.Context, id string) error
}

// TeacherRepository exposes CRUD operations for teachers.
type TeacherRepository interface {
	CreateTeacher(ctx context.Context, teacher Teacher) error
	UpdateTeacher(ctx context.Context, teacher Teacher) error
	GetTeacher(ctx context.Context, id string) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	DeleteTeacher(ctx context.Context, id string) error
}

// SubjectRepository exposes CRUD operations for subjects.
type SubjectRepository interface {
	CreateSubject(ctx context.Context, subject Subject) error
	UpdateSubject(ctx context.Context, subject Subject) error
	GetSubject(ctx context.Context, id string) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	DeleteSubject(ctx context.Context, id string) error
}

// AttendanceRepository stores daily teacher attendance.
type AttendanceRepository interface {
	// UpsertAttendance inserts the record or replaces the status and remarks of
	// the existing record for the same teacher and date.
	UpsertAttendance(ctx context.Context, record TeacherAttendance) (TeacherAttendance, error)
	GetAttendance(ctx context.Context, teacherID string, date time.Time) (TeacherAttendance, error)
	ListAttendanceByDate(ctx context.Context, date time.Time) ([]TeacherAttendance, error)
	ListAttendanceForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]TeacherAttendance, error)
}
