package persistence

import (
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// Booking is one weekly lesson slot stored in class_schedule.
type Booking struct {
	ID          string
	SubjectID   string
	TeacherID   string
	ClassroomID string
	Day         scheduler.DayOfWeek
	Start       scheduler.ClockTime
	End         scheduler.ClockTime
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Classroom represents a physical room lessons are held in.
type Classroom struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Teacher represents a member of the teaching staff.
type Teacher struct {
	ID        string
	FullName  string
	Email     *string
	Phone     *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subject represents a course taught at the centre.
type Subject struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeacherAttendance records a teacher's presence on a calendar date.
type TeacherAttendance struct {
	ID        string
	TeacherID string
	// Date carries only the calendar date; the clock part is always midnight UTC.
	Date      time.Time
	Status    string
	Remarks   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
