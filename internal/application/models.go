package application

import (
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// Principal identifies the caller of a service method. ActorID names whoever
// issued the request; TeacherID is set when the caller is a teacher and scopes
// the "my timetable" and "my attendance" views.
type Principal struct {
	ActorID   string
	TeacherID string
}

// BookingInput captures caller provided booking fields in their raw form.
// Day, Start and End are parsed and validated by the service.
type BookingInput struct {
	SubjectID   string
	TeacherID   string
	ClassroomID string
	Day         string
	Start       string
	End         string
	// IsActive defaults to true on create and to the stored value on update.
	IsActive *bool
}

// Booking is a weekly lesson: one subject, one teacher, one classroom, one day
// and a half-open time range.
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

// Slot returns the scheduling view of the booking used by conflict detection
// and grid assembly.
func (b Booking) Slot() scheduler.Booking {
	return scheduler.Booking{
		ID:          b.ID,
		SubjectID:   b.SubjectID,
		TeacherID:   b.TeacherID,
		ClassroomID: b.ClassroomID,
		Day:         b.Day,
		Start:       b.Start,
		End:         b.End,
		IsActive:    b.IsActive,
	}
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// UpdateBookingParams wraps the data required to replace an existing booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Input     BookingInput
}

// SetBookingActiveParams toggles the active flag of a booking.
type SetBookingActiveParams struct {
	Principal Principal
	BookingID string
	Active    bool
}

// CheckConflictsParams describes a dry-run conflict check. BookingID is set
// when the candidate replaces an existing booking so that it is not reported
// as conflicting with itself.
type CheckConflictsParams struct {
	Principal Principal
	BookingID string
	Input     BookingInput
}

// ListBookingsParams narrows booking listings. Empty fields do not filter.
type ListBookingsParams struct {
	Principal       Principal
	TeacherID       string
	ClassroomID     string
	SubjectID       string
	Day             string
	IncludeInactive bool
}

// GridParams scopes the weekly timetable to a teacher and/or a classroom.
type GridParams struct {
	Principal   Principal
	TeacherID   string
	ClassroomID string
}

// WeekTimetable is the rendered weekly grid together with its axes.
type WeekTimetable struct {
	Days  []scheduler.DayOfWeek
	Slots []string
	Grid  scheduler.WeekGrid
	Total int
}

// ClassroomInput captures caller provided classroom fields.
type ClassroomInput struct {
	Name     string
	Location string
	Capacity int
}

// Classroom is a room lessons are held in.
type Classroom struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateClassroomParams wraps the data required to create a classroom.
type CreateClassroomParams struct {
	Principal Principal
	Input     ClassroomInput
}

// UpdateClassroomParams wraps the data required to update a classroom.
type UpdateClassroomParams struct {
	Principal   Principal
	ClassroomID string
	Input       ClassroomInput
}

// TeacherInput captures caller provided teacher fields.
type TeacherInput struct {
	FullName string
	Email    *string
	Phone    *string
	IsActive *bool
}

// Teacher is a member of the teaching staff.
type Teacher struct {
	ID        string
	FullName  string
	Email     *string
	Phone     *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateTeacherParams wraps the data required to create a teacher.
type CreateTeacherParams struct {
	Principal Principal
	Input     TeacherInput
}

// UpdateTeacherParams wraps the data required to update a teacher.
type UpdateTeacherParams struct {
	Principal Principal
	TeacherID string
	Input     TeacherInput
}

// SubjectInput captures caller provided subject fields.
type SubjectInput struct {
	Code string
	Name string
}

// Subject is a course taught at the centre.
type Subject struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateSubjectParams wraps the data required to create a subject.
type CreateSubjectParams struct {
	Principal Principal
	Input     SubjectInput
}

// UpdateSubjectParams wraps the data required to update a subject.
type UpdateSubjectParams struct {
	Principal Principal
	SubjectID string
	Input     SubjectInput
}

// AttendanceStatus is the recorded presence of a teacher on a date.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceLeave   AttendanceStatus = "leave"
	// AttendanceUnmarked is reported for teachers without a record. It is never
	// stored.
	AttendanceUnmarked AttendanceStatus = "unmarked"
)

// Valid reports whether s may be stored.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceLeave:
		return true
	}
	return false
}

// AttendanceStatuses lists the storable statuses in display order.
func AttendanceStatuses() []AttendanceStatus {
	return []AttendanceStatus{AttendancePresent, AttendanceLate, AttendanceAbsent, AttendanceLeave}
}

// AttendanceRecord is a teacher's attendance on one calendar date.
type AttendanceRecord struct {
	ID        string
	TeacherID string
	Date      time.Time
	Status    AttendanceStatus
	Remarks   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordAttendanceParams wraps the data required to mark attendance.
type RecordAttendanceParams struct {
	Principal Principal
	TeacherID string
	Date      time.Time
	Status    string
	Remarks   *string
}

// DailyAttendanceEntry summarises one teacher for a date.
type DailyAttendanceEntry struct {
	Teacher          Teacher
	Status           AttendanceStatus
	Remarks          *string
	ScheduledLessons int
}

// DailyAttendanceSummary is the attendance board for one date.
type DailyAttendanceSummary struct {
	Date    time.Time
	Day     scheduler.DayOfWeek
	Entries []DailyAttendanceEntry
}

// TeacherReportParams selects a teacher and an inclusive date window.
type TeacherReportParams struct {
	Principal Principal
	TeacherID string
	From      time.Time
	To        time.Time
}

// TeacherReport aggregates a teacher's schedule and attendance over a window.
type TeacherReport struct {
	Teacher      Teacher
	From         time.Time
	To           time.Time
	Occurrences  []LessonOccurrence
	Records      []AttendanceRecord
	StatusCounts map[AttendanceStatus]int
	// ScheduledDays counts dates in the window with at least one lesson.
	ScheduledDays int
	// UnmarkedScheduledDays counts scheduled dates without an attendance record.
	UnmarkedScheduledDays int
}

// LessonOccurrence is one dated lesson in a report window.
type LessonOccurrence struct {
	BookingID   string
	SubjectID   string
	ClassroomID string
	Date        time.Time
	Start       time.Time
	End         time.Time
}
