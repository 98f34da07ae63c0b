package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

var (
	classroomCounter  uint64
	teacherCounter    uint64
	subjectCounter    uint64
	bookingCounter    uint64
	attendanceCounter uint64
)

// referenceTime is a Monday morning so that fixture dates line up with the
// weekly timetable.
var referenceTime = time.Date(2024, time.March, 4, 7, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Classroom fixtures ---------------------------

// ClassroomFixture represents a deterministic classroom record.
type ClassroomFixture struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassroomOption configures the generated classroom fixture.
type ClassroomOption func(*ClassroomFixture)

// NewClassroomFixture returns a deterministic classroom fixture with optional overrides.
func NewClassroomFixture(opts ...ClassroomOption) ClassroomFixture {
	idx := atomic.AddUint64(&classroomCounter, 1)
	id := fmt.Sprintf("classroom-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := ClassroomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Location:  "Main Building",
		Capacity:  int(20 + idx%10),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClassroomID overrides the generated classroom ID.
func WithClassroomID(id string) ClassroomOption {
	return func(f *ClassroomFixture) {
		f.ID = id
	}
}

// WithClassroomName overrides the generated classroom name.
func WithClassroomName(name string) ClassroomOption {
	return func(f *ClassroomFixture) {
		f.Name = name
	}
}

// WithClassroomCapacity overrides the generated capacity.
func WithClassroomCapacity(capacity int) ClassroomOption {
	return func(f *ClassroomFixture) {
		f.Capacity = capacity
	}
}

// Application returns the fixture as an application.Classroom value.
func (f ClassroomFixture) Application() application.Classroom {
	return application.Classroom{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Classroom value.
func (f ClassroomFixture) Persistence() persistence.Classroom {
	return persistence.Classroom{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ClassroomInput.
func (f ClassroomFixture) Input() application.ClassroomInput {
	return application.ClassroomInput{
		Name:     f.Name,
		Location: f.Location,
		Capacity: f.Capacity,
	}
}

// ---------------------------- Teacher fixtures ----------------------------

// TeacherFixture represents a deterministic teacher record.
type TeacherFixture struct {
	ID        string
	FullName  string
	Email     *string
	Phone     *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeacherOption configures the generated teacher fixture.
type TeacherOption func(*TeacherFixture)

// NewTeacherFixture returns a deterministic teacher fixture with optional overrides.
func NewTeacherFixture(opts ...TeacherOption) TeacherFixture {
	idx := atomic.AddUint64(&teacherCounter, 1)
	id := fmt.Sprintf("teacher-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	email := fmt.Sprintf("%s@example.com", id)
	fixture := TeacherFixture{
		ID:        id,
		FullName:  fmt.Sprintf("Teacher %03d", idx),
		Email:     &email,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTeacherID overrides the generated teacher ID.
func WithTeacherID(id string) TeacherOption {
	return func(f *TeacherFixture) {
		f.ID = id
	}
}

// WithTeacherName overrides the generated full name.
func WithTeacherName(name string) TeacherOption {
	return func(f *TeacherFixture) {
		f.FullName = name
	}
}

// WithTeacherEmail sets the email address; an empty value clears it.
func WithTeacherEmail(email string) TeacherOption {
	return func(f *TeacherFixture) {
		if email == "" {
			f.Email = nil
			return
		}
		value := email
		f.Email = &value
	}
}

// WithTeacherActive sets the active flag.
func WithTeacherActive(active bool) TeacherOption {
	return func(f *TeacherFixture) {
		f.IsActive = active
	}
}

// Application returns the fixture as an application.Teacher value.
func (f TeacherFixture) Application() application.Teacher {
	return application.Teacher{
		ID:        f.ID,
		FullName:  f.FullName,
		Email:     copyStringPtr(f.Email),
		Phone:     copyStringPtr(f.Phone),
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Teacher value.
func (f TeacherFixture) Persistence() persistence.Teacher {
	return persistence.Teacher{
		ID:        f.ID,
		FullName:  f.FullName,
		Email:     copyStringPtr(f.Email),
		Phone:     copyStringPtr(f.Phone),
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.TeacherInput.
func (f TeacherFixture) Input() application.TeacherInput {
	active := f.IsActive
	return application.TeacherInput{
		FullName: f.FullName,
		Email:    copyStringPtr(f.Email),
		Phone:    copyStringPtr(f.Phone),
		IsActive: &active,
	}
}

// Principal returns a principal acting as this teacher.
func (f TeacherFixture) Principal() application.Principal {
	return application.Principal{ActorID: f.ID, TeacherID: f.ID}
}

// ---------------------------- Subject fixtures ----------------------------

// SubjectFixture represents a deterministic subject record.
type SubjectFixture struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubjectOption configures the generated subject fixture.
type SubjectOption func(*SubjectFixture)

// NewSubjectFixture returns a deterministic subject fixture with optional overrides.
func NewSubjectFixture(opts ...SubjectOption) SubjectFixture {
	idx := atomic.AddUint64(&subjectCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := SubjectFixture{
		ID:        fmt.Sprintf("subject-%03d", idx),
		Code:      fmt.Sprintf("SUB-%03d", idx),
		Name:      fmt.Sprintf("Subject %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSubjectID overrides the generated subject ID.
func WithSubjectID(id string) SubjectOption {
	return func(f *SubjectFixture) {
		f.ID = id
	}
}

// WithSubjectCode overrides the generated subject code.
func WithSubjectCode(code string) SubjectOption {
	return func(f *SubjectFixture) {
		f.Code = code
	}
}

// Application returns the fixture as an application.Subject value.
func (f SubjectFixture) Application() application.Subject {
	return application.Subject{ID: f.ID, Code: f.Code, Name: f.Name, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
}

// Persistence returns the fixture as a persistence.Subject value.
func (f SubjectFixture) Persistence() persistence.Subject {
	return persistence.Subject{ID: f.ID, Code: f.Code, Name: f.Name, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
}

// Input returns the fixture as an application.SubjectInput.
func (f SubjectFixture) Input() application.SubjectInput {
	return application.SubjectInput{Code: f.Code, Name: f.Name}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic weekly booking.
type BookingFixture struct {
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

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns an active monday 09:00-10:00 booking with
// optional overrides. The referenced subject, teacher and classroom are not
// created.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := BookingFixture{
		ID:          fmt.Sprintf("booking-%03d", idx),
		SubjectID:   "subject-001",
		TeacherID:   "teacher-001",
		ClassroomID: "classroom-001",
		Day:         scheduler.Monday,
		Start:       scheduler.MustClockTime(9, 0),
		End:         scheduler.MustClockTime(10, 0),
		IsActive:    true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingResources sets the subject, teacher and classroom references.
func WithBookingResources(subjectID, teacherID, classroomID string) BookingOption {
	return func(f *BookingFixture) {
		f.SubjectID = subjectID
		f.TeacherID = teacherID
		f.ClassroomID = classroomID
	}
}

// WithBookingTeacher overrides the teacher reference.
func WithBookingTeacher(teacherID string) BookingOption {
	return func(f *BookingFixture) {
		f.TeacherID = teacherID
	}
}

// WithBookingClassroom overrides the classroom reference.
func WithBookingClassroom(classroomID string) BookingOption {
	return func(f *BookingFixture) {
		f.ClassroomID = classroomID
	}
}

// WithBookingSlot sets the day and the time range given as "HH:MM".
func WithBookingSlot(day scheduler.DayOfWeek, start, end string) BookingOption {
	return func(f *BookingFixture) {
		f.Day = day
		f.Start = mustClock(start)
		f.End = mustClock(end)
	}
}

// WithBookingActive sets the active flag.
func WithBookingActive(active bool) BookingOption {
	return func(f *BookingFixture) {
		f.IsActive = active
	}
}

// Application returns the fixture as an application.Booking value.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:          f.ID,
		SubjectID:   f.SubjectID,
		TeacherID:   f.TeacherID,
		ClassroomID: f.ClassroomID,
		Day:         f.Day,
		Start:       f.Start,
		End:         f.End,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:          f.ID,
		SubjectID:   f.SubjectID,
		TeacherID:   f.TeacherID,
		ClassroomID: f.ClassroomID,
		Day:         f.Day,
		Start:       f.Start,
		End:         f.End,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture in the raw form accepted by the booking service.
func (f BookingFixture) Input() application.BookingInput {
	active := f.IsActive
	return application.BookingInput{
		SubjectID:   f.SubjectID,
		TeacherID:   f.TeacherID,
		ClassroomID: f.ClassroomID,
		Day:         f.Day.String(),
		Start:       f.Start.String(),
		End:         f.End.String(),
		IsActive:    &active,
	}
}

// --------------------------- Attendance fixtures ---------------------------

// AttendanceFixture represents a deterministic attendance record.
type AttendanceFixture struct {
	ID        string
	TeacherID string
	Date      time.Time
	Status    string
	Remarks   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceOption configures the generated attendance fixture.
type AttendanceOption func(*AttendanceFixture)

// NewAttendanceFixture returns a "present" record on the reference date.
func NewAttendanceFixture(opts ...AttendanceOption) AttendanceFixture {
	idx := atomic.AddUint64(&attendanceCounter, 1)
	y, m, d := referenceTime.Date()
	fixture := AttendanceFixture{
		ID:        fmt.Sprintf("attendance-%03d", idx),
		TeacherID: "teacher-001",
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Status:    string(application.AttendancePresent),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAttendanceTeacher overrides the teacher reference.
func WithAttendanceTeacher(teacherID string) AttendanceOption {
	return func(f *AttendanceFixture) {
		f.TeacherID = teacherID
	}
}

// WithAttendanceDate sets the calendar date, dropping any clock part.
func WithAttendanceDate(date time.Time) AttendanceOption {
	return func(f *AttendanceFixture) {
		y, m, d := date.Date()
		f.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// WithAttendanceStatus overrides the status.
func WithAttendanceStatus(status string) AttendanceOption {
	return func(f *AttendanceFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.TeacherAttendance value.
func (f AttendanceFixture) Persistence() persistence.TeacherAttendance {
	return persistence.TeacherAttendance{
		ID:        f.ID,
		TeacherID: f.TeacherID,
		Date:      f.Date,
		Status:    f.Status,
		Remarks:   copyStringPtr(f.Remarks),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Application returns the fixture as an application.AttendanceRecord value.
func (f AttendanceFixture) Application() application.AttendanceRecord {
	return application.AttendanceRecord{
		ID:        f.ID,
		TeacherID: f.TeacherID,
		Date:      f.Date,
		Status:    application.AttendanceStatus(f.Status),
		Remarks:   copyStringPtr(f.Remarks),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func mustClock(value string) scheduler.ClockTime {
	clock, err := scheduler.ParseClockTime(value)
	if err != nil {
		panic(err)
	}
	return clock
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
