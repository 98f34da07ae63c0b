package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

// The adapters below translate between the application's repository ports and
// the SQL store. Writes read the stored row back so callers see the values the
// database actually holds.

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingRepositoryFilter) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		TeacherID:       filter.TeacherID,
		ClassroomID:     filter.ClassroomID,
		SubjectID:       filter.SubjectID,
		Day:             filter.Day,
		IncludeInactive: filter.IncludeInactive,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

func (a *bookingRepositoryAdapter) WithinTransaction(ctx context.Context, fn func(tx application.BookingTransaction) error) error {
	return a.repo.WithinTransaction(ctx, func(tx persistence.BookingTx) error {
		return fn(&bookingTransactionAdapter{tx: tx})
	})
}

type bookingTransactionAdapter struct {
	tx persistence.BookingTx
}

func (a *bookingTransactionAdapter) LockResources(ctx context.Context, keys ...string) error {
	return a.tx.LockResources(ctx, keys...)
}

func (a *bookingTransactionAdapter) ListActiveBookingsForResources(ctx context.Context, day scheduler.DayOfWeek, teacherID, classroomID string) ([]application.Booking, error) {
	models, err := a.tx.ListActiveBookingsForResources(ctx, day, teacherID, classroomID)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingTransactionAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.tx.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingTransactionAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.tx.CreateBooking(ctx, persistence.Booking(booking)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

func (a *bookingTransactionAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.tx.UpdateBooking(ctx, persistence.Booking(booking)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

// catalogDirectoryAdapter resolves booking references against the catalogue
// tables and reports the input fields whose rows are missing.
type catalogDirectoryAdapter struct {
	subjects   persistence.SubjectRepository
	teachers   persistence.TeacherRepository
	classrooms persistence.ClassroomRepository
}

func newCatalogDirectoryAdapter(subjects persistence.SubjectRepository, teachers persistence.TeacherRepository, classrooms persistence.ClassroomRepository) *catalogDirectoryAdapter {
	return &catalogDirectoryAdapter{subjects: subjects, teachers: teachers, classrooms: classrooms}
}

func (a *catalogDirectoryAdapter) MissingReferences(ctx context.Context, subjectID, teacherID, classroomID string) ([]string, error) {
	checks := []struct {
		field  string
		id     string
		lookup func(context.Context, string) error
	}{
		{"subject_id", subjectID, func(ctx context.Context, id string) error { _, err := a.subjects.GetSubject(ctx, id); return err }},
		{"teacher_id", teacherID, func(ctx context.Context, id string) error { _, err := a.teachers.GetTeacher(ctx, id); return err }},
		{"classroom_id", classroomID, func(ctx context.Context, id string) error { _, err := a.classrooms.GetClassroom(ctx, id); return err }},
	}

	var missing []string
	for _, check := range checks {
		if check.id == "" {
			continue
		}
		if err := check.lookup(ctx, check.id); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				missing = append(missing, check.field)
				continue
			}
			return nil, err
		}
	}
	return missing, nil
}

type classroomRepositoryAdapter struct {
	repo persistence.ClassroomRepository
}

func newClassroomRepositoryAdapter(repo persistence.ClassroomRepository) *classroomRepositoryAdapter {
	return &classroomRepositoryAdapter{repo: repo}
}

func (a *classroomRepositoryAdapter) CreateClassroom(ctx context.Context, classroom application.Classroom) (application.Classroom, error) {
	if err := a.repo.CreateClassroom(ctx, persistence.Classroom(classroom)); err != nil {
		return application.Classroom{}, err
	}
	return a.GetClassroom(ctx, classroom.ID)
}

func (a *classroomRepositoryAdapter) GetClassroom(ctx context.Context, id string) (application.Classroom, error) {
	stored, err := a.repo.GetClassroom(ctx, id)
	if err != nil {
		return application.Classroom{}, err
	}
	return application.Classroom(stored), nil
}

func (a *classroomRepositoryAdapter) UpdateClassroom(ctx context.Context, classroom application.Classroom) (application.Classroom, error) {
	if err := a.repo.UpdateClassroom(ctx, persistence.Classroom(classroom)); err != nil {
		return application.Classroom{}, err
	}
	return a.GetClassroom(ctx, classroom.ID)
}

func (a *classroomRepositoryAdapter) DeleteClassroom(ctx context.Context, id string) error {
	return a.repo.DeleteClassroom(ctx, id)
}

func (a *classroomRepositoryAdapter) ListClassrooms(ctx context.Context) ([]application.Classroom, error) {
	models, err := a.repo.ListClassrooms(ctx)
	if err != nil {
		return nil, err
	}
	classrooms := make([]application.Classroom, 0, len(models))
	for _, model := range models {
		classrooms = append(classrooms, application.Classroom(model))
	}
	return classrooms, nil
}

type teacherRepositoryAdapter struct {
	repo persistence.TeacherRepository
}

func newTeacherRepositoryAdapter(repo persistence.TeacherRepository) *teacherRepositoryAdapter {
	return &teacherRepositoryAdapter{repo: repo}
}

func (a *teacherRepositoryAdapter) CreateTeacher(ctx context.Context, teacher application.Teacher) (application.Teacher, error) {
	if err := a.repo.CreateTeacher(ctx, toPersistenceTeacher(teacher)); err != nil {
		return application.Teacher{}, err
	}
	return a.GetTeacher(ctx, teacher.ID)
}

func (a *teacherRepositoryAdapter) GetTeacher(ctx context.Context, id string) (application.Teacher, error) {
	stored, err := a.repo.GetTeacher(ctx, id)
	if err != nil {
		return application.Teacher{}, err
	}
	return toApplicationTeacher(stored), nil
}

func (a *teacherRepositoryAdapter) UpdateTeacher(ctx context.Context, teacher application.Teacher) (application.Teacher, error) {
	if err := a.repo.UpdateTeacher(ctx, toPersistenceTeacher(teacher)); err != nil {
		return application.Teacher{}, err
	}
	return a.GetTeacher(ctx, teacher.ID)
}

func (a *teacherRepositoryAdapter) DeleteTeacher(ctx context.Context, id string) error {
	return a.repo.DeleteTeacher(ctx, id)
}

func (a *teacherRepositoryAdapter) ListTeachers(ctx context.Context) ([]application.Teacher, error) {
	models, err := a.repo.ListTeachers(ctx)
	if err != nil {
		return nil, err
	}
	teachers := make([]application.Teacher, 0, len(models))
	for _, model := range models {
		teachers = append(teachers, toApplicationTeacher(model))
	}
	return teachers, nil
}

type subjectRepositoryAdapter struct {
	repo persistence.SubjectRepository
}

func newSubjectRepositoryAdapter(repo persistence.SubjectRepository) *subjectRepositoryAdapter {
	return &subjectRepositoryAdapter{repo: repo}
}

func (a *subjectRepositoryAdapter) CreateSubject(ctx context.Context, subject application.Subject) (application.Subject, error) {
	if err := a.repo.CreateSubject(ctx, persistence.Subject(subject)); err != nil {
		return application.Subject{}, err
	}
	return a.GetSubject(ctx, subject.ID)
}

func (a *subjectRepositoryAdapter) GetSubject(ctx context.Context, id string) (application.Subject, error) {
	stored, err := a.repo.GetSubject(ctx, id)
	if err != nil {
		return application.Subject{}, err
	}
	return application.Subject(stored), nil
}

func (a *subjectRepositoryAdapter) UpdateSubject(ctx context.Context, subject application.Subject) (application.Subject, error) {
	if err := a.repo.UpdateSubject(ctx, persistence.Subject(subject)); err != nil {
		return application.Subject{}, err
	}
	return a.GetSubject(ctx, subject.ID)
}

func (a *subjectRepositoryAdapter) DeleteSubject(ctx context.Context, id string) error {
	return a.repo.DeleteSubject(ctx, id)
}

func (a *subjectRepositoryAdapter) ListSubjects(ctx context.Context) ([]application.Subject, error) {
	models, err := a.repo.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	subjects := make([]application.Subject, 0, len(models))
	for _, model := range models {
		subjects = append(subjects, application.Subject(model))
	}
	return subjects, nil
}

type attendanceRepositoryAdapter struct {
	repo persistence.AttendanceRepository
}

func newAttendanceRepositoryAdapter(repo persistence.AttendanceRepository) *attendanceRepositoryAdapter {
	return &attendanceRepositoryAdapter{repo: repo}
}

func (a *attendanceRepositoryAdapter) UpsertAttendance(ctx context.Context, record application.AttendanceRecord) (application.AttendanceRecord, error) {
	stored, err := a.repo.UpsertAttendance(ctx, persistence.TeacherAttendance{
		ID:        record.ID,
		TeacherID: record.TeacherID,
		Date:      record.Date,
		Status:    string(record.Status),
		Remarks:   cloneString(record.Remarks),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	})
	if err != nil {
		return application.AttendanceRecord{}, err
	}
	return toApplicationAttendance(stored), nil
}

func (a *attendanceRepositoryAdapter) ListAttendanceByDate(ctx context.Context, date time.Time) ([]application.AttendanceRecord, error) {
	models, err := a.repo.ListAttendanceByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return toApplicationAttendanceList(models), nil
}

func (a *attendanceRepositoryAdapter) ListAttendanceForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]application.AttendanceRecord, error) {
	models, err := a.repo.ListAttendanceForTeacher(ctx, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	return toApplicationAttendanceList(models), nil
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking(model)
}

func toApplicationBookings(models []persistence.Booking) []application.Booking {
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings
}

func toApplicationTeacher(model persistence.Teacher) application.Teacher {
	return application.Teacher{
		ID:        model.ID,
		FullName:  model.FullName,
		Email:     cloneString(model.Email),
		Phone:     cloneString(model.Phone),
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceTeacher(teacher application.Teacher) persistence.Teacher {
	return persistence.Teacher{
		ID:        teacher.ID,
		FullName:  teacher.FullName,
		Email:     cloneString(teacher.Email),
		Phone:     cloneString(teacher.Phone),
		IsActive:  teacher.IsActive,
		CreatedAt: teacher.CreatedAt,
		UpdatedAt: teacher.UpdatedAt,
	}
}

func toApplicationAttendance(model persistence.TeacherAttendance) application.AttendanceRecord {
	return application.AttendanceRecord{
		ID:        model.ID,
		TeacherID: model.TeacherID,
		Date:      model.Date,
		Status:    application.AttendanceStatus(model.Status),
		Remarks:   cloneString(model.Remarks),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toApplicationAttendanceList(models []persistence.TeacherAttendance) []application.AttendanceRecord {
	records := make([]application.AttendanceRecord, 0, len(models))
	for _, model := range models {
		records = append(records, toApplicationAttendance(model))
	}
	return records
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
