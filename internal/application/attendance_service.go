package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/recurrence"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

// AttendanceRepository captures the persistence operations needed by the attendance service.
type AttendanceRepository interface {
	UpsertAttendance(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error)
	ListAttendanceByDate(ctx context.Context, date time.Time) ([]AttendanceRecord, error)
	ListAttendanceForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]AttendanceRecord, error)
}

// TeacherDirectory exposes teacher lookups.
type TeacherDirectory interface {
	GetTeacher(ctx context.Context, id string) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
}

// BookingLister exposes booking queries.
type BookingLister interface {
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// AttendanceService records daily teacher attendance and relates it to the
// weekly timetable.
type AttendanceService struct {
	records     AttendanceRepository
	teachers    TeacherDirectory
	bookings    BookingLister
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendanceService wires dependencies for the attendance service.
func NewAttendanceService(records AttendanceRepository, teachers TeacherDirectory, bookings BookingLister, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *AttendanceService {
	return NewAttendanceServiceWithLogger(records, teachers, bookings, engine, idGenerator, now, nil)
}

// NewAttendanceServiceWithLogger wires dependencies with a specified logger.
func NewAttendanceServiceWithLogger(records AttendanceRepository, teachers TeacherDirectory, bookings BookingLister, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	return &AttendanceService{
		records:     records,
		teachers:    teachers,
		bookings:    bookings,
		engine:      engine,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// RecordAttendance stores the status of a teacher on a date, replacing any
// earlier record for the same date.
func (s *AttendanceService) RecordAttendance(ctx context.Context, params RecordAttendanceParams) (record AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("attendance repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RecordAttendance",
		"principal_id", params.Principal.ActorID,
		"teacher_id", params.TeacherID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("attendance_id", record.ID, "status", record.Status).InfoContext(ctx, "attendance recorded")
	}()

	teacherID := strings.TrimSpace(params.TeacherID)
	status := AttendanceStatus(strings.ToLower(strings.TrimSpace(params.Status)))

	vErr := &ValidationError{}
	if teacherID == "" {
		vErr.add("teacher_id", "teacher_id is required")
	}
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !status.Valid() {
		vErr.add("status", "status must be one of present, absent, late, leave")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.teachers != nil {
		if _, err = s.teachers.GetTeacher(ctx, teacherID); err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
	}

	now := s.now()
	record, err = s.records.UpsertAttendance(ctx, AttendanceRecord{
		ID:        s.idGenerator(),
		TeacherID: teacherID,
		Date:      s.calendarDate(params.Date),
		Status:    status,
		Remarks:   normalizeOptionalString(params.Remarks),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = mapAttendanceRepoError(err)
	}
	return
}

// DailySummary lists every active teacher with their status on date and the
// number of active lessons they teach on that weekday.
func (s *AttendanceService) DailySummary(ctx context.Context, principal Principal, date time.Time) (summary DailyAttendanceSummary, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DailySummary", "principal_id", principal.ActorID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build attendance summary", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if date.IsZero() {
		vErr := &ValidationError{}
		vErr.add("date", "date is required")
		err = vErr
		return
	}

	day := s.calendarDate(date)
	weekday := scheduler.DayFromWeekday(day.Weekday())
	summary = DailyAttendanceSummary{Date: day, Day: weekday}

	var teachers []Teacher
	if s.teachers != nil {
		teachers, err = s.teachers.ListTeachers(ctx)
		if err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
	}

	records := make(map[string]AttendanceRecord)
	if s.records != nil {
		var list []AttendanceRecord
		list, err = s.records.ListAttendanceByDate(ctx, day)
		if err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
		for _, r := range list {
			records[r.TeacherID] = r
		}
	}

	lessons := make(map[string]int)
	if s.bookings != nil {
		var bookings []Booking
		bookings, err = s.bookings.ListBookings(ctx, BookingRepositoryFilter{Day: &weekday})
		if err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
		for _, b := range bookings {
			if b.IsActive {
				lessons[b.TeacherID]++
			}
		}
	}

	for _, teacher := range teachers {
		if !teacher.IsActive {
			continue
		}
		entry := DailyAttendanceEntry{
			Teacher:          teacher,
			Status:           AttendanceUnmarked,
			ScheduledLessons: lessons[teacher.ID],
		}
		if r, ok := records[teacher.ID]; ok {
			entry.Status = r.Status
			entry.Remarks = r.Remarks
		}
		summary.Entries = append(summary.Entries, entry)
	}

	sort.Slice(summary.Entries, func(i, j int) bool {
		a, b := summary.Entries[i].Teacher, summary.Entries[j].Teacher
		return lessFold(a.FullName, b.FullName, a.ID, b.ID)
	})
	return
}

// TeacherReport expands the teacher's active bookings over the inclusive
// window and counts attendance statuses recorded in it.
func (s *AttendanceService) TeacherReport(ctx context.Context, params TeacherReportParams) (report TeacherReport, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "TeacherReport",
		"principal_id", params.Principal.ActorID,
		"teacher_id", params.TeacherID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build teacher report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrence_count", len(report.Occurrences)).DebugContext(ctx, "teacher report built")
	}()

	teacherID := strings.TrimSpace(params.TeacherID)
	vErr := &ValidationError{}
	if teacherID == "" {
		vErr.add("teacher_id", "teacher_id is required")
	}
	if params.From.IsZero() {
		vErr.add("from", "from is required")
	}
	if params.To.IsZero() {
		vErr.add("to", "to is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	from := s.calendarDate(params.From)
	to := s.calendarDate(params.To)
	report = TeacherReport{From: from, To: to, StatusCounts: make(map[AttendanceStatus]int)}

	if s.teachers != nil {
		report.Teacher, err = s.teachers.GetTeacher(ctx, teacherID)
		if err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
	} else {
		report.Teacher = Teacher{ID: teacherID}
	}

	var bookings []Booking
	if s.bookings != nil {
		bookings, err = s.bookings.ListBookings(ctx, BookingRepositoryFilter{TeacherID: teacherID})
		if err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
	}

	var occurrences []recurrence.Occurrence
	occurrences, err = s.engine.Expand(toSlots(bookings), params.From, params.To)
	if err != nil {
		err = mapWindowError(err)
		return
	}
	for _, occ := range occurrences {
		report.Occurrences = append(report.Occurrences, LessonOccurrence{
			BookingID:   occ.BookingID,
			SubjectID:   occ.SubjectID,
			ClassroomID: occ.ClassroomID,
			Date:        occ.Date,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	if s.records != nil {
		report.Records, err = s.records.ListAttendanceForTeacher(ctx, teacherID, from, to)
		if err != nil {
			err = mapAttendanceRepoError(err)
			return
		}
	}

	marked := make(map[string]struct{}, len(report.Records))
	for _, r := range report.Records {
		report.StatusCounts[r.Status]++
		marked[r.Date.Format(time.DateOnly)] = struct{}{}
	}

	for date := range recurrence.CountByDate(occurrences) {
		report.ScheduledDays++
		if _, ok := marked[date]; !ok {
			report.UnmarkedScheduledDays++
		}
	}
	return
}

// MyAttendance returns the report of the calling teacher.
func (s *AttendanceService) MyAttendance(ctx context.Context, principal Principal, from, to time.Time) (TeacherReport, error) {
	if strings.TrimSpace(principal.TeacherID) == "" {
		return TeacherReport{}, ErrUnauthorized
	}
	return s.TeacherReport(ctx, TeacherReportParams{
		Principal: principal,
		TeacherID: principal.TeacherID,
		From:      from,
		To:        to,
	})
}

// calendarDate returns the date of t in the engine's zone as midnight UTC,
// the form attendance dates are stored in.
func (s *AttendanceService) calendarDate(t time.Time) time.Time {
	y, m, d := t.In(s.engine.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mapWindowError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrInvalidWindow):
		vErr := &ValidationError{}
		vErr.add("to", "to must not be before from")
		return vErr
	case errors.Is(err, recurrence.ErrWindowTooLarge):
		vErr := &ValidationError{}
		vErr.add("to", fmt.Sprintf("window must be shorter than %d days", recurrence.MaxWindowDays))
		return vErr
	}
	return err
}

func mapAttendanceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of present, absent, late, leave")
		return vErr
	}
	if errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}
