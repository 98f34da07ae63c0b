package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

type attendanceServiceStub struct {
	recorded  application.RecordAttendanceParams
	dailyDate time.Time
	report    application.TeacherReportParams
	myFrom    time.Time
	myTo      time.Time

	record  application.AttendanceRecord
	summary application.DailyAttendanceSummary
	result  application.TeacherReport
	err     error
}

func (s *attendanceServiceStub) RecordAttendance(ctx context.Context, params application.RecordAttendanceParams) (application.AttendanceRecord, error) {
	s.recorded = params
	return s.record, s.err
}

func (s *attendanceServiceStub) DailySummary(ctx context.Context, principal application.Principal, date time.Time) (application.DailyAttendanceSummary, error) {
	s.dailyDate = date
	return s.summary, s.err
}

func (s *attendanceServiceStub) TeacherReport(ctx context.Context, params application.TeacherReportParams) (application.TeacherReport, error) {
	s.report = params
	return s.result, s.err
}

func (s *attendanceServiceStub) MyAttendance(ctx context.Context, principal application.Principal, from, to time.Time) (application.TeacherReport, error) {
	s.myFrom, s.myTo = from, to
	return s.result, s.err
}

func newAttendanceRouter(stub *attendanceServiceStub, loc *time.Location) http.Handler {
	return NewRouter(RouterConfig{
		Attendance: NewAttendanceHandler(stub, loc, discardLogger()),
		Logger:     discardLogger(),
	})
}

func TestAttendanceHandler_Record(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	stub := &attendanceServiceStub{record: application.AttendanceRecord{
		ID:        "a-1",
		TeacherID: "t-1",
		Date:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Status:    application.AttendanceLate,
	}}
	router := newAttendanceRouter(stub, newYork)

	rec := serve(t, router, http.MethodPut, "/teachers/t-1/attendance/2024-03-04", `{"status":"late","remarks":"bus"}`, "X-Actor-ID", "office")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "t-1", stub.recorded.TeacherID)
	assert.Equal(t, "late", stub.recorded.Status)
	assert.Equal(t, "office", stub.recorded.Principal.ActorID)
	// The path date is a calendar date in the configured zone.
	y, m, d := stub.recorded.Date.Date()
	assert.Equal(t, []int{2024, 3, 4}, []int{y, int(m), d})
	assert.Equal(t, newYork, stub.recorded.Date.Location())

	attendance := decodeBody(t, rec)["attendance"].(map[string]any)
	assert.Equal(t, "2024-03-04", attendance["date"])
	assert.Equal(t, "late", attendance["status"])

	rec = serve(t, router, http.MethodPut, "/teachers/t-1/attendance/04-03-2024", `{"status":"late"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, router, http.MethodPut, "/teachers/t-1/attendance/2024-03-04", `{"status":"asleep"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["errors"].(map[string]any)["status"], "present, absent, late, leave")
}

func TestAttendanceHandler_Daily(t *testing.T) {
	stub := &attendanceServiceStub{summary: application.DailyAttendanceSummary{
		Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Day:  scheduler.Monday,
		Entries: []application.DailyAttendanceEntry{{
			Teacher:          application.Teacher{ID: "t-1", FullName: "Anu"},
			Status:           application.AttendanceUnmarked,
			ScheduledLessons: 2,
		}},
	}}
	router := newAttendanceRouter(stub, nil)

	rec := serve(t, router, http.MethodGet, "/attendance?date=2024-03-04", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-03-04", stub.dailyDate.Format(time.DateOnly))

	body := decodeBody(t, rec)
	assert.Equal(t, "monday", body["day"])
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "unmarked", entry["status"])
	assert.EqualValues(t, 2, entry["scheduled_lessons"])

	rec = serve(t, router, http.MethodGet, "/attendance?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceHandler_Reports(t *testing.T) {
	stub := &attendanceServiceStub{result: application.TeacherReport{
		Teacher: application.Teacher{ID: "t-1", FullName: "Anu"},
		From:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Records: []application.AttendanceRecord{
			{ID: "a-2", TeacherID: "t-1", Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), Status: application.AttendanceAbsent},
			{ID: "a-1", TeacherID: "t-1", Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Status: application.AttendancePresent},
		},
		StatusCounts:  map[application.AttendanceStatus]int{application.AttendancePresent: 1, application.AttendanceAbsent: 1},
		ScheduledDays: 8,
	}}
	router := newAttendanceRouter(stub, nil)

	rec := serve(t, router, http.MethodGet, "/teachers/t-1/attendance?from=2024-03-01&to=2024-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "t-1", stub.report.TeacherID)
	assert.Equal(t, "2024-03-01", stub.report.From.Format(time.DateOnly))
	assert.Equal(t, "2024-03-31", stub.report.To.Format(time.DateOnly))

	var resp teacherReportResponse
	decodeInto(t, rec, &resp)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "a-1", resp.Records[0].ID)
	assert.Equal(t, map[string]int{"present": 1, "late": 0, "absent": 1, "leave": 0}, resp.StatusCounts)
	assert.Equal(t, 8, resp.ScheduledDays)
	assert.NotNil(t, resp.Occurrences)

	rec = serve(t, router, http.MethodGet, "/me/attendance", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, router, http.MethodGet, "/me/attendance?from=2024-03-01&to=2024-03-02", "", "X-Teacher-ID", "t-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-02", stub.myTo.Format(time.DateOnly))

	stub.err = &application.ValidationError{FieldErrors: map[string]string{"to": "to must not be before from"}}
	rec = serve(t, router, http.MethodGet, "/teachers/t-1/attendance?from=2024-03-05&to=2024-03-01", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
