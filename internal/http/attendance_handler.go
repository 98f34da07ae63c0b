package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/coaching-scheduler/internal/application"
)

type attendanceService interface {
	RecordAttendance(ctx context.Context, params application.RecordAttendanceParams) (application.AttendanceRecord, error)
	DailySummary(ctx context.Context, principal application.Principal, date time.Time) (application.DailyAttendanceSummary, error)
	TeacherReport(ctx context.Context, params application.TeacherReportParams) (application.TeacherReport, error)
	MyAttendance(ctx context.Context, principal application.Principal, from, to time.Time) (application.TeacherReport, error)
}

type AttendanceHandler struct {
	service   attendanceService
	location  *time.Location
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

// NewAttendanceHandler builds the attendance endpoints. Dates in paths and
// query strings are calendar dates in loc; nil means UTC.
func NewAttendanceHandler(service attendanceService, loc *time.Location, logger *slog.Logger) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, location: loc, validator: newRequestValidator(), responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teacherID := strings.TrimSpace(chi.URLParam(r, "id"))
	date, ok := h.parseDate(chi.URLParam(r, "date"))
	if teacherID == "" || !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Record", "principal_id", principal.ActorID, "teacher_id", teacherID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode attendance request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	record, err := h.service.RecordAttendance(r.Context(), application.RecordAttendanceParams{
		Principal: principal,
		TeacherID: teacherID,
		Date:      date,
		Status:    req.Status,
		Remarks:   req.Remarks,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{Attendance: toAttendanceDTO(record)})
}

func (h *AttendanceHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	date := time.Now().In(h.location)
	if raw != "" {
		parsed, ok := h.parseDate(raw)
		if !ok {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		date = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	summary, err := h.service.DailySummary(r.Context(), principal, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDailySummaryResponse(summary))
}

func (h *AttendanceHandler) TeacherReport(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, ok := h.parseWindow(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	report, err := h.service.TeacherReport(r.Context(), application.TeacherReportParams{
		Principal: principal,
		TeacherID: strings.TrimSpace(chi.URLParam(r, "id")),
		From:      from,
		To:        to,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTeacherReportResponse(report))
}

func (h *AttendanceHandler) MyAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if principal.TeacherID == "" {
		h.responder.writeError(r.Context(), w, http.StatusForbidden, errMissingTeacher)
		return
	}

	from, to, ok := h.parseWindow(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	report, err := h.service.MyAttendance(r.Context(), principal, from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTeacherReportResponse(report))
}

func (h *AttendanceHandler) parseDate(value string) (time.Time, bool) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), h.location)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseWindow reads the inclusive from/to query parameters. A missing from
// defaults to the first day of the current month and a missing to to today.
func (h *AttendanceHandler) parseWindow(r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().In(h.location)
	y, m, d := now.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, h.location)
	to := time.Date(y, m, d, 0, 0, 0, 0, h.location)

	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		parsed, ok := h.parseDate(raw)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		parsed, ok := h.parseDate(raw)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

type attendanceRequest struct {
	Status  string  `json:"status" validate:"required,attendance_status"`
	Remarks *string `json:"remarks" validate:"omitempty,max=500"`
}

type attendanceResponse struct {
	Attendance attendanceDTO `json:"attendance"`
}

type attendanceDTO struct {
	ID        string  `json:"id"`
	TeacherID string  `json:"teacher_id"`
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	Remarks   *string `json:"remarks,omitempty"`
	UpdatedAt string  `json:"updated_at"`
}

func toAttendanceDTO(record application.AttendanceRecord) attendanceDTO {
	return attendanceDTO{
		ID:        record.ID,
		TeacherID: record.TeacherID,
		Date:      record.Date.Format(time.DateOnly),
		Status:    string(record.Status),
		Remarks:   record.Remarks,
		UpdatedAt: record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type dailyEntryDTO struct {
	TeacherID        string  `json:"teacher_id"`
	FullName         string  `json:"full_name"`
	Status           string  `json:"status"`
	Remarks          *string `json:"remarks,omitempty"`
	ScheduledLessons int     `json:"scheduled_lessons"`
}

type dailySummaryResponse struct {
	Date    string          `json:"date"`
	Day     string          `json:"day"`
	Entries []dailyEntryDTO `json:"entries"`
}

func toDailySummaryResponse(summary application.DailyAttendanceSummary) dailySummaryResponse {
	resp := dailySummaryResponse{
		Date:    summary.Date.Format(time.DateOnly),
		Day:     summary.Day.String(),
		Entries: make([]dailyEntryDTO, 0, len(summary.Entries)),
	}
	for _, e := range summary.Entries {
		resp.Entries = append(resp.Entries, dailyEntryDTO{
			TeacherID:        e.Teacher.ID,
			FullName:         e.Teacher.FullName,
			Status:           string(e.Status),
			Remarks:          e.Remarks,
			ScheduledLessons: e.ScheduledLessons,
		})
	}
	return resp
}

type occurrenceDTO struct {
	BookingID   string `json:"booking_id"`
	SubjectID   string `json:"subject_id"`
	ClassroomID string `json:"classroom_id"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type teacherReportResponse struct {
	Teacher               teacherDTO      `json:"teacher"`
	From                  string          `json:"from"`
	To                    string          `json:"to"`
	Occurrences           []occurrenceDTO `json:"occurrences"`
	Records               []attendanceDTO `json:"records"`
	StatusCounts          map[string]int  `json:"status_counts"`
	ScheduledDays         int             `json:"scheduled_days"`
	UnmarkedScheduledDays int             `json:"unmarked_scheduled_days"`
}

func toTeacherReportResponse(report application.TeacherReport) teacherReportResponse {
	resp := teacherReportResponse{
		Teacher:               toTeacherDTO(report.Teacher),
		From:                  report.From.Format(time.DateOnly),
		To:                    report.To.Format(time.DateOnly),
		Occurrences:           make([]occurrenceDTO, 0, len(report.Occurrences)),
		Records:               make([]attendanceDTO, 0, len(report.Records)),
		StatusCounts:          make(map[string]int, len(application.AttendanceStatuses())),
		ScheduledDays:         report.ScheduledDays,
		UnmarkedScheduledDays: report.UnmarkedScheduledDays,
	}
	for _, status := range application.AttendanceStatuses() {
		resp.StatusCounts[string(status)] = report.StatusCounts[status]
	}
	for _, occ := range report.Occurrences {
		resp.Occurrences = append(resp.Occurrences, occurrenceDTO{
			BookingID:   occ.BookingID,
			SubjectID:   occ.SubjectID,
			ClassroomID: occ.ClassroomID,
			Date:        occ.Date.Format(time.DateOnly),
			Start:       occ.Start.Format(time.RFC3339),
			End:         occ.End.Format(time.RFC3339),
		})
	}
	records := append([]application.AttendanceRecord(nil), report.Records...)
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	for _, record := range records {
		resp.Records = append(resp.Records, toAttendanceDTO(record))
	}
	return resp
}
