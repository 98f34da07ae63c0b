package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	SetBookingActive(ctx context.Context, params application.SetBookingActiveParams) (application.Booking, error)
	DeleteBooking(ctx context.Context, principal application.Principal, bookingID string) error
	GetBooking(ctx context.Context, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	CheckConflicts(ctx context.Context, params application.CheckConflictsParams) ([]scheduler.Conflict, error)
	WeekGrid(ctx context.Context, params application.GridParams) (application.WeekTimetable, error)
	MyTimetable(ctx context.Context, principal application.Principal) (application.WeekTimetable, error)
}

type BookingHandler struct {
	service   bookingService
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, validator: newRequestValidator(), responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// decode reads and validates a booking payload, writing the error response
// itself when it returns false.
func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, operation string, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return false
	}
	return true
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if !h.decode(w, r, "Create", &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.ActorID)

	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if !h.decode(w, r, "Update", &req) {
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.ActorID, "booking_id", bookingID)

	booking, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.ActorID, "booking_id", bookingID)
	if err := h.service.DeleteBooking(r.Context(), principal, bookingID); err != nil {
		logger.WarnContext(r.Context(), "booking delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Activate and Deactivate toggle the active flag. Activation runs the same
// conflict check as a create.
func (h *BookingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *BookingHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *BookingHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "SetActive", "principal_id", principal.ActorID, "booking_id", bookingID, "active", active)

	booking, err := h.service.SetBookingActive(r.Context(), application.SetBookingActiveParams{
		Principal: principal,
		BookingID: bookingID,
		Active:    active,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking toggled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := buildListBookingsParams(r, principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	bookings, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List", "principal_id", principal.ActorID).
		With("result_count", len(bookings)).DebugContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

// Check reports the conflicts a candidate booking would cause without
// writing anything.
func (h *BookingHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req checkBookingRequest
	if !h.decode(w, r, "Check", &req) {
		return
	}

	conflicts, err := h.service.CheckConflicts(r.Context(), application.CheckConflictsParams{
		Principal: principal,
		BookingID: strings.TrimSpace(req.BookingID),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, checkBookingResponse{
		Conflicting: len(conflicts) > 0,
		Conflicts:   toConflictDTOs(conflicts),
	})
}

func (h *BookingHandler) WeekGrid(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	timetable, err := h.service.WeekGrid(r.Context(), application.GridParams{
		Principal:   principal,
		TeacherID:   strings.TrimSpace(query.Get("teacher_id")),
		ClassroomID: strings.TrimSpace(query.Get("classroom_id")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimetableResponse(timetable))
}

func (h *BookingHandler) MyTimetable(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if principal.TeacherID == "" {
		h.responder.writeError(r.Context(), w, http.StatusForbidden, errMissingTeacher)
		return
	}

	timetable, err := h.service.MyTimetable(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimetableResponse(timetable))
}

func buildListBookingsParams(r *http.Request, principal application.Principal) (application.ListBookingsParams, error) {
	query := r.URL.Query()
	params := application.ListBookingsParams{
		Principal:   principal,
		TeacherID:   strings.TrimSpace(query.Get("teacher_id")),
		ClassroomID: strings.TrimSpace(query.Get("classroom_id")),
		SubjectID:   strings.TrimSpace(query.Get("subject_id")),
		Day:         strings.TrimSpace(query.Get("day")),
	}
	if raw := strings.TrimSpace(query.Get("include_inactive")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return params, &application.ValidationError{FieldErrors: map[string]string{
				"include_inactive": "include_inactive must be true or false",
			}}
		}
		params.IncludeInactive = include
	}
	return params, nil
}

type bookingRequest struct {
	SubjectID   string `json:"subject_id" validate:"required"`
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
	Day         string `json:"day" validate:"required,day_of_week"`
	StartTime   string `json:"start_time" validate:"required,clock"`
	EndTime     string `json:"end_time" validate:"required,clock"`
	IsActive    *bool  `json:"is_active"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		SubjectID:   strings.TrimSpace(r.SubjectID),
		TeacherID:   strings.TrimSpace(r.TeacherID),
		ClassroomID: strings.TrimSpace(r.ClassroomID),
		Day:         strings.TrimSpace(r.Day),
		Start:       strings.TrimSpace(r.StartTime),
		End:         strings.TrimSpace(r.EndTime),
		IsActive:    r.IsActive,
	}
}

type checkBookingRequest struct {
	BookingID   string `json:"booking_id"`
	SubjectID   string `json:"subject_id" validate:"required"`
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
	Day         string `json:"day" validate:"required,day_of_week"`
	StartTime   string `json:"start_time" validate:"required,clock"`
	EndTime     string `json:"end_time" validate:"required,clock"`
}

func (r checkBookingRequest) toInput() application.BookingInput {
	return bookingRequest{
		SubjectID:   r.SubjectID,
		TeacherID:   r.TeacherID,
		ClassroomID: r.ClassroomID,
		Day:         r.Day,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}.toInput()
}

type checkBookingResponse struct {
	Conflicting bool          `json:"conflicting"`
	Conflicts   []conflictDTO `json:"conflicts"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	TeacherID   string `json:"teacher_id"`
	ClassroomID string `json:"classroom_id"`
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:          booking.ID,
		SubjectID:   booking.SubjectID,
		TeacherID:   booking.TeacherID,
		ClassroomID: booking.ClassroomID,
		Day:         booking.Day.String(),
		StartTime:   booking.Start.String(),
		EndTime:     booking.End.String(),
		IsActive:    booking.IsActive,
		CreatedAt:   booking.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   booking.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}

type gridEntryDTO struct {
	BookingID   string `json:"booking_id"`
	SubjectID   string `json:"subject_id"`
	TeacherID   string `json:"teacher_id"`
	ClassroomID string `json:"classroom_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type timetableResponse struct {
	Days  []string                             `json:"days"`
	Slots []string                             `json:"slots"`
	Grid  map[string]map[string][]gridEntryDTO `json:"grid"`
	Total int                                  `json:"total"`
}

func toTimetableResponse(timetable application.WeekTimetable) timetableResponse {
	resp := timetableResponse{
		Days:  make([]string, 0, len(timetable.Days)),
		Slots: timetable.Slots,
		Grid:  make(map[string]map[string][]gridEntryDTO, len(timetable.Days)),
		Total: timetable.Total,
	}
	for _, day := range timetable.Days {
		resp.Days = append(resp.Days, day.String())
		cells := make(map[string][]gridEntryDTO, len(timetable.Slots))
		for _, slot := range timetable.Slots {
			entries := make([]gridEntryDTO, 0)
			for _, b := range timetable.Grid.Cell(day, slot) {
				entries = append(entries, gridEntryDTO{
					BookingID:   b.ID,
					SubjectID:   b.SubjectID,
					TeacherID:   b.TeacherID,
					ClassroomID: b.ClassroomID,
					StartTime:   b.Start.String(),
					EndTime:     b.End.String(),
				})
			}
			cells[slot] = entries
		}
		resp.Grid[day.String()] = cells
	}
	return resp
}
