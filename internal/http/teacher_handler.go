package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/coaching-scheduler/internal/application"
)

type teacherService interface {
	CreateTeacher(ctx context.Context, params application.CreateTeacherParams) (application.Teacher, error)
	UpdateTeacher(ctx context.Context, params application.UpdateTeacherParams) (application.Teacher, error)
	GetTeacher(ctx context.Context, teacherID string) (application.Teacher, error)
	DeleteTeacher(ctx context.Context, principal application.Principal, teacherID string) error
	ListTeachers(ctx context.Context, principal application.Principal) ([]application.Teacher, error)
}

type TeacherHandler struct {
	service   teacherService
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

func NewTeacherHandler(service teacherService, logger *slog.Logger) *TeacherHandler {
	base := defaultLogger(logger)
	return &TeacherHandler{service: service, validator: newRequestValidator(), responder: newResponder(base), logger: base}
}

func (h *TeacherHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TeacherHandler", operation, attrs...)
}

func (h *TeacherHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req teacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.ActorID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode teacher request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	teacher, err := h.service.CreateTeacher(r.Context(), application.CreateTeacherParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, teacherResponse{Teacher: toTeacherDTO(teacher)})
}

func (h *TeacherHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teacherID := strings.TrimSpace(chi.URLParam(r, "id"))
	if teacherID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req teacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.ActorID, "teacher_id", teacherID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode teacher update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	teacher, err := h.service.UpdateTeacher(r.Context(), application.UpdateTeacherParams{
		Principal: principal,
		TeacherID: teacherID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, teacherResponse{Teacher: toTeacherDTO(teacher)})
}

func (h *TeacherHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teacher, err := h.service.GetTeacher(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, teacherResponse{Teacher: toTeacherDTO(teacher)})
}

func (h *TeacherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teacherID := strings.TrimSpace(chi.URLParam(r, "id"))
	if teacherID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteTeacher(r.Context(), principal, teacherID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TeacherHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	teachers, err := h.service.ListTeachers(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTeachersResponse{Teachers: toTeacherDTOs(teachers)})
}

type teacherRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

func (r teacherRequest) toInput() application.TeacherInput {
	return application.TeacherInput{
		FullName: strings.TrimSpace(r.FullName),
		Email:    r.Email,
		Phone:    r.Phone,
		IsActive: r.IsActive,
	}
}

type teacherResponse struct {
	Teacher teacherDTO `json:"teacher"`
}

type listTeachersResponse struct {
	Teachers []teacherDTO `json:"teachers"`
}

type teacherDTO struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toTeacherDTO(teacher application.Teacher) teacherDTO {
	return teacherDTO{
		ID:        teacher.ID,
		FullName:  teacher.FullName,
		Email:     teacher.Email,
		Phone:     teacher.Phone,
		IsActive:  teacher.IsActive,
		CreatedAt: teacher.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: teacher.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toTeacherDTOs(teachers []application.Teacher) []teacherDTO {
	out := make([]teacherDTO, 0, len(teachers))
	for _, teacher := range teachers {
		out = append(out, toTeacherDTO(teacher))
	}
	return out
}
