package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coaching-scheduler/internal/application"
)

type classroomServiceStub struct {
	created application.CreateClassroomParams
	updated application.UpdateClassroomParams
	deleted string
	room    application.Classroom
	err     error
}

func (s *classroomServiceStub) CreateClassroom(ctx context.Context, params application.CreateClassroomParams) (application.Classroom, error) {
	s.created = params
	return s.room, s.err
}

func (s *classroomServiceStub) UpdateClassroom(ctx context.Context, params application.UpdateClassroomParams) (application.Classroom, error) {
	s.updated = params
	return s.room, s.err
}

func (s *classroomServiceStub) GetClassroom(ctx context.Context, classroomID string) (application.Classroom, error) {
	return s.room, s.err
}

func (s *classroomServiceStub) DeleteClassroom(ctx context.Context, principal application.Principal, classroomID string) error {
	s.deleted = classroomID
	return s.err
}

func (s *classroomServiceStub) ListClassrooms(ctx context.Context, principal application.Principal) ([]application.Classroom, error) {
	return []application.Classroom{s.room}, s.err
}

type teacherServiceStub struct {
	created application.CreateTeacherParams
	teacher application.Teacher
	err     error
}

func (s *teacherServiceStub) CreateTeacher(ctx context.Context, params application.CreateTeacherParams) (application.Teacher, error) {
	s.created = params
	return s.teacher, s.err
}

func (s *teacherServiceStub) UpdateTeacher(ctx context.Context, params application.UpdateTeacherParams) (application.Teacher, error) {
	return s.teacher, s.err
}

func (s *teacherServiceStub) GetTeacher(ctx context.Context, teacherID string) (application.Teacher, error) {
	return s.teacher, s.err
}

func (s *teacherServiceStub) DeleteTeacher(ctx context.Context, principal application.Principal, teacherID string) error {
	return s.err
}

func (s *teacherServiceStub) ListTeachers(ctx context.Context, principal application.Principal) ([]application.Teacher, error) {
	return []application.Teacher{s.teacher}, s.err
}

type subjectServiceStub struct {
	created application.CreateSubjectParams
	subject application.Subject
	err     error
}

func (s *subjectServiceStub) CreateSubject(ctx context.Context, params application.CreateSubjectParams) (application.Subject, error) {
	s.created = params
	return s.subject, s.err
}

func (s *subjectServiceStub) UpdateSubject(ctx context.Context, params application.UpdateSubjectParams) (application.Subject, error) {
	return s.subject, s.err
}

func (s *subjectServiceStub) GetSubject(ctx context.Context, subjectID string) (application.Subject, error) {
	return s.subject, s.err
}

func (s *subjectServiceStub) DeleteSubject(ctx context.Context, principal application.Principal, subjectID string) error {
	return s.err
}

func (s *subjectServiceStub) ListSubjects(ctx context.Context, principal application.Principal) ([]application.Subject, error) {
	return []application.Subject{s.subject}, s.err
}

func TestClassroomHandler(t *testing.T) {
	stub := &classroomServiceStub{room: application.Classroom{ID: "c-1", Name: "Room A", Location: "First floor", Capacity: 20, CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}}
	router := NewRouter(RouterConfig{Classrooms: NewClassroomHandler(stub, discardLogger()), Logger: discardLogger()})

	rec := serve(t, router, http.MethodPost, "/classrooms", `{"name":" Room A ","location":"First floor","capacity":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, application.ClassroomInput{Name: "Room A", Location: "First floor", Capacity: 20}, stub.created.Input)
	room := decodeBody(t, rec)["classroom"].(map[string]any)
	assert.Equal(t, "c-1", room["id"])
	assert.Equal(t, "2024-03-01T08:00:00Z", room["created_at"])

	rec = serve(t, router, http.MethodPost, "/classrooms", `{"name":"Room B","capacity":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := decodeBody(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "location")
	assert.Contains(t, errs, "capacity")

	rec = serve(t, router, http.MethodPut, "/classrooms/c-1", `{"name":"Room A","location":"Annex","capacity":12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c-1", stub.updated.ClassroomID)

	rec = serve(t, router, http.MethodGet, "/classrooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["classrooms"], 1)

	stub.err = &application.ValidationError{FieldErrors: map[string]string{"classroom_id": "classroom is referenced by bookings"}}
	rec = serve(t, router, http.MethodDelete, "/classrooms/c-1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "c-1", stub.deleted)
	assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, rec)["error_code"])

	stub.err = application.ErrAlreadyExists
	rec = serve(t, router, http.MethodPost, "/classrooms", `{"name":"Room A","location":"First floor","capacity":20}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", decodeBody(t, rec)["error_code"])
}

func TestTeacherHandler(t *testing.T) {
	email := "anu@example.com"
	stub := &teacherServiceStub{teacher: application.Teacher{ID: "t-1", FullName: "Anu", Email: &email, IsActive: true}}
	router := NewRouter(RouterConfig{Teachers: NewTeacherHandler(stub, discardLogger()), Logger: discardLogger()})

	rec := serve(t, router, http.MethodPost, "/teachers", `{"full_name":"Anu","email":"anu@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, stub.created.Input.Email)
	assert.Equal(t, email, *stub.created.Input.Email)
	teacher := decodeBody(t, rec)["teacher"].(map[string]any)
	assert.Equal(t, email, teacher["email"])
	assert.NotContains(t, teacher, "phone")

	rec = serve(t, router, http.MethodPost, "/teachers", `{"full_name":"Anu","email":"not-an-email"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["errors"], "email")

	rec = serve(t, router, http.MethodGet, "/teachers/t-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Attendance routes are not mounted without an attendance handler.
	rec = serve(t, router, http.MethodGet, "/teachers/t-1/attendance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubjectHandler(t *testing.T) {
	stub := &subjectServiceStub{subject: application.Subject{ID: "s-1", Code: "MATH-1", Name: "Algebra"}}
	router := NewRouter(RouterConfig{Subjects: NewSubjectHandler(stub, discardLogger()), Logger: discardLogger()})

	rec := serve(t, router, http.MethodPost, "/subjects", `{"code":"MATH-1","name":"Algebra"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "MATH-1", stub.created.Input.Code)

	rec = serve(t, router, http.MethodPost, "/subjects", `{"name":"Algebra"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "code is required", decodeBody(t, rec)["errors"].(map[string]any)["code"])

	stub.err = application.ErrNotFound
	rec = serve(t, router, http.MethodDelete, "/subjects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
