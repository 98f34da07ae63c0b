package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// TeacherRepository captures the persistence operations needed by the teacher service.
type TeacherRepository interface {
	CreateTeacher(ctx context.Context, teacher Teacher) (Teacher, error)
	GetTeacher(ctx context.Context, id string) (Teacher, error)
	UpdateTeacher(ctx context.Context, teacher Teacher) (Teacher, error)
	DeleteTeacher(ctx context.Context, id string) error
	ListTeachers(ctx context.Context) ([]Teacher, error)
}

// TeacherService orchestrates validation and persistence for teachers.
type TeacherService struct {
	teachers    TeacherRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTeacherService wires dependencies for the teacher service.
func NewTeacherService(teachers TeacherRepository, idGenerator func() string, now func() time.Time) *TeacherService {
	return NewTeacherServiceWithLogger(teachers, idGenerator, now, nil)
}

// NewTeacherServiceWithLogger wires dependencies with a specified logger.
func NewTeacherServiceWithLogger(teachers TeacherRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TeacherService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TeacherService{teachers: teachers, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// CreateTeacher validates input and persists a new teacher. Teachers are
// active unless the input says otherwise.
func (s *TeacherService) CreateTeacher(ctx context.Context, params CreateTeacherParams) (Teacher, error) {
	if s == nil {
		return Teacher{}, fmt.Errorf("TeacherService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "TeacherService", "CreateTeacher", "principal_id", params.Principal.ActorID)

	normalized := normalizeTeacherInput(params.Input)
	vErr := validateTeacherInput(normalized)
	if vErr.HasErrors() {
		return Teacher{}, vErr
	}

	teacher := Teacher{
		ID:        s.idGenerator(),
		FullName:  normalized.FullName,
		Email:     normalized.Email,
		Phone:     normalized.Phone,
		IsActive:  boolOrDefault(normalized.IsActive, true),
		CreatedAt: s.now(),
	}
	teacher.UpdatedAt = teacher.CreatedAt

	if s.teachers == nil {
		return teacher, nil
	}

	persisted, err := s.teachers.CreateTeacher(ctx, teacher)
	if err != nil {
		err = mapTeacherRepoError(err)
		logger.ErrorContext(ctx, "failed to create teacher", "error", err, "error_kind", ErrorKind(err))
		return Teacher{}, err
	}

	logger.InfoContext(ctx, "teacher created", "teacher_id", persisted.ID)
	return persisted, nil
}

// UpdateTeacher validates input and updates an existing teacher.
func (s *TeacherService) UpdateTeacher(ctx context.Context, params UpdateTeacherParams) (Teacher, error) {
	if s == nil {
		return Teacher{}, fmt.Errorf("TeacherService is nil")
	}
	if s.teachers == nil {
		return Teacher{}, fmt.Errorf("teacher repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "TeacherService", "UpdateTeacher",
		"principal_id", params.Principal.ActorID,
		"teacher_id", params.TeacherID,
	)

	existing, err := s.teachers.GetTeacher(ctx, params.TeacherID)
	if err != nil {
		return Teacher{}, mapTeacherRepoError(err)
	}

	normalized := normalizeTeacherInput(params.Input)
	vErr := validateTeacherInput(normalized)
	if vErr.HasErrors() {
		return Teacher{}, vErr
	}

	updated := existing
	updated.FullName = normalized.FullName
	updated.Email = normalized.Email
	updated.Phone = normalized.Phone
	updated.IsActive = boolOrDefault(normalized.IsActive, existing.IsActive)
	updated.UpdatedAt = s.now()

	persisted, err := s.teachers.UpdateTeacher(ctx, updated)
	if err != nil {
		err = mapTeacherRepoError(err)
		logger.ErrorContext(ctx, "failed to update teacher", "error", err, "error_kind", ErrorKind(err))
		return Teacher{}, err
	}

	logger.InfoContext(ctx, "teacher updated")
	return persisted, nil
}

// GetTeacher returns a single teacher.
func (s *TeacherService) GetTeacher(ctx context.Context, teacherID string) (Teacher, error) {
	if s == nil {
		return Teacher{}, fmt.Errorf("TeacherService is nil")
	}
	if s.teachers == nil {
		return Teacher{}, ErrNotFound
	}
	teacher, err := s.teachers.GetTeacher(ctx, teacherID)
	if err != nil {
		return Teacher{}, mapTeacherRepoError(err)
	}
	return teacher, nil
}

// DeleteTeacher removes a teacher that no booking references. Attendance
// records of the teacher are removed with it.
func (s *TeacherService) DeleteTeacher(ctx context.Context, principal Principal, teacherID string) error {
	if s == nil {
		return fmt.Errorf("TeacherService is nil")
	}
	if s.teachers == nil {
		return fmt.Errorf("teacher repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "TeacherService", "DeleteTeacher",
		"principal_id", principal.ActorID,
		"teacher_id", teacherID,
	)

	if err := s.teachers.DeleteTeacher(ctx, teacherID); err != nil {
		err = mapTeacherRepoError(err)
		logger.ErrorContext(ctx, "failed to delete teacher", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "teacher deleted")
	return nil
}

// ListTeachers returns every teacher ordered by full name.
func (s *TeacherService) ListTeachers(ctx context.Context, principal Principal) ([]Teacher, error) {
	if s == nil {
		return nil, fmt.Errorf("TeacherService is nil")
	}
	if s.teachers == nil {
		return nil, nil
	}

	teachers, err := s.teachers.ListTeachers(ctx)
	if err != nil {
		return nil, mapTeacherRepoError(err)
	}

	out := make([]Teacher, len(teachers))
	copy(out, teachers)

	sort.Slice(out, func(i, j int) bool {
		return lessFold(out[i].FullName, out[j].FullName, out[i].ID, out[j].ID)
	})

	return out, nil
}

func normalizeTeacherInput(input TeacherInput) TeacherInput {
	email := normalizeOptionalString(input.Email)
	if email != nil {
		lowered := strings.ToLower(*email)
		email = &lowered
	}

	return TeacherInput{
		FullName: strings.TrimSpace(input.FullName),
		Email:    email,
		Phone:    normalizeOptionalString(input.Phone),
		IsActive: input.IsActive,
	}
}

func validateTeacherInput(input TeacherInput) *ValidationError {
	vErr := &ValidationError{}

	if input.FullName == "" {
		vErr.add("full_name", "full name is required")
	}
	if input.Email != nil {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			vErr.add("email", "email is invalid")
		}
	}

	return vErr
}

func mapTeacherRepoError(err error) error {
	return mapCatalogRepoError(err, "full_name", "full name is required")
}
