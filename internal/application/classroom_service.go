package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// ClassroomRepository captures the persistence operations needed by the service.
type ClassroomRepository interface {
	CreateClassroom(ctx context.Context, classroom Classroom) (Classroom, error)
	GetClassroom(ctx context.Context, id string) (Classroom, error)
	UpdateClassroom(ctx context.Context, classroom Classroom) (Classroom, error)
	DeleteClassroom(ctx context.Context, id string) error
	ListClassrooms(ctx context.Context) ([]Classroom, error)
}

// ClassroomService orchestrates validation and persistence for classrooms.
type ClassroomService struct {
	classrooms  ClassroomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewClassroomService constructs a classroom service with the provided dependencies.
func NewClassroomService(classrooms ClassroomRepository, idGenerator func() string, now func() time.Time) *ClassroomService {
	return NewClassroomServiceWithLogger(classrooms, idGenerator, now, nil)
}

// NewClassroomServiceWithLogger constructs a classroom service with a specified logger.
func NewClassroomServiceWithLogger(classrooms ClassroomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ClassroomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ClassroomService{classrooms: classrooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ClassroomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClassroomService", operation, attrs...)
}

// CreateClassroom validates input and persists a new classroom.
func (s *ClassroomService) CreateClassroom(ctx context.Context, params CreateClassroomParams) (classroom Classroom, err error) {
	if s == nil {
		err = fmt.Errorf("ClassroomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateClassroom",
		"principal_id", params.Principal.ActorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create classroom", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("classroom_id", classroom.ID).InfoContext(ctx, "classroom created")
	}()

	vErr := validateClassroomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	classroom = Classroom{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Input.Name),
		Location:  strings.TrimSpace(params.Input.Location),
		Capacity:  params.Input.Capacity,
		CreatedAt: s.now(),
	}
	classroom.UpdatedAt = classroom.CreatedAt

	if s.classrooms == nil {
		return
	}

	var persisted Classroom
	persisted, err = s.classrooms.CreateClassroom(ctx, classroom)
	if err != nil {
		err = mapClassroomRepoError(err)
		return
	}

	classroom = persisted
	return
}

// UpdateClassroom validates input and updates an existing classroom.
func (s *ClassroomService) UpdateClassroom(ctx context.Context, params UpdateClassroomParams) (classroom Classroom, err error) {
	if s == nil {
		err = fmt.Errorf("ClassroomService is nil")
		return
	}
	if s.classrooms == nil {
		err = fmt.Errorf("classroom repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateClassroom",
		"principal_id", params.Principal.ActorID,
		"classroom_id", params.ClassroomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update classroom", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "classroom updated")
	}()

	var existing Classroom
	existing, err = s.classrooms.GetClassroom(ctx, params.ClassroomID)
	if err != nil {
		err = mapClassroomRepoError(err)
		return
	}

	vErr := validateClassroomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Location = strings.TrimSpace(params.Input.Location)
	updated.Capacity = params.Input.Capacity
	updated.UpdatedAt = s.now()

	classroom, err = s.classrooms.UpdateClassroom(ctx, updated)
	if err != nil {
		err = mapClassroomRepoError(err)
		return
	}

	return
}

// GetClassroom returns a single classroom.
func (s *ClassroomService) GetClassroom(ctx context.Context, classroomID string) (Classroom, error) {
	if s == nil {
		return Classroom{}, fmt.Errorf("ClassroomService is nil")
	}
	if s.classrooms == nil {
		return Classroom{}, ErrNotFound
	}
	classroom, err := s.classrooms.GetClassroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, mapClassroomRepoError(err)
	}
	return classroom, nil
}

// DeleteClassroom removes a classroom that no booking references.
func (s *ClassroomService) DeleteClassroom(ctx context.Context, principal Principal, classroomID string) error {
	if s == nil {
		return fmt.Errorf("ClassroomService is nil")
	}
	if s.classrooms == nil {
		return fmt.Errorf("classroom repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteClassroom",
		"principal_id", principal.ActorID,
		"classroom_id", classroomID,
	)

	if err := s.classrooms.DeleteClassroom(ctx, classroomID); err != nil {
		err = mapClassroomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete classroom", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "classroom deleted")
	return nil
}

// ListClassrooms returns every classroom ordered by name.
func (s *ClassroomService) ListClassrooms(ctx context.Context, principal Principal) (classrooms []Classroom, err error) {
	if s == nil {
		err = fmt.Errorf("ClassroomService is nil")
		return
	}
	if s.classrooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListClassrooms",
		"principal_id", principal.ActorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list classrooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(classrooms)).InfoContext(ctx, "classrooms listed")
	}()

	var raw []Classroom
	raw, err = s.classrooms.ListClassrooms(ctx)
	if err != nil {
		err = mapClassroomRepoError(err)
		return
	}

	classrooms = make([]Classroom, len(raw))
	copy(classrooms, raw)

	sort.Slice(classrooms, func(i, j int) bool {
		return lessFold(classrooms[i].Name, classrooms[j].Name, classrooms[i].ID, classrooms[j].ID)
	})

	return
}

func validateClassroomInput(input ClassroomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}

	return vErr
}

func mapClassroomRepoError(err error) error {
	return mapCatalogRepoError(err, "capacity", "capacity must be positive")
}
