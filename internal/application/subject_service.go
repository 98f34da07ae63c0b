package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// SubjectRepository captures the persistence operations needed by the subject service.
type SubjectRepository interface {
	CreateSubject(ctx context.Context, subject Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	UpdateSubject(ctx context.Context, subject Subject) (Subject, error)
	DeleteSubject(ctx context.Context, id string) error
	ListSubjects(ctx context.Context) ([]Subject, error)
}

// SubjectService manages the subject catalogue.
type SubjectService struct {
	subjects    SubjectRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSubjectService wires dependencies for the subject service.
func NewSubjectService(subjects SubjectRepository, idGenerator func() string, now func() time.Time) *SubjectService {
	return NewSubjectServiceWithLogger(subjects, idGenerator, now, nil)
}

// NewSubjectServiceWithLogger wires dependencies with a specified logger.
func NewSubjectServiceWithLogger(subjects SubjectRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SubjectService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SubjectService{subjects: subjects, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// CreateSubject validates input and persists a new subject. Codes are stored
// upper case.
func (s *SubjectService) CreateSubject(ctx context.Context, params CreateSubjectParams) (subject Subject, err error) {
	if s == nil {
		err = fmt.Errorf("SubjectService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "SubjectService", "CreateSubject", "principal_id", params.Principal.ActorID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create subject", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("subject_id", subject.ID).InfoContext(ctx, "subject created")
	}()

	input := normalizeSubjectInput(params.Input)
	if vErr := validateSubjectInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	subject = Subject{
		ID:        s.idGenerator(),
		Code:      input.Code,
		Name:      input.Name,
		CreatedAt: s.now(),
	}
	subject.UpdatedAt = subject.CreatedAt

	if s.subjects == nil {
		return
	}

	subject, err = s.subjects.CreateSubject(ctx, subject)
	if err != nil {
		err = mapSubjectRepoError(err)
	}
	return
}

// UpdateSubject validates input and updates an existing subject.
func (s *SubjectService) UpdateSubject(ctx context.Context, params UpdateSubjectParams) (subject Subject, err error) {
	if s == nil {
		err = fmt.Errorf("SubjectService is nil")
		return
	}
	if s.subjects == nil {
		err = fmt.Errorf("subject repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "SubjectService", "UpdateSubject",
		"principal_id", params.Principal.ActorID,
		"subject_id", params.SubjectID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update subject", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "subject updated")
	}()

	var existing Subject
	existing, err = s.subjects.GetSubject(ctx, params.SubjectID)
	if err != nil {
		err = mapSubjectRepoError(err)
		return
	}

	input := normalizeSubjectInput(params.Input)
	if vErr := validateSubjectInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Code = input.Code
	updated.Name = input.Name
	updated.UpdatedAt = s.now()

	subject, err = s.subjects.UpdateSubject(ctx, updated)
	if err != nil {
		err = mapSubjectRepoError(err)
	}
	return
}

// GetSubject returns a single subject.
func (s *SubjectService) GetSubject(ctx context.Context, subjectID string) (Subject, error) {
	if s == nil {
		return Subject{}, fmt.Errorf("SubjectService is nil")
	}
	if s.subjects == nil {
		return Subject{}, ErrNotFound
	}
	subject, err := s.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return Subject{}, mapSubjectRepoError(err)
	}
	return subject, nil
}

// DeleteSubject removes a subject that no booking references.
func (s *SubjectService) DeleteSubject(ctx context.Context, principal Principal, subjectID string) error {
	if s == nil {
		return fmt.Errorf("SubjectService is nil")
	}
	if s.subjects == nil {
		return fmt.Errorf("subject repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "SubjectService", "DeleteSubject",
		"principal_id", principal.ActorID,
		"subject_id", subjectID,
	)

	if err := s.subjects.DeleteSubject(ctx, subjectID); err != nil {
		err = mapSubjectRepoError(err)
		logger.ErrorContext(ctx, "failed to delete subject", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "subject deleted")
	return nil
}

// ListSubjects returns subjects ordered by code.
func (s *SubjectService) ListSubjects(ctx context.Context, principal Principal) ([]Subject, error) {
	if s == nil {
		return nil, fmt.Errorf("SubjectService is nil")
	}
	if s.subjects == nil {
		return nil, nil
	}

	subjects, err := s.subjects.ListSubjects(ctx)
	if err != nil {
		return nil, mapSubjectRepoError(err)
	}

	out := make([]Subject, len(subjects))
	copy(out, subjects)
	sort.Slice(out, func(i, j int) bool {
		return lessFold(out[i].Code, out[j].Code, out[i].ID, out[j].ID)
	})
	return out, nil
}

func normalizeSubjectInput(input SubjectInput) SubjectInput {
	return SubjectInput{
		Code: strings.ToUpper(strings.TrimSpace(input.Code)),
		Name: strings.TrimSpace(input.Name),
	}
}

func validateSubjectInput(input SubjectInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Code == "" {
		vErr.add("code", "code is required")
	}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	return vErr
}

func mapSubjectRepoError(err error) error {
	return mapCatalogRepoError(err, "code", "code is required")
}
