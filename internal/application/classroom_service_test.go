package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/coaching-scheduler/internal/persistence"
)

type classroomRepoStub struct {
	createErr error
	created   Classroom

	getClassroom Classroom
	getErr       error

	updateErr error
	updated   Classroom

	deleteErr error
	deletedID string

	list    []Classroom
	listErr error
}

func (r *classroomRepoStub) CreateClassroom(ctx context.Context, classroom Classroom) (Classroom, error) {
	if r.createErr != nil {
		return Classroom{}, r.createErr
	}
	r.created = classroom
	return classroom, nil
}

func (r *classroomRepoStub) GetClassroom(ctx context.Context, id string) (Classroom, error) {
	if r.getErr != nil {
		return Classroom{}, r.getErr
	}
	if r.getClassroom.ID == "" {
		return Classroom{}, ErrNotFound
	}
	return r.getClassroom, nil
}

func (r *classroomRepoStub) UpdateClassroom(ctx context.Context, classroom Classroom) (Classroom, error) {
	if r.updateErr != nil {
		return Classroom{}, r.updateErr
	}
	r.updated = classroom
	return classroom, nil
}

func (r *classroomRepoStub) DeleteClassroom(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	return nil
}

func (r *classroomRepoStub) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Classroom, len(r.list))
	copy(out, r.list)
	return out, nil
}

func TestClassroomService_CreateClassroom(t *testing.T) {
	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewClassroomService(nil, nil, nil)

		_, err := svc.CreateClassroom(context.Background(), CreateClassroomParams{
			Input: ClassroomInput{Name: "   ", Location: "", Capacity: 0},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "location", "capacity"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("persists trimmed attributes", func(t *testing.T) {
		repo := &classroomRepoStub{}
		now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
		svc := NewClassroomService(repo, func() string { return "room-1" }, func() time.Time { return now })

		created, err := svc.CreateClassroom(context.Background(), CreateClassroomParams{
			Principal: Principal{ActorID: "office"},
			Input:     ClassroomInput{Name: "  Lab A  ", Location: "  2F  ", Capacity: 25},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if repo.created.ID != "room-1" {
			t.Fatalf("expected repository to receive generated ID, got %q", repo.created.ID)
		}
		if repo.created.Name != "Lab A" || repo.created.Location != "2F" {
			t.Fatalf("expected trimmed fields, got %+v", repo.created)
		}
		if !repo.created.CreatedAt.Equal(now) || !repo.created.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps to use injected clock, got created=%v updated=%v", repo.created.CreatedAt, repo.created.UpdatedAt)
		}
		if created.ID != "room-1" {
			t.Fatalf("expected returned classroom to include generated ID, got %q", created.ID)
		}
	})

	t.Run("maps duplicate names to ErrAlreadyExists", func(t *testing.T) {
		repo := &classroomRepoStub{createErr: persistence.ErrDuplicate}
		svc := NewClassroomService(repo, nil, nil)

		_, err := svc.CreateClassroom(context.Background(), CreateClassroomParams{
			Input: ClassroomInput{Name: "Lab", Location: "HQ", Capacity: 10},
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestClassroomService_UpdateClassroom(t *testing.T) {
	t.Run("propagates ErrNotFound when the classroom is missing", func(t *testing.T) {
		repo := &classroomRepoStub{getErr: persistence.ErrNotFound}
		svc := NewClassroomService(repo, nil, nil)

		_, err := svc.UpdateClassroom(context.Background(), UpdateClassroomParams{
			ClassroomID: "missing",
			Input:       ClassroomInput{Name: "Room", Location: "HQ", Capacity: 10},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("persists updated attributes", func(t *testing.T) {
		created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		existing := Classroom{ID: "room-1", Name: "Lab", Location: "1F", Capacity: 20, CreatedAt: created, UpdatedAt: created}
		repo := &classroomRepoStub{getClassroom: existing}
		now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
		svc := NewClassroomService(repo, nil, func() time.Time { return now })

		updated, err := svc.UpdateClassroom(context.Background(), UpdateClassroomParams{
			ClassroomID: "room-1",
			Input:       ClassroomInput{Name: "  Maple ", Location: "  3F", Capacity: 30},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if repo.updated.Name != "Maple" || repo.updated.Location != "3F" || repo.updated.Capacity != 30 {
			t.Fatalf("unexpected update %+v", repo.updated)
		}
		if !repo.updated.UpdatedAt.Equal(now) || !repo.updated.CreatedAt.Equal(created) {
			t.Fatalf("unexpected timestamps %+v", repo.updated)
		}
		if updated.ID != existing.ID {
			t.Fatalf("expected returned classroom to include ID, got %q", updated.ID)
		}
	})
}

func TestClassroomService_DeleteClassroom(t *testing.T) {
	t.Run("refuses classrooms referenced by bookings", func(t *testing.T) {
		repo := &classroomRepoStub{deleteErr: persistence.ErrForeignKeyViolation}
		svc := NewClassroomService(repo, nil, nil)

		err := svc.DeleteClassroom(context.Background(), Principal{}, "room-1")
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["id"] != inUseMessage {
			t.Fatalf("expected in-use validation error, got %v", err)
		}
	})

	t.Run("deletes unreferenced classrooms", func(t *testing.T) {
		repo := &classroomRepoStub{}
		svc := NewClassroomService(repo, nil, nil)

		if err := svc.DeleteClassroom(context.Background(), Principal{}, "room-1"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if repo.deletedID != "room-1" {
			t.Fatalf("expected repository to receive classroom ID, got %q", repo.deletedID)
		}
	})
}

func TestClassroomService_ListClassrooms(t *testing.T) {
	repo := &classroomRepoStub{list: []Classroom{
		{ID: "room-2", Name: "Beta", Location: "2F", Capacity: 10},
		{ID: "room-3", Name: "alpha", Location: "3F", Capacity: 8},
		{ID: "room-1", Name: "Alpha", Location: "1F", Capacity: 6},
	}}
	svc := NewClassroomService(repo, nil, nil)

	got, err := svc.ListClassrooms(context.Background(), Principal{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 3 || got[0].ID != "room-1" || got[1].ID != "room-3" || got[2].ID != "room-2" {
		t.Fatalf("expected case-insensitive ordering, got %+v", got)
	}
}

func TestMapClassroomRepoError(t *testing.T) {
	unexpected := errors.New("boom")

	tests := map[string]struct {
		err      error
		expected error
	}{
		"nil":                   {err: nil, expected: nil},
		"application not found": {err: ErrNotFound, expected: ErrNotFound},
		"persistence not found": {err: persistence.ErrNotFound, expected: ErrNotFound},
		"duplicate":             {err: persistence.ErrDuplicate, expected: ErrAlreadyExists},
		"constraint":            {err: persistence.ErrConstraintViolation, expected: &ValidationError{}},
		"unexpected":            {err: unexpected, expected: unexpected},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			result := mapClassroomRepoError(tc.err)

			switch expected := tc.expected.(type) {
			case nil:
				if result != nil {
					t.Fatalf("expected nil, got %v", result)
				}
			case *ValidationError:
				vErr, ok := result.(*ValidationError)
				if !ok {
					t.Fatalf("expected ValidationError, got %T", result)
				}
				if msg, ok := vErr.FieldErrors["capacity"]; !ok || msg == "" {
					t.Fatalf("expected capacity validation message, got %v", vErr.FieldErrors)
				}
			default:
				if !errors.Is(result, expected) {
					t.Fatalf("expected %v, got %v", expected, result)
				}
			}
		})
	}
}
