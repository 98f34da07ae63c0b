package application

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestConflictError(t *testing.T) {
	t.Parallel()

	err := &ConflictError{Conflicts: []scheduler.Conflict{
		{WithBookingID: "b-1", Type: scheduler.ConflictTypeTeacher},
		{WithBookingID: "b-1", Type: scheduler.ConflictTypeClassroom},
		{WithBookingID: "b-2", Type: scheduler.ConflictTypeClassroom},
	}}

	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ConflictError to match ErrConflict")
	}
	var wrapped error = fmt.Errorf("create: %w", err)
	var target *ConflictError
	if !errors.As(wrapped, &target) {
		t.Fatalf("expected errors.As to find ConflictError")
	}
	if got := strings.Join(target.BookingIDs(), ","); got != "b-1,b-2" {
		t.Fatalf("unexpected booking ids %q", got)
	}
	if types := target.Types(); len(types) != 2 || types[0] != scheduler.ConflictTypeTeacher {
		t.Fatalf("unexpected types %v", types)
	}
	if got := err.Error(); got != "application: schedule conflict with b-1, b-2" {
		t.Fatalf("unexpected message %q", got)
	}
	if errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("ConflictError must not match ErrInvalidInterval")
	}
}
