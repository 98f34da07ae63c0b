package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the caller lacks the identity an operation needs.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("application: schedule conflict")
	// ErrInvalidInterval is returned when a booking does not end after it starts.
	ErrInvalidInterval = errors.New("application: end time must be after start time")
	// ErrPersistenceFailure wraps storage errors that callers cannot act on.
	ErrPersistenceFailure = errors.New("application: persistence failure")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError reports the existing bookings a write collided with. Nothing
// was written when it is returned.
type ConflictError struct {
	Conflicts []scheduler.Conflict
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	ids := c.BookingIDs()
	if len(ids) == 0 {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s with %s", ErrConflict.Error(), strings.Join(ids, ", "))
}

// Is lets errors.Is(err, ErrConflict) match.
func (c *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// BookingIDs returns the distinct conflicting booking IDs.
func (c *ConflictError) BookingIDs() []string {
	if c == nil {
		return nil
	}
	return scheduler.ConflictingBookingIDs(c.Conflicts)
}

// Types returns the conflict types in first-seen order.
func (c *ConflictError) Types() []scheduler.ConflictType {
	if c == nil {
		return nil
	}
	seen := make(map[scheduler.ConflictType]struct{}, 2)
	var types []scheduler.ConflictType
	for _, conflict := range c.Conflicts {
		if _, ok := seen[conflict.Type]; ok {
			continue
		}
		seen[conflict.Type] = struct{}{}
		types = append(types, conflict.Type)
	}
	return types
}
