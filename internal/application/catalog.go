package application

import (
	"errors"
	"strings"

	"github.com/example/coaching-scheduler/internal/persistence"
)

const inUseMessage = "in use by bookings"

// mapCatalogRepoError translates repository errors for classroom, teacher and
// subject writes. field names the attribute guarded by the unique or check
// constraint of the table.
func mapCatalogRepoError(err error, field, constraintMessage string) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("id", inUseMessage)
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add(field, constraintMessage)
		return vErr
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func lessFold(a, b, aID, bID string) bool {
	if strings.EqualFold(a, b) {
		return aID < bID
	}
	return strings.ToLower(a) < strings.ToLower(b)
}
