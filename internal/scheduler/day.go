package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDay is returned when a value cannot be interpreted as a day of the week.
var ErrInvalidDay = errors.New("scheduler: invalid day of week")

// DayOfWeek identifies the weekday a recurring lesson takes place on.
// The ordinal starts at Monday so ordering by value matches the timetable.
type DayOfWeek int

const (
	DayUnknown DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{
	DayUnknown: "",
	Monday:     "monday",
	Tuesday:    "tuesday",
	Wednesday:  "wednesday",
	Thursday:   "thursday",
	Friday:     "friday",
	Saturday:   "saturday",
	Sunday:     "sunday",
}

// ParseDayOfWeek resolves a case-insensitive day name such as "Monday".
func ParseDayOfWeek(value string) (DayOfWeek, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized != "" {
		for day := Monday; day <= Sunday; day++ {
			if dayNames[day] == normalized {
				return day, nil
			}
		}
	}
	return DayUnknown, fmt.Errorf("%w: %q", ErrInvalidDay, value)
}

// Valid reports whether d is one of the seven named days.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

// Ordinal returns the 1-based position of the day within the week.
func (d DayOfWeek) Ordinal() int {
	if !d.Valid() {
		return 0
	}
	return int(d)
}

// String returns the canonical lowercase name.
func (d DayOfWeek) String() string {
	if !d.Valid() {
		return ""
	}
	return dayNames[d]
}

// Weekday converts to the standard library representation.
func (d DayOfWeek) Weekday() time.Weekday {
	if d == Sunday {
		return time.Sunday
	}
	return time.Weekday(d)
}

// DayFromWeekday converts a standard library weekday into a DayOfWeek.
func DayFromWeekday(w time.Weekday) DayOfWeek {
	if w == time.Sunday {
		return Sunday
	}
	return DayOfWeek(w)
}

// MarshalText encodes the canonical day name.
func (d DayOfWeek) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, ErrInvalidDay
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a day name.
func (d *DayOfWeek) UnmarshalText(text []byte) error {
	parsed, err := ParseDayOfWeek(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AllDays returns the seven days in ordinal order.
func AllDays() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// OperationalDays returns the days rendered on the weekly timetable.
func OperationalDays() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}
