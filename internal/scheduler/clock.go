package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidClockTime is returned when a value is not a valid time of day.
var ErrInvalidClockTime = errors.New("scheduler: invalid time of day")

const minutesPerDay = 24 * 60

// ClockTime is a time of day with minute precision, stored as minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from an hour and minute.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidClockTime, hour, minute)
	}
	return ClockTime(hour*60 + minute), nil
}

// MustClockTime is like NewClockTime but panics on invalid input.
func MustClockTime(hour, minute int) ClockTime {
	t, err := NewClockTime(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS". Seconds, when present, must be zero.
func ParseClockTime(value string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}

	fields := make([]int, len(parts))
	for i, part := range parts {
		n, ok := twoDigits(part)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
		}
		fields[i] = n
	}
	if len(fields) == 3 && fields[2] != 0 {
		return 0, fmt.Errorf("%w: %q has non-zero seconds", ErrInvalidClockTime, value)
	}

	return NewClockTime(fields[0], fields[1])
}

// twoDigits parses exactly two ASCII digits. Signs and spaces are rejected.
func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// Hour returns the hour component.
func (c ClockTime) Hour() int {
	return int(c) / 60
}

// Minute returns the minute component.
func (c ClockTime) Minute() int {
	return int(c) % 60
}

// Valid reports whether c lies within a single day.
func (c ClockTime) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

// String formats the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText encodes the time as HH:MM.
func (c ClockTime) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidClockTime
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes HH:MM or HH:MM:SS.
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
