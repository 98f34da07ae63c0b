package recurrence

import (
	"errors"
	"sort"
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// MaxWindowDays bounds the number of calendar days a single expansion may cover.
const MaxWindowDays = 366

// ErrInvalidWindow indicates the window ends before it starts.
var ErrInvalidWindow = errors.New("recurrence: window end precedes start")

// ErrWindowTooLarge indicates the window spans more than MaxWindowDays.
var ErrWindowTooLarge = errors.New("recurrence: window too large")

// Occurrence is one dated instance of a weekly booking.
type Occurrence struct {
	BookingID   string
	SubjectID   string
	TeacherID   string
	ClassroomID string
	Date        time.Time
	Start       time.Time
	End         time.Time
}

// Engine expands weekly bookings into calendar occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates dates in loc. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone used for date arithmetic.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Expand produces an occurrence for every active booking on each date of the
// inclusive window [from, to] whose weekday matches the booking's day.
//
// Only the calendar date of from and to is considered. Results are ordered by
// start time, then booking ID.
func (e *Engine) Expand(bookings []scheduler.Booking, from, to time.Time) ([]Occurrence, error) {
	loc := e.Location()

	first := startOfDay(from, loc)
	last := startOfDay(to, loc)
	if last.Before(first) {
		return nil, ErrInvalidWindow
	}
	if days := daysBetween(first, last); days >= MaxWindowDays {
		return nil, ErrWindowTooLarge
	}

	byDay := make(map[scheduler.DayOfWeek][]scheduler.Booking)
	for _, b := range bookings {
		if !b.IsActive || !b.Day.Valid() {
			continue
		}
		byDay[b.Day] = append(byDay[b.Day], b)
	}
	if len(byDay) == 0 {
		return nil, nil
	}

	occurrences := make([]Occurrence, 0)
	for current := first; !current.After(last); current = current.AddDate(0, 0, 1) {
		for _, b := range byDay[scheduler.DayFromWeekday(current.Weekday())] {
			occurrences = append(occurrences, Occurrence{
				BookingID:   b.ID,
				SubjectID:   b.SubjectID,
				TeacherID:   b.TeacherID,
				ClassroomID: b.ClassroomID,
				Date:        current,
				Start:       combineDateTime(current, b.Start, loc),
				End:         combineDateTime(current, b.End, loc),
			})
		}
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		if occurrences[i].Start.Equal(occurrences[j].Start) {
			return occurrences[i].BookingID < occurrences[j].BookingID
		}
		return occurrences[i].Start.Before(occurrences[j].Start)
	})

	return occurrences, nil
}

// CountByDate groups occurrences by calendar date formatted as YYYY-MM-DD.
func CountByDate(occurrences []Occurrence) map[string]int {
	counts := make(map[string]int)
	for _, o := range occurrences {
		counts[o.Date.Format(time.DateOnly)]++
	}
	return counts
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func combineDateTime(date time.Time, clock scheduler.ClockTime, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
