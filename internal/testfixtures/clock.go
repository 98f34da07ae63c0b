package testfixtures

import (
	"sync"
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// Clock is a manual time source. Services read it through NowFunc; tests
// move it with Advance or jump to a lesson with AtLesson.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now reports the clock's time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection into services. A nil clock falls back
// to the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AtLesson moves the clock to the next occurrence of day at start, counted
// from the current time in its location, and returns that instant.
func (c *Clock) AtLesson(day scheduler.DayOfWeek, start scheduler.ClockTime) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, c.now.Location())
	offset := (int(day.Weekday()) - int(midnight.Weekday()) + 7) % 7
	next := midnight.AddDate(0, 0, offset).Add(time.Duration(start) * time.Minute)
	if next.Before(c.now) {
		next = next.AddDate(0, 0, 7)
	}
	c.now = next
	return next
}
