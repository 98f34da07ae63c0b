// Package lock serializes booking writes per resource and day.
//
// A booking touches two resources on one weekday: its teacher and its
// classroom. Callers acquire both keys before checking for conflicts so that
// two concurrent writes on the same resource cannot both pass the check.
package lock

import (
	"context"
	"errors"
	"sort"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// context ended.
var ErrLockTimeout = errors.New("lock: acquisition timed out")

// Locker acquires a set of named locks. Keys are de-duplicated and taken in
// sorted order. The returned release function is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// TeacherDayKey names the lock guarding a teacher's lessons on day.
func TeacherDayKey(teacherID string, day scheduler.DayOfWeek) string {
	return "teacher:" + teacherID + ":" + day.String()
}

// ClassroomDayKey names the lock guarding a classroom's lessons on day.
func ClassroomDayKey(classroomID string, day scheduler.DayOfWeek) string {
	return "classroom:" + classroomID + ":" + day.String()
}

// BookingKeys returns the keys a write of b must hold.
func BookingKeys(b scheduler.Booking) []string {
	return []string{TeacherDayKey(b.TeacherID, b.Day), ClassroomDayKey(b.ClassroomID, b.Day)}
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func releaseAll(releases []func()) func() {
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}
