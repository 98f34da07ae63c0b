package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

func weekly(id, teacher string, day scheduler.DayOfWeek, startHour int) scheduler.Booking {
	return scheduler.Booking{
		ID:          id,
		SubjectID:   "physics",
		TeacherID:   teacher,
		ClassroomID: "room-1",
		Day:         day,
		Start:       scheduler.MustClockTime(startHour, 0),
		End:         scheduler.MustClockTime(startHour+1, 30),
		IsActive:    true,
	}
}

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	// 2024-03-04 is a Monday.
	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	t.Run("emits one occurrence per matching weekday", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)

		occurrences, err := engine.Expand([]scheduler.Booking{
			weekly("b-mon", "t1", scheduler.Monday, 9),
			weekly("b-wed", "t1", scheduler.Wednesday, 14),
		}, monday, monday.AddDate(0, 0, 13))
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}

		if len(occurrences) != 4 {
			t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
		}
		wantDates := []string{"2024-03-04", "2024-03-06", "2024-03-11", "2024-03-13"}
		for i, occ := range occurrences {
			if got := occ.Date.Format(time.DateOnly); got != wantDates[i] {
				t.Fatalf("occurrence %d: expected date %s, got %s", i, wantDates[i], got)
			}
		}
		first := occurrences[0]
		if first.Start.Hour() != 9 || first.End.Hour() != 10 || first.End.Minute() != 30 {
			t.Fatalf("unexpected time range %v - %v", first.Start, first.End)
		}
		if first.TeacherID != "t1" || first.SubjectID != "physics" {
			t.Fatalf("expected booking attributes to be copied, got %+v", first)
		}
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)

		occurrences, err := engine.Expand([]scheduler.Booking{weekly("b", "t1", scheduler.Monday, 9)}, monday, monday)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(occurrences) != 1 {
			t.Fatalf("expected single occurrence, got %d", len(occurrences))
		}
	})

	t.Run("skips inactive bookings", func(t *testing.T) {
		t.Parallel()
		inactive := weekly("b", "t1", scheduler.Monday, 9)
		inactive.IsActive = false

		occurrences, err := NewEngine(nil).Expand([]scheduler.Booking{inactive}, monday, monday.AddDate(0, 0, 7))
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(occurrences) != 0 {
			t.Fatalf("expected no occurrences, got %d", len(occurrences))
		}
	})

	t.Run("orders same-day lessons by start time", func(t *testing.T) {
		t.Parallel()
		occurrences, err := NewEngine(nil).Expand([]scheduler.Booking{
			weekly("late", "t1", scheduler.Monday, 16),
			weekly("early", "t2", scheduler.Monday, 8),
		}, monday, monday)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if occurrences[0].BookingID != "early" || occurrences[1].BookingID != "late" {
			t.Fatalf("unexpected order: %s, %s", occurrences[0].BookingID, occurrences[1].BookingID)
		}
	})

	t.Run("evaluates dates in the configured location", func(t *testing.T) {
		t.Parallel()
		tokyo := time.FixedZone("JST", 9*60*60)
		engine := NewEngine(tokyo)
		// Sunday 20:00 UTC is already Monday in Tokyo.
		from := time.Date(2024, time.March, 3, 20, 0, 0, 0, time.UTC)

		occurrences, err := engine.Expand([]scheduler.Booking{weekly("b", "t1", scheduler.Monday, 9)}, from, from)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(occurrences) != 1 {
			t.Fatalf("expected Monday occurrence in JST, got %d", len(occurrences))
		}
		if occurrences[0].Start.Location() != tokyo {
			t.Fatalf("expected occurrence in JST, got %v", occurrences[0].Start.Location())
		}
	})

	t.Run("rejects reversed and oversized windows", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)
		if _, err := engine.Expand(nil, monday, monday.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
		if _, err := engine.Expand(nil, monday, monday.AddDate(1, 1, 0)); !errors.Is(err, ErrWindowTooLarge) {
			t.Fatalf("expected ErrWindowTooLarge, got %v", err)
		}
	})
}

func TestCountByDate(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	occurrences, err := NewEngine(nil).Expand([]scheduler.Booking{
		weekly("a", "t1", scheduler.Monday, 9),
		weekly("b", "t1", scheduler.Monday, 13),
		weekly("c", "t1", scheduler.Tuesday, 9),
	}, monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}

	counts := CountByDate(occurrences)
	if counts["2024-03-04"] != 2 || counts["2024-03-05"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
