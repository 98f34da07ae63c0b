package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) ClockTime {
	return MustClockTime(hour, minute)
}

func lesson(id, teacher, room string, day DayOfWeek, start, end ClockTime) Booking {
	return Booking{
		ID:          id,
		SubjectID:   "math",
		TeacherID:   teacher,
		ClassroomID: room,
		Day:         day,
		Start:       start,
		End:         end,
		IsActive:    true,
	}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		aStart ClockTime
		aEnd   ClockTime
		bStart ClockTime
		bEnd   ClockTime
		want   bool
	}{
		{"existing contains proposed", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"proposed contains existing", at(10, 0), at(11, 0), at(9, 0), at(12, 0), true},
		{"partial overlap on the left", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"partial overlap on the right", at(9, 30), at(10, 30), at(9, 0), at(10, 0), true},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"touching end to start", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"touching start to end", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(8, 0), at(9, 0), at(13, 0), at(14, 0), false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "overlap must be symmetric")
		})
	}
}

func TestBooking_ValidInterval(t *testing.T) {
	t.Parallel()

	assert.True(t, lesson("a", "T1", "R1", Monday, at(9, 0), at(9, 1)).ValidInterval())
	assert.False(t, lesson("b", "T1", "R1", Monday, at(9, 0), at(9, 0)).ValidInterval())
	assert.False(t, lesson("c", "T1", "R1", Monday, at(10, 0), at(9, 0)).ValidInterval())
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	existing := []Booking{lesson("b1", "T1", "R1", Monday, at(9, 0), at(10, 0))}

	t.Run("teacher overlap produces conflict", func(t *testing.T) {
		t.Parallel()
		candidate := lesson("", "T1", "R2", Monday, at(9, 30), at(10, 30))

		conflicts := DetectConflicts(existing, candidate)

		require.Len(t, conflicts, 1)
		assert.Equal(t, "b1", conflicts[0].WithBookingID)
		assert.Equal(t, ConflictTypeTeacher, conflicts[0].Type)
		assert.Equal(t, at(9, 0), conflicts[0].Start)
		assert.Equal(t, at(10, 0), conflicts[0].End)
	})

	t.Run("classroom overlap produces conflict", func(t *testing.T) {
		t.Parallel()
		candidate := lesson("", "T2", "R1", Monday, at(9, 0), at(10, 0))

		conflicts := DetectConflicts(existing, candidate)

		require.Len(t, conflicts, 1)
		assert.Equal(t, ConflictTypeClassroom, conflicts[0].Type)
	})

	t.Run("shared teacher and classroom reports both", func(t *testing.T) {
		t.Parallel()
		candidate := lesson("", "T1", "R1", Monday, at(9, 15), at(9, 45))

		conflicts := DetectConflicts(existing, candidate)

		require.Len(t, conflicts, 2)
		assert.Equal(t, ConflictTypeTeacher, conflicts[0].Type)
		assert.Equal(t, ConflictTypeClassroom, conflicts[1].Type)
		assert.Equal(t, []string{"b1"}, ConflictingBookingIDs(conflicts))
	})

	t.Run("back to back bookings are accepted", func(t *testing.T) {
		t.Parallel()
		candidate := lesson("", "T1", "R1", Monday, at(10, 0), at(11, 0))
		assert.Empty(t, DetectConflicts(existing, candidate))
	})

	t.Run("same range on another day is accepted", func(t *testing.T) {
		t.Parallel()
		candidate := lesson("", "T1", "R2", Tuesday, at(9, 30), at(10, 30))
		assert.Empty(t, DetectConflicts(existing, candidate))
	})

	t.Run("inactive bookings are ignored", func(t *testing.T) {
		t.Parallel()
		inactive := existing[0]
		inactive.IsActive = false
		candidate := lesson("", "T1", "R1", Monday, at(9, 0), at(10, 0))

		assert.Empty(t, DetectConflicts([]Booking{inactive}, candidate))
	})

	t.Run("unrelated resources never conflict", func(t *testing.T) {
		t.Parallel()
		candidate := lesson("", "T9", "R9", Monday, at(9, 0), at(10, 0))
		assert.Empty(t, DetectConflicts(existing, candidate))
	})

	t.Run("a booking does not conflict with itself", func(t *testing.T) {
		t.Parallel()
		moved := existing[0]
		moved.Start = at(9, 30)
		moved.End = at(10, 30)

		assert.Empty(t, DetectConflicts(existing, moved))
	})

	t.Run("preserves input order across several matches", func(t *testing.T) {
		t.Parallel()
		several := []Booking{
			lesson("b3", "T2", "R1", Friday, at(14, 0), at(15, 0)),
			lesson("b1", "T1", "R3", Friday, at(13, 30), at(14, 30)),
			lesson("b2", "T3", "R4", Friday, at(14, 0), at(15, 0)),
		}
		candidate := lesson("", "T1", "R1", Friday, at(14, 0), at(16, 0))

		conflicts := DetectConflicts(several, candidate)

		assert.Equal(t, []string{"b3", "b1"}, ConflictingBookingIDs(conflicts))
	})
}

// Accepting candidates one by one through DetectConflicts must never leave two
// overlapping active bookings on a shared teacher or classroom.
func TestDetectConflicts_AcceptedSetStaysExclusive(t *testing.T) {
	t.Parallel()

	teachers := []string{"T1", "T2", "T3"}
	rooms := []string{"R1", "R2"}

	var accepted []Booking
	id := 0
	for _, day := range []DayOfWeek{Monday, Wednesday} {
		for start := 8 * 60; start < 18*60; start += 25 {
			for i, teacher := range teachers {
				id++
				candidate := Booking{
					ID:          fmt.Sprintf("b%d", id),
					TeacherID:   teacher,
					ClassroomID: rooms[(id+i)%len(rooms)],
					Day:         day,
					Start:       ClockTime(start),
					End:         ClockTime(start + 40 + 5*i),
					IsActive:    true,
				}
				if len(DetectConflicts(accepted, candidate)) == 0 {
					accepted = append(accepted, candidate)
				}
			}
		}
	}

	require.NotEmpty(t, accepted)
	for i := range accepted {
		for j := i + 1; j < len(accepted); j++ {
			a, b := accepted[i], accepted[j]
			if a.Day != b.Day || !Overlaps(a.Start, a.End, b.Start, b.End) {
				continue
			}
			assert.NotEqual(t, a.TeacherID, b.TeacherID, "teacher double-booked: %s vs %s", a.ID, b.ID)
			assert.NotEqual(t, a.ClassroomID, b.ClassroomID, "classroom double-booked: %s vs %s", a.ID, b.ID)
		}
	}
}
