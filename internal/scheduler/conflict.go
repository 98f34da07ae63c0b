package scheduler

// Booking is a weekly recurring lesson: one subject taught by one teacher in
// one classroom on a fixed day and time range.
type Booking struct {
	ID          string
	SubjectID   string
	TeacherID   string
	ClassroomID string
	Day         DayOfWeek
	Start       ClockTime
	End         ClockTime
	IsActive    bool
}

// ValidInterval reports whether the booking ends strictly after it starts.
func (b Booking) ValidInterval() bool {
	return b.End > b.Start
}

// ConflictType describes which shared resource makes two bookings collide.
type ConflictType string

const (
	// ConflictTypeTeacher indicates the teacher is double-booked.
	ConflictTypeTeacher ConflictType = "teacher"
	// ConflictTypeClassroom indicates the classroom is double-booked.
	ConflictTypeClassroom ConflictType = "classroom"
)

// Conflict details an existing booking that collides with a candidate.
type Conflict struct {
	WithBookingID string
	Type          ConflictType
	TeacherID     string
	ClassroomID   string
	Day           DayOfWeek
	Start         ClockTime
	End           ClockTime
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return aStart < bEnd && aEnd > bStart
}

// DetectConflicts returns every active booking in existing that shares the
// candidate's day and overlaps its interval on the same teacher or classroom.
//
// Inactive bookings and the candidate's own ID are ignored. A booking that
// shares both resources yields two conflicts, teacher first. The result keeps
// the order of existing.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if !other.IsActive || other.Day != candidate.Day {
			continue
		}
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if !Overlaps(other.Start, other.End, candidate.Start, candidate.End) {
			continue
		}
		if other.TeacherID == candidate.TeacherID {
			conflicts = append(conflicts, newConflict(other, ConflictTypeTeacher))
		}
		if other.ClassroomID == candidate.ClassroomID {
			conflicts = append(conflicts, newConflict(other, ConflictTypeClassroom))
		}
	}
	return conflicts
}

func newConflict(with Booking, kind ConflictType) Conflict {
	return Conflict{
		WithBookingID: with.ID,
		Type:          kind,
		TeacherID:     with.TeacherID,
		ClassroomID:   with.ClassroomID,
		Day:           with.Day,
		Start:         with.Start,
		End:           with.End,
	}
}

// ConflictingBookingIDs returns the distinct booking IDs referenced by conflicts,
// in first-seen order.
func ConflictingBookingIDs(conflicts []Conflict) []string {
	if len(conflicts) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(conflicts))
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if _, ok := seen[c.WithBookingID]; ok {
			continue
		}
		seen[c.WithBookingID] = struct{}{}
		ids = append(ids, c.WithBookingID)
	}
	return ids
}
