package scheduler

import (
	"fmt"
	"sort"
)

const (
	// FirstSlotHour is the earliest hour shown on the weekly timetable.
	FirstSlotHour = 8
	// LastSlotHour is the latest hour shown on the weekly timetable.
	LastSlotHour = 18
)

// WeekGrid maps each operational day to hour-slot labels ("08:00".."18:00")
// and the bookings starting within that hour.
type WeekGrid map[DayOfWeek]map[string][]Booking

// HourSlots returns the slot labels in display order.
func HourSlots() []string {
	slots := make([]string, 0, LastSlotHour-FirstSlotHour+1)
	for hour := FirstSlotHour; hour <= LastSlotHour; hour++ {
		slots = append(slots, SlotLabel(hour))
	}
	return slots
}

// SlotLabel formats an hour as a slot key.
func SlotLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// SlotFor returns the slot a booking is placed in. The second result is false
// when the booking falls outside the timetable: sunday, or a start hour before
// FirstSlotHour or after LastSlotHour.
func SlotFor(b Booking) (string, bool) {
	if b.Day < Monday || b.Day > Saturday {
		return "", false
	}
	hour := b.Start.Hour()
	if hour < FirstSlotHour || hour > LastSlotHour {
		return "", false
	}
	return SlotLabel(hour), true
}

// NewWeekGrid returns a grid with every day and slot initialised to empty.
func NewWeekGrid() WeekGrid {
	grid := make(WeekGrid, len(OperationalDays()))
	for _, day := range OperationalDays() {
		cells := make(map[string][]Booking, LastSlotHour-FirstSlotHour+1)
		for _, slot := range HourSlots() {
			cells[slot] = []Booking{}
		}
		grid[day] = cells
	}
	return grid
}

// AssembleWeekGrid buckets bookings by day and truncated start hour.
//
// Bookings outside the timetable (see SlotFor) and inactive bookings are left
// out. Within a cell the input order is preserved.
func AssembleWeekGrid(bookings []Booking) WeekGrid {
	grid := NewWeekGrid()
	for _, b := range bookings {
		if !b.IsActive {
			continue
		}
		slot, ok := SlotFor(b)
		if !ok {
			continue
		}
		grid[b.Day][slot] = append(grid[b.Day][slot], b)
	}
	return grid
}

// Cell returns the bookings in a cell, or nil for an unknown day or slot.
func (g WeekGrid) Cell(day DayOfWeek, slot string) []Booking {
	cells, ok := g[day]
	if !ok {
		return nil
	}
	return cells[slot]
}

// Days returns the days of the grid in ordinal order.
func (g WeekGrid) Days() []DayOfWeek {
	days := make([]DayOfWeek, 0, len(g))
	for _, day := range OperationalDays() {
		if _, ok := g[day]; ok {
			days = append(days, day)
		}
	}
	return days
}

// Slots returns the slot labels of the grid in display order.
func (g WeekGrid) Slots() []string {
	return HourSlots()
}

// Count returns the number of bookings placed on the grid.
func (g WeekGrid) Count() int {
	total := 0
	for _, cells := range g {
		for _, bookings := range cells {
			total += len(bookings)
		}
	}
	return total
}

// SortBookings orders bookings by day ordinal, start time, then ID.
func SortBookings(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookingLess(bookings[i], bookings[j])
	})
}

func bookingLess(a, b Booking) bool {
	if a.Day != b.Day {
		return a.Day < b.Day
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.ID < b.ID
}
