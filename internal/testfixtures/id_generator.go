package testfixtures

import (
	"fmt"
	"sync"
)

// Entity prefixes of generated identifiers.
const (
	BookingIDPrefix    = "booking"
	ClassroomIDPrefix  = "classroom"
	TeacherIDPrefix    = "teacher"
	SubjectIDPrefix    = "subject"
	AttendanceIDPrefix = "attendance"
)

// IDGenerator hands out deterministic identifiers such as "booking-1" and
// "classroom-1". Each prefix counts on its own, so the IDs a test sees for one
// entity do not depend on how many of another it created.
type IDGenerator struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewIDGenerator returns a generator with every counter at zero.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counters: make(map[string]int)}
}

// Next returns the next identifier for prefix.
func (g *IDGenerator) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counters[prefix])
}

// For binds prefix, producing the func() string services take.
func (g *IDGenerator) For(prefix string) func() string {
	if g == nil {
		return func() string { return "" }
	}
	return func() string { return g.Next(prefix) }
}
