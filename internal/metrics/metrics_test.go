package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

func TestMetrics_BookingCounters(t *testing.T) {
	m := New()

	m.BookingCreated()
	m.BookingCreated()
	m.BookingConflict([]scheduler.ConflictType{scheduler.ConflictTypeTeacher, scheduler.ConflictTypeClassroom})
	m.BookingConflict([]scheduler.ConflictType{scheduler.ConflictTypeTeacher})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflicts.WithLabelValues("teacher")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("classroom")))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodPost, "/bookings", http.StatusConflict, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/bookings", "409")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingCreated()
		m.BookingConflict([]scheduler.ConflictType{scheduler.ConflictTypeTeacher})
		m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.BookingCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "scheduler_bookings_created_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
