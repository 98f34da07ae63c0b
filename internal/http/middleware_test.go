package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seenID string
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestIDFromContext(r.Context())
		require.NotNil(t, LoggerFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("reuses the incoming request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "req-42", seenID)

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		var completed map[string]any
		require.NoError(t, json.Unmarshal(lines[len(lines)-1], &completed))
		assert.Equal(t, "request completed", completed["msg"])
		assert.Equal(t, "req-42", completed["request_id"])
		assert.EqualValues(t, http.StatusTeapot, completed["status"])
	})

	t.Run("generates an id when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, rec.Header().Get("X-Request-ID"), seenID)
	})
}

func TestPrincipalMiddleware(t *testing.T) {
	var got application.Principal
	handler := Principal()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Teacher-ID", " t-1 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, application.Principal{ActorID: "t-1", TeacherID: "t-1"}, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", "office")
	req.Header.Set("X-Teacher-ID", "t-2")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, application.Principal{ActorID: "office", TeacherID: "t-2"}, got)
}

type observation struct {
	method string
	route  string
	status int
}

type recordingMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (m *recordingMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, observation{method: method, route: route, status: status})
}

func (m *recordingMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
}

func TestRouterMetricsAndHealth(t *testing.T) {
	metrics := &recordingMetrics{}
	stub := &bookingServiceStub{booking: sampleBooking()}
	healthErr := errors.New("database unreachable")
	healthy := true

	router := NewRouter(RouterConfig{
		Bookings: NewBookingHandler(stub, discardLogger()),
		Metrics:  metrics,
		Health: func(ctx context.Context) error {
			if healthy {
				return nil
			}
			return healthErr
		},
		Logger: discardLogger(),
	})

	rec := serve(t, router, http.MethodGet, "/bookings/b-7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())

	rec = serve(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	healthy = false
	rec = serve(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	require.NotEmpty(t, metrics.obs)
	first := metrics.obs[0]
	assert.Equal(t, http.MethodGet, first.method)
	assert.Equal(t, http.StatusOK, first.status)
	assert.Contains(t, []string{"/bookings/{id}", "/bookings/{id}/"}, first.route)
	assert.Equal(t, http.StatusServiceUnavailable, metrics.obs[len(metrics.obs)-1].status)
}
