package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/config"
	"github.com/example/coaching-scheduler/internal/persistence/sqlstore"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:     8080,
		DBDriver:     "sqlite",
		DBDSN:        sqlstore.SQLiteDSN(filepath.Join(t.TempDir(), "scheduler.db")),
		LogFormat:    "text",
		LockBackend:  config.LockBackendMemory,
		LockTTL:      5 * time.Second,
		GridCacheTTL: time.Minute,
		Location:     time.UTC,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func openTestStore(t *testing.T, cfg config.Config, logger *slog.Logger) *sqlstore.Store {
	t.Helper()
	store, err := openStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunDatabaseMigrations(t *testing.T) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))
	store := openTestStore(t, testConfig(t), logger)
	ctx := context.Background()

	require.NoError(t, runDatabaseMigrations(ctx, store, logger))

	logStr := logOutput.String()
	for _, msg := range []string{
		"checking current database schema version",
		"migration execution starting",
		"migration queued for execution",
		"database migrations completed successfully",
	} {
		assert.Contains(t, logStr, msg)
	}
	assert.Contains(t, logStr, "version=001")
	assert.Contains(t, logStr, "version=003")

	logOutput.Reset()
	require.NoError(t, runDatabaseMigrations(ctx, store, logger))
	assert.Contains(t, logOutput.String(), "database schema is up to date")
	assert.NotContains(t, logOutput.String(), "migration execution starting")

	var out bytes.Buffer
	require.NoError(t, printMigrationStatus(ctx, &out, store))
	assert.Contains(t, out.String(), "current version: 003")
	assert.Contains(t, out.String(), "applied  002")
	assert.NotContains(t, out.String(), "pending")
}

func TestMigrateStatusCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCHEDULER_DB_DSN", sqlstore.SQLiteDSN(filepath.Join(t.TempDir(), "cli.db")))
	t.Setenv("SCHEDULER_LOG_FORMAT", "text")

	var out, errOut bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"migrate", "status"})
	require.NoError(t, root.ExecuteContext(context.Background()), errOut.String())
	assert.Contains(t, out.String(), "current version: none")
	assert.Contains(t, out.String(), "pending  001")

	out.Reset()
	root = newRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.ExecuteContext(context.Background()), errOut.String())

	root = newRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"migrate", "status"})
	require.NoError(t, root.ExecuteContext(context.Background()), errOut.String())
	assert.Contains(t, out.String(), "current version: 003")
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCHEDULER_LOCK_BACKEND", "zookeeper")

	var errOut bytes.Buffer
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&errOut)
	root.SetArgs([]string{"serve"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_LOCK_BACKEND")
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	logger := discardLogger()
	store := openTestStore(t, cfg, logger)
	require.NoError(t, runDatabaseMigrations(context.Background(), store, logger))

	a, err := buildApp(cfg, store, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func (c apiClient) do(method, path string, body any, headers ...string) (int, map[string]any) {
	c.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &payload)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp.StatusCode, decoded
}

func (c apiClient) create(path, key string, body any) string {
	c.t.Helper()
	status, resp := c.do(http.MethodPost, path, body)
	require.Equal(c.t, http.StatusCreated, status, "%v", resp)
	return resp[key].(map[string]any)["id"].(string)
}

func TestAppEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	server := httptest.NewServer(a.handler)
	t.Cleanup(server.Close)
	api := apiClient{t: t, server: server}

	subjectID := api.create("/subjects", "subject", map[string]any{"code": "MATH-1", "name": "Algebra"})
	teacherID := api.create("/teachers", "teacher", map[string]any{"full_name": "Anu", "email": "anu@example.com"})
	otherTeacherID := api.create("/teachers", "teacher", map[string]any{"full_name": "Bela"})
	roomID := api.create("/classrooms", "classroom", map[string]any{"name": "Room A", "location": "First floor", "capacity": 20})

	booking := func(teacher, start, end string) map[string]any {
		return map[string]any{
			"subject_id":   subjectID,
			"teacher_id":   teacher,
			"classroom_id": roomID,
			"day":          "Monday",
			"start_time":   start,
			"end_time":     end,
		}
	}

	firstID := api.create("/bookings", "booking", booking(teacherID, "09:00", "10:30"))

	// Same classroom, overlapping interval, different teacher.
	status, resp := api.do(http.MethodPost, "/bookings", booking(otherTeacherID, "10:00", "11:00"))
	require.Equal(t, http.StatusConflict, status, "%v", resp)
	assert.Equal(t, "SCHEDULE_CONFLICT", resp["error_code"])
	conflicts := resp["conflicts"].([]any)
	require.Len(t, conflicts, 1)
	assert.Equal(t, firstID, conflicts[0].(map[string]any)["booking_id"])
	assert.Equal(t, "classroom", conflicts[0].(map[string]any)["type"])

	// Touching intervals do not overlap.
	api.create("/bookings", "booking", booking(otherTeacherID, "10:30", "11:30"))

	status, resp = api.do(http.MethodPost, "/bookings", booking(teacherID, "12:00", "11:00"))
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INTERVAL", resp["error_code"])

	missing := booking(teacherID, "15:00", "16:00")
	missing["subject_id"] = "no-such-subject"
	status, resp = api.do(http.MethodPost, "/bookings", missing)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, resp["errors"], "subject_id")

	// Deactivating the first booking frees the slot.
	status, _ = api.do(http.MethodPost, "/bookings/"+firstID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, status)
	api.create("/bookings", "booking", booking(teacherID, "09:30", "10:15"))

	// Reactivating it now collides with the replacement.
	status, resp = api.do(http.MethodPost, "/bookings/"+firstID+"/activate", nil)
	require.Equal(t, http.StatusConflict, status, "%v", resp)

	status, resp = api.do(http.MethodGet, "/timetable/week?classroom_id="+roomID, nil)
	require.Equal(t, http.StatusOK, status)
	grid := resp["grid"].(map[string]any)
	assert.Len(t, grid["monday"].(map[string]any)["09:00"], 1)
	assert.Len(t, grid["monday"].(map[string]any)["10:00"], 1)
	assert.NotContains(t, grid, "sunday")
	assert.EqualValues(t, 2, resp["total"])

	status, resp = api.do(http.MethodGet, "/me/timetable", nil, "X-Teacher-ID", teacherID)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp["total"])

	// 2024-03-04 is a Monday.
	status, resp = api.do(http.MethodPut, "/teachers/"+teacherID+"/attendance/2024-03-04", map[string]any{"status": "late"})
	require.Equal(t, http.StatusOK, status, "%v", resp)

	status, resp = api.do(http.MethodGet, "/attendance?date=2024-03-04", nil)
	require.Equal(t, http.StatusOK, status)
	entries := resp["entries"].([]any)
	require.Len(t, entries, 2)
	anu := entries[0].(map[string]any)
	assert.Equal(t, "late", anu["status"])
	assert.EqualValues(t, 1, anu["scheduled_lessons"])

	status, resp = api.do(http.MethodGet, "/teachers/"+teacherID+"/attendance?from=2024-03-04&to=2024-03-17", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["occurrences"], 2)
	assert.EqualValues(t, 1, resp["unmarked_scheduled_days"])

	// Classrooms referenced by bookings cannot be removed.
	status, _ = api.do(http.MethodDelete, "/classrooms/"+roomID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)

	metricsResp, err := server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	var metricsBody bytes.Buffer
	_, _ = metricsBody.ReadFrom(metricsResp.Body)
	assert.Contains(t, metricsBody.String(), "scheduler_bookings_created_total 3")
	assert.Contains(t, metricsBody.String(), `scheduler_booking_conflicts_total{type="classroom"}`)
}

// Concurrent writers racing for the same classroom slot: exactly one wins and
// every other receives a conflict.
func TestAppConcurrentBookings(t *testing.T) {
	for _, backend := range []string{config.LockBackendMemory, config.LockBackendRedis} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.LockBackend = backend
			if backend == config.LockBackendRedis {
				cfg.RedisAddr = miniredis.RunT(t).Addr()
			}
			a := newTestApp(t, cfg)
			ctx := context.Background()
			require.NoError(t, a.health(ctx))

			subjects := newSubjectRepositoryAdapter(a.store.Subjects)
			teachers := newTeacherRepositoryAdapter(a.store.Teachers)
			rooms := newClassroomRepositoryAdapter(a.store.Classrooms)
			now := time.Now().UTC()
			_, err := subjects.CreateSubject(ctx, application.Subject{ID: "s-1", Code: "PHY", Name: "Physics", CreatedAt: now, UpdatedAt: now})
			require.NoError(t, err)
			_, err = rooms.CreateClassroom(ctx, application.Classroom{ID: "c-1", Name: "Lab", Location: "Ground", Capacity: 12, CreatedAt: now, UpdatedAt: now})
			require.NoError(t, err)

			const writers = 8
			for i := 0; i < writers; i++ {
				_, err := teachers.CreateTeacher(ctx, application.Teacher{ID: fmt.Sprintf("t-%d", i), FullName: fmt.Sprintf("Teacher %d", i), IsActive: true, CreatedAt: now, UpdatedAt: now})
				require.NoError(t, err)
			}

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				created   int
				conflicts int
				others    []error
			)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := a.bookings.CreateBooking(ctx, application.CreateBookingParams{Input: application.BookingInput{
						SubjectID:   "s-1",
						TeacherID:   fmt.Sprintf("t-%d", i),
						ClassroomID: "c-1",
						Day:         "wednesday",
						Start:       fmt.Sprintf("14:%02d", i),
						End:         "15:30",
					}})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						created++
					case errors.Is(err, application.ErrConflict):
						conflicts++
					default:
						others = append(others, err)
					}
				}(i)
			}
			wg.Wait()

			require.Empty(t, others)
			assert.Equal(t, 1, created)
			assert.Equal(t, writers-1, conflicts)

			stored, err := a.bookings.ListBookings(ctx, application.ListBookingsParams{ClassroomID: "c-1"})
			require.NoError(t, err)
			assert.Len(t, stored, 1)
		})
	}
}

func TestAppSharedBackendServesFreshGrids(t *testing.T) {
	cfg := testConfig(t)
	cfg.LockBackend = config.LockBackendRedis
	cfg.RedisAddr = miniredis.RunT(t).Addr()
	reader := newTestApp(t, cfg)
	writer := newTestApp(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := newSubjectRepositoryAdapter(writer.store.Subjects).CreateSubject(ctx, application.Subject{ID: "s-1", Code: "BIO", Name: "Biology", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = newTeacherRepositoryAdapter(writer.store.Teachers).CreateTeacher(ctx, application.Teacher{ID: "t-1", FullName: "Ines", IsActive: true, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = newClassroomRepositoryAdapter(writer.store.Classrooms).CreateClassroom(ctx, application.Classroom{ID: "c-1", Name: "Lab", Location: "First", Capacity: 10, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	before, err := reader.bookings.WeekGrid(ctx, application.GridParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, before.Total)

	_, err = writer.bookings.CreateBooking(ctx, application.CreateBookingParams{Input: application.BookingInput{
		SubjectID:   "s-1",
		TeacherID:   "t-1",
		ClassroomID: "c-1",
		Day:         "thursday",
		Start:       "10:00",
		End:         "11:00",
	}})
	require.NoError(t, err)

	after, err := reader.bookings.WeekGrid(ctx, application.GridParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, after.Total, "an instance must see bookings written by another instance")
	assert.Len(t, after.Grid.Cell(scheduler.Thursday, "10:00"), 1)
}
