package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MetricsSource serves the metrics endpoint and observes requests.
type MetricsSource interface {
	RequestObserver
	Handler() http.Handler
}

type RouterConfig struct {
	Bookings   *BookingHandler
	Classrooms *ClassroomHandler
	Teachers   *TeacherHandler
	Subjects   *SubjectHandler
	Attendance *AttendanceHandler
	Metrics    MetricsSource
	// Health reports whether dependencies are reachable. Nil means always healthy.
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(Metrics(cfg.Metrics))
	}
	r.Use(Principal())
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(req.Context()); err != nil {
				responder.writeJSON(req.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if h := cfg.Bookings; h != nil {
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Post("/check", h.Check)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Put("/", h.Update)
				r.Delete("/", h.Delete)
				r.Post("/activate", h.Activate)
				r.Post("/deactivate", h.Deactivate)
			})
		})
		r.Get("/timetable/week", h.WeekGrid)
		r.Get("/me/timetable", h.MyTimetable)
	}

	if h := cfg.Classrooms; h != nil {
		r.Route("/classrooms", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	}

	if h := cfg.Subjects; h != nil {
		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	}

	if cfg.Teachers != nil || cfg.Attendance != nil {
		r.Route("/teachers", func(r chi.Router) {
			if h := cfg.Teachers; h != nil {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			}
			if h := cfg.Attendance; h != nil {
				r.Get("/{id}/attendance", h.TeacherReport)
				r.Put("/{id}/attendance/{date}", h.Record)
			}
		})
	}

	if h := cfg.Attendance; h != nil {
		r.Get("/attendance", h.Daily)
		r.Get("/me/attendance", h.MyAttendance)
	}

	return r
}
