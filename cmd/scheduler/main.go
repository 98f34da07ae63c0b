package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/config"
	httptransport "github.com/example/coaching-scheduler/internal/http"
	"github.com/example/coaching-scheduler/internal/lock"
	"github.com/example/coaching-scheduler/internal/logging"
	"github.com/example/coaching-scheduler/internal/metrics"
	"github.com/example/coaching-scheduler/internal/persistence/sqlstore"
	"github.com/example/coaching-scheduler/internal/recurrence"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "scheduler",
		Short:        "Weekly timetable service for a coaching centre",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply pending migrations and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore(store, logger)
			return runDatabaseMigrations(cmd.Context(), store, logger)
		},
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore(store, logger)
			return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), store)
		},
	})
	return migrate
}

func loadConfig(logOutput io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(logOutput, nil)).Error("failed to load configuration", "error", err)
		return config.Config{}, nil, err
	}
	return cfg, logging.New(logOutput, cfg.LogFormat, cfg.LogLevel), nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlstore.Store, error) {
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.DBDriver, "error", err)
		return nil, err
	}
	return sqlstore.NewStore(db), nil
}

func closeStore(store *sqlstore.Store, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}

// runDatabaseMigrations applies pending migrations and logs each step.
func runDatabaseMigrations(ctx context.Context, store *sqlstore.Store, logger *slog.Logger) error {
	logger.Info("checking current database schema version")
	status, err := store.MigrationStatus(ctx)
	if err != nil {
		logger.Error("failed to scan for pending migrations", "error", err)
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if status.PendingCount == 0 {
		logger.Info("database schema is up to date", "version", status.CurrentVersion)
		return nil
	}

	logger.Info("migration execution starting", "current_version", status.CurrentVersion, "pending_count", status.PendingCount)
	for i, m := range status.PendingMigrations {
		logger.Info("migration queued for execution",
			"sequence", i+1,
			"total", status.PendingCount,
			"version", m.Version,
			"description", m.Description)
	}

	start := time.Now()
	if err := store.Migrate(ctx); err != nil {
		logger.Error("migration execution failed", "error", err)
		return fmt.Errorf("migration execution failed: %w", err)
	}
	logger.Info("database migrations completed successfully",
		"execution_time", time.Since(start),
		"migrations_applied", status.PendingCount)
	return nil
}

func printMigrationStatus(ctx context.Context, w io.Writer, store *sqlstore.Store) error {
	status, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	version := status.CurrentVersion
	if version == "" {
		version = "none"
	}
	fmt.Fprintf(w, "current version: %s\n", version)
	for _, applied := range status.AppliedMigrations {
		fmt.Fprintf(w, "applied  %s  %s\n", applied.Version, applied.AppliedAt.UTC().Format(time.RFC3339))
	}
	for _, pending := range status.PendingMigrations {
		fmt.Fprintf(w, "pending  %s  %s\n", pending.Version, pending.Description)
	}
	return nil
}

// app holds the wired service graph.
type app struct {
	store    *sqlstore.Store
	redis    redis.UniversalClient
	metrics  *metrics.Metrics
	bookings *application.BookingService
	handler  http.Handler
}

func buildApp(cfg config.Config, store *sqlstore.Store, logger *slog.Logger) (*app, error) {
	a := &app{store: store, metrics: metrics.New()}

	var locker lock.Locker
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		locker = lock.NewRedisLocker(a.redis, lock.WithTTL(cfg.LockTTL), lock.WithLogger(logger))
	case config.LockBackendMemory, "":
		locker = lock.NewMemoryLocker()
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}

	idGenerator := uuid.NewString
	now := time.Now
	engine := recurrence.NewEngine(cfg.Location)

	bookingRepo := newBookingRepositoryAdapter(store.Bookings)
	catalog := newCatalogDirectoryAdapter(store.Subjects, store.Teachers, store.Classrooms)
	teacherRepo := newTeacherRepositoryAdapter(store.Teachers)

	opts := []application.BookingServiceOption{
		application.WithBookingObserver(a.metrics),
		application.WithCatalogDirectory(catalog),
	}
	gridTTL := cfg.GridCacheTTL
	if cfg.LockBackend == config.LockBackendRedis && gridTTL > 0 {
		// Invalidation is per process; instances sharing the database would
		// serve each other's stale grids.
		logger.Info("week grid cache disabled for shared lock backend", "lock_backend", cfg.LockBackend)
		gridTTL = 0
	}
	opts = append(opts, application.WithGridCacheTTL(gridTTL))
	a.bookings = application.NewBookingServiceWithLogger(bookingRepo, locker, idGenerator, now, logger, opts...)

	classroomService := application.NewClassroomServiceWithLogger(newClassroomRepositoryAdapter(store.Classrooms), idGenerator, now, logger)
	teacherService := application.NewTeacherServiceWithLogger(teacherRepo, idGenerator, now, logger)
	subjectService := application.NewSubjectServiceWithLogger(newSubjectRepositoryAdapter(store.Subjects), idGenerator, now, logger)
	attendanceService := application.NewAttendanceServiceWithLogger(
		newAttendanceRepositoryAdapter(store.Attendance),
		teacherRepo,
		bookingRepo,
		engine,
		idGenerator,
		now,
		logger,
	)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:   httptransport.NewBookingHandler(a.bookings, logger),
		Classrooms: httptransport.NewClassroomHandler(classroomService, logger),
		Teachers:   httptransport.NewTeacherHandler(teacherService, logger),
		Subjects:   httptransport.NewSubjectHandler(subjectService, logger),
		Attendance: httptransport.NewAttendanceHandler(attendanceService, engine.Location(), logger),
		Metrics:    a.metrics,
		Health:     a.health,
		Logger:     logger,
	})
	return a, nil
}

func (a *app) health(ctx context.Context) error {
	if err := a.store.DB.Ping(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		return a.redis.Ping(ctx).Err()
	}
	return nil
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	if err := runDatabaseMigrations(ctx, store, logger); err != nil {
		return err
	}

	a, err := buildApp(cfg, store, logger)
	if err != nil {
		logger.Error("failed to wire services", "error", err)
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close lock backend", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("scheduler API listening", "addr", server.Addr, "lock_backend", cfg.LockBackend, "db_driver", cfg.DBDriver)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server encountered error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
		return err
	}
	return nil
}
