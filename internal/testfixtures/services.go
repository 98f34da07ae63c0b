package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/lock"
	"github.com/example/coaching-scheduler/internal/recurrence"
)

// ServiceFactory builds application services that share one manual clock
// and one per-entity ID generator.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) defaults(prefix string, idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.For(prefix)
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// BookingServiceDeps captures dependencies for constructing a booking service.
// A nil Locker defaults to an in-memory locker. A zero GridCacheTTL keeps the
// service default; a negative one disables the cache.
type BookingServiceDeps struct {
	Bookings     application.BookingRepository
	Locker       lock.Locker
	Catalog      application.CatalogDirectory
	Observer     application.BookingObserver
	GridCacheTTL time.Duration
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewBookingService builds a booking service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	idGen, now := f.defaults(BookingIDPrefix, deps.IDGenerator, deps.Now)
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	var opts []application.BookingServiceOption
	if deps.Catalog != nil {
		opts = append(opts, application.WithCatalogDirectory(deps.Catalog))
	}
	if deps.Observer != nil {
		opts = append(opts, application.WithBookingObserver(deps.Observer))
	}
	if deps.GridCacheTTL != 0 {
		opts = append(opts, application.WithGridCacheTTL(deps.GridCacheTTL))
	}
	return application.NewBookingServiceWithLogger(deps.Bookings, locker, idGen, now, deps.Logger, opts...)
}

// ClassroomServiceDeps captures dependencies for constructing a classroom service.
type ClassroomServiceDeps struct {
	Classrooms  application.ClassroomRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewClassroomService builds a classroom service using the supplied dependencies.
func (f *ServiceFactory) NewClassroomService(deps ClassroomServiceDeps) *application.ClassroomService {
	idGen, now := f.defaults(ClassroomIDPrefix, deps.IDGenerator, deps.Now)
	return application.NewClassroomServiceWithLogger(deps.Classrooms, idGen, now, deps.Logger)
}

// TeacherServiceDeps captures dependencies for constructing a teacher service.
type TeacherServiceDeps struct {
	Teachers    application.TeacherRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewTeacherService builds a teacher service using the supplied dependencies.
func (f *ServiceFactory) NewTeacherService(deps TeacherServiceDeps) *application.TeacherService {
	idGen, now := f.defaults(TeacherIDPrefix, deps.IDGenerator, deps.Now)
	return application.NewTeacherServiceWithLogger(deps.Teachers, idGen, now, deps.Logger)
}

// SubjectServiceDeps captures dependencies for constructing a subject service.
type SubjectServiceDeps struct {
	Subjects    application.SubjectRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewSubjectService builds a subject service using the supplied dependencies.
func (f *ServiceFactory) NewSubjectService(deps SubjectServiceDeps) *application.SubjectService {
	idGen, now := f.defaults(SubjectIDPrefix, deps.IDGenerator, deps.Now)
	return application.NewSubjectServiceWithLogger(deps.Subjects, idGen, now, deps.Logger)
}

// AttendanceServiceDeps captures dependencies for constructing an attendance service.
type AttendanceServiceDeps struct {
	Records     application.AttendanceRepository
	Teachers    application.TeacherDirectory
	Bookings    application.BookingLister
	Location    *time.Location
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAttendanceService builds an attendance service using the supplied dependencies.
func (f *ServiceFactory) NewAttendanceService(deps AttendanceServiceDeps) *application.AttendanceService {
	idGen, now := f.defaults(AttendanceIDPrefix, deps.IDGenerator, deps.Now)
	return application.NewAttendanceServiceWithLogger(
		deps.Records,
		deps.Teachers,
		deps.Bookings,
		recurrence.NewEngine(deps.Location),
		idGen,
		now,
		deps.Logger,
	)
}
