package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/coaching-scheduler/internal/lock"
	"github.com/example/coaching-scheduler/internal/persistence"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

// BookingRepository captures the persistence operations needed by the service.
type BookingRepository interface {
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	WithinTransaction(ctx context.Context, fn func(tx BookingTransaction) error) error
}

// BookingTransaction is the write side of the repository. The conflict check
// and the write it guards run on the same transaction.
type BookingTransaction interface {
	LockResources(ctx context.Context, keys ...string) error
	ListActiveBookingsForResources(ctx context.Context, day scheduler.DayOfWeek, teacherID, classroomID string) ([]Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	TeacherID       string
	ClassroomID     string
	SubjectID       string
	Day             *scheduler.DayOfWeek
	IncludeInactive bool
}

// CatalogDirectory reports which booking references do not exist. It returns
// the input field names of the missing entries.
type CatalogDirectory interface {
	MissingReferences(ctx context.Context, subjectID, teacherID, classroomID string) ([]string, error)
}

// BookingObserver is notified about booking writes and rejected writes.
type BookingObserver interface {
	BookingCreated()
	BookingConflict(types []scheduler.ConflictType)
}

// BookingServiceOption configures optional BookingService collaborators.
type BookingServiceOption func(*BookingService)

// DefaultGridCacheTTL is how long assembled week grids are reused unless
// WithGridCacheTTL says otherwise.
const DefaultGridCacheTTL = 30 * time.Second

// WithGridCacheTTL sets how long assembled week grids are reused. A zero or
// negative ttl disables the cache.
func WithGridCacheTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.gridTTL = ttl
	}
}

// WithBookingObserver registers an observer for booking events.
func WithBookingObserver(observer BookingObserver) BookingServiceOption {
	return func(s *BookingService) {
		s.observer = observer
	}
}

// WithCatalogDirectory enables reference checks before writes.
func WithCatalogDirectory(catalog CatalogDirectory) BookingServiceOption {
	return func(s *BookingService) {
		s.catalog = catalog
	}
}

// BookingService validates bookings and guarantees that no two active
// bookings overlap on the same teacher or classroom.
type BookingService struct {
	bookings    BookingRepository
	locker      lock.Locker
	catalog     CatalogDirectory
	observer    BookingObserver
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	gridTTL     time.Duration
	grids       *gridCache
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(bookings BookingRepository, locker lock.Locker, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, locker, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
// A nil locker relies on the repository transaction alone for serialization.
func NewBookingServiceWithLogger(bookings BookingRepository, locker lock.Locker, idGenerator func() string, now func() time.Time, logger *slog.Logger, opts ...BookingServiceOption) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	s := &BookingService{
		bookings:    bookings,
		locker:      locker,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		gridTTL:     DefaultGridCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.grids = newGridCache(s.gridTTL, 0, now)
	return s
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the input and stores a new booking unless it
// conflicts with an active booking of the same teacher or classroom.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.ActorID,
		"teacher_id", params.Input.TeacherID,
		"classroom_id", params.Input.ClassroomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	var fields bookingFields
	fields, err = parseBookingInput(params.Input)
	if err != nil {
		return
	}
	if err = s.ensureReferencesExist(ctx, params.Input); err != nil {
		return
	}

	createdAt := s.now()
	candidate := Booking{
		ID:          s.idGenerator(),
		SubjectID:   fields.subjectID,
		TeacherID:   fields.teacherID,
		ClassroomID: fields.classroomID,
		Day:         fields.day,
		Start:       fields.start,
		End:         fields.end,
		IsActive:    boolOrDefault(params.Input.IsActive, true),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	var keys []string
	if candidate.IsActive {
		keys = lock.BookingKeys(candidate.Slot())
	}
	booking, err = s.writeGuarded(ctx, keys,
		func(BookingTransaction) (Booking, bool, error) { return candidate, true, nil },
		func(tx BookingTransaction, b Booking) (Booking, error) { return tx.CreateBooking(ctx, b) },
	)
	if err != nil {
		return
	}

	if s.observer != nil {
		s.observer.BookingCreated()
	}
	return
}

// UpdateBooking replaces the fields of an existing booking. The booking is
// never reported as conflicting with itself. When the result is inactive no
// conflict check runs.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"principal_id", params.Principal.ActorID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	var fields bookingFields
	fields, err = parseBookingInput(params.Input)
	if err != nil {
		return
	}
	if err = s.ensureReferencesExist(ctx, params.Input); err != nil {
		return
	}

	// Locks follow the requested resources; an omitted is_active may still
	// resolve to active from the stored row.
	var keys []string
	if boolOrDefault(params.Input.IsActive, true) {
		keys = lock.BookingKeys(scheduler.Booking{TeacherID: fields.teacherID, ClassroomID: fields.classroomID, Day: fields.day})
	}
	booking, err = s.writeGuarded(ctx, keys,
		func(tx BookingTransaction) (Booking, bool, error) {
			current, err := tx.GetBooking(ctx, params.BookingID)
			if err != nil {
				return Booking{}, false, err
			}
			updated := current
			updated.SubjectID = fields.subjectID
			updated.TeacherID = fields.teacherID
			updated.ClassroomID = fields.classroomID
			updated.Day = fields.day
			updated.Start = fields.start
			updated.End = fields.end
			updated.IsActive = boolOrDefault(params.Input.IsActive, current.IsActive)
			updated.UpdatedAt = s.now()
			return updated, true, nil
		},
		func(tx BookingTransaction, b Booking) (Booking, error) { return tx.UpdateBooking(ctx, b) },
	)
	return
}

// SetBookingActive activates or deactivates a booking. Activation passes the
// same conflict gate as a create; deactivation never conflicts.
func (s *BookingService) SetBookingActive(ctx context.Context, params SetBookingActiveParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetBookingActive",
		"principal_id", params.Principal.ActorID,
		"booking_id", params.BookingID,
		"active", params.Active,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change booking state", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking state changed")
	}()

	for attempt := 1; ; attempt++ {
		// The stored row picks the locks to take; the transaction re-reads it
		// and fails with errLockKeysChanged if it moved in between.
		var snapshot Booking
		snapshot, err = s.bookings.GetBooking(ctx, params.BookingID)
		if err != nil {
			err = mapBookingRepoError(err)
			return
		}
		var keys []string
		if params.Active {
			keys = lock.BookingKeys(snapshot.Slot())
		}

		booking, err = s.writeGuarded(ctx, keys,
			func(tx BookingTransaction) (Booking, bool, error) {
				current, err := tx.GetBooking(ctx, params.BookingID)
				if err != nil {
					return Booking{}, false, err
				}
				if current.IsActive == params.Active {
					return current, false, nil
				}
				current.IsActive = params.Active
				current.UpdatedAt = s.now()
				return current, true, nil
			},
			func(tx BookingTransaction, b Booking) (Booking, error) { return tx.UpdateBooking(ctx, b) },
		)
		if errors.Is(err, errLockKeysChanged) {
			if attempt < maxLockAttempts {
				continue
			}
			err = mapBookingRepoError(err)
		}
		return
	}
}

// DeleteBooking removes a booking. Freeing a slot never conflicts.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, bookingID string) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBooking",
		"principal_id", principal.ActorID,
		"booking_id", bookingID,
	)

	if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		err = mapBookingRepoError(err)
		logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.grids.Invalidate()

	logger.InfoContext(ctx, "booking deleted")
	return nil
}

// GetBooking returns a single booking.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, ErrNotFound
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// ListBookings returns bookings ordered by day, start time, then ID.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListBookings",
		"principal_id", params.Principal.ActorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "bookings listed")
	}()

	filter := BookingRepositoryFilter{
		TeacherID:       strings.TrimSpace(params.TeacherID),
		ClassroomID:     strings.TrimSpace(params.ClassroomID),
		SubjectID:       strings.TrimSpace(params.SubjectID),
		IncludeInactive: params.IncludeInactive,
	}
	if strings.TrimSpace(params.Day) != "" {
		day, parseErr := scheduler.ParseDayOfWeek(params.Day)
		if parseErr != nil {
			vErr := &ValidationError{}
			vErr.add("day", dayMessage)
			err = vErr
			return
		}
		filter.Day = &day
	}

	var raw []Booking
	raw, err = s.bookings.ListBookings(ctx, filter)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	bookings = make([]Booking, len(raw))
	copy(bookings, raw)
	sortBookings(bookings)
	return
}

// CheckConflicts reports the conflicts the input would cause without writing
// anything. An inactive candidate never conflicts.
func (s *BookingService) CheckConflicts(ctx context.Context, params CheckConflictsParams) (conflicts []scheduler.Conflict, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckConflicts",
		"principal_id", params.Principal.ActorID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check conflicts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflict_count", len(conflicts)).InfoContext(ctx, "conflicts checked")
	}()

	var fields bookingFields
	fields, err = parseBookingInput(params.Input)
	if err != nil {
		return
	}
	if !boolOrDefault(params.Input.IsActive, true) {
		return nil, nil
	}

	candidate := scheduler.Booking{
		ID:          strings.TrimSpace(params.BookingID),
		SubjectID:   fields.subjectID,
		TeacherID:   fields.teacherID,
		ClassroomID: fields.classroomID,
		Day:         fields.day,
		Start:       fields.start,
		End:         fields.end,
		IsActive:    true,
	}

	day := fields.day
	var byTeacher, byClassroom []Booking
	byTeacher, err = s.bookings.ListBookings(ctx, BookingRepositoryFilter{TeacherID: candidate.TeacherID, Day: &day})
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	byClassroom, err = s.bookings.ListBookings(ctx, BookingRepositoryFilter{ClassroomID: candidate.ClassroomID, Day: &day})
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	existing := mergeBookings(byTeacher, byClassroom)
	sortBookings(existing)
	conflicts = scheduler.DetectConflicts(toSlots(existing), candidate)
	return
}

// WeekGrid returns the weekly timetable of active bookings, optionally scoped
// to a teacher and/or a classroom.
func (s *BookingService) WeekGrid(ctx context.Context, params GridParams) (timetable WeekTimetable, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "WeekGrid",
		"principal_id", params.Principal.ActorID,
		"teacher_id", params.TeacherID,
		"classroom_id", params.ClassroomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assemble week grid", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_count", timetable.Total).DebugContext(ctx, "week grid assembled")
	}()

	teacherID := strings.TrimSpace(params.TeacherID)
	classroomID := strings.TrimSpace(params.ClassroomID)
	key := buildGridCacheKey(teacherID, classroomID)

	grid, ok := s.grids.Get(key)
	if !ok {
		generation := s.grids.Generation()
		var bookings []Booking
		if s.bookings != nil {
			bookings, err = s.bookings.ListBookings(ctx, BookingRepositoryFilter{TeacherID: teacherID, ClassroomID: classroomID})
			if err != nil {
				err = mapBookingRepoError(err)
				return
			}
		}
		slots := toSlots(bookings)
		scheduler.SortBookings(slots)
		grid = scheduler.AssembleWeekGrid(slots)
		s.grids.Store(key, grid, generation)
	}

	timetable = WeekTimetable{
		Days:  grid.Days(),
		Slots: grid.Slots(),
		Grid:  grid,
		Total: grid.Count(),
	}
	return
}

// MyTimetable returns the week grid of the calling teacher.
func (s *BookingService) MyTimetable(ctx context.Context, principal Principal) (WeekTimetable, error) {
	if strings.TrimSpace(principal.TeacherID) == "" {
		return WeekTimetable{}, ErrUnauthorized
	}
	return s.WeekGrid(ctx, GridParams{Principal: principal, TeacherID: principal.TeacherID})
}

// maxLockAttempts bounds how often a write re-picks its locks after the row
// it depends on moved to other resources.
const maxLockAttempts = 3

var errLockKeysChanged = errors.New("booking resources changed while acquiring locks")

// bookingBuilder derives the row to write from the state seen by the
// transaction. It reports false when nothing needs to be written.
type bookingBuilder func(tx BookingTransaction) (Booking, bool, error)

// writeGuarded takes keys on the locker, then builds and writes the row in one
// repository transaction. An active row is rejected when an overlapping active
// booking exists; its teacher-day and classroom-day keys must be among keys,
// otherwise errLockKeysChanged is returned unmapped.
func (s *BookingService) writeGuarded(ctx context.Context, keys []string, build bookingBuilder, write func(tx BookingTransaction, b Booking) (Booking, error)) (Booking, error) {
	if len(keys) > 0 && s.locker != nil {
		release, err := s.locker.Acquire(ctx, keys...)
		if err != nil {
			return Booking{}, fmt.Errorf("%w: acquire resource lock: %w", ErrPersistenceFailure, err)
		}
		defer release()
	}

	var (
		persisted Booking
		written   bool
	)
	err := s.bookings.WithinTransaction(ctx, func(tx BookingTransaction) error {
		candidate, changed, err := build(tx)
		if err != nil {
			return err
		}
		if !changed {
			persisted = candidate
			return nil
		}

		if candidate.IsActive {
			needed := lock.BookingKeys(candidate.Slot())
			if !holdsKeys(keys, needed) {
				return errLockKeysChanged
			}
			if err := tx.LockResources(ctx, needed...); err != nil {
				return err
			}
			existing, err := tx.ListActiveBookingsForResources(ctx, candidate.Day, candidate.TeacherID, candidate.ClassroomID)
			if err != nil {
				return err
			}
			if conflicts := scheduler.DetectConflicts(toSlots(existing), candidate.Slot()); len(conflicts) > 0 {
				return &ConflictError{Conflicts: conflicts}
			}
		}

		persisted, err = write(tx, candidate)
		written = err == nil
		return err
	})
	if err != nil {
		if errors.Is(err, errLockKeysChanged) {
			return Booking{}, err
		}
		var cErr *ConflictError
		if errors.As(err, &cErr) && s.observer != nil {
			s.observer.BookingConflict(cErr.Types())
		}
		return Booking{}, mapBookingRepoError(err)
	}

	if written {
		s.grids.Invalidate()
	}
	return persisted, nil
}

func holdsKeys(held, needed []string) bool {
	for _, key := range needed {
		found := false
		for _, h := range held {
			if h == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *BookingService) ensureReferencesExist(ctx context.Context, input BookingInput) error {
	if s.catalog == nil {
		return nil
	}
	missing, err := s.catalog.MissingReferences(ctx,
		strings.TrimSpace(input.SubjectID),
		strings.TrimSpace(input.TeacherID),
		strings.TrimSpace(input.ClassroomID),
	)
	if err != nil {
		return mapBookingRepoError(err)
	}
	if len(missing) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	for _, field := range missing {
		vErr.add(field, "does not exist")
	}
	return vErr
}

const dayMessage = "day must be one of monday, tuesday, wednesday, thursday, friday, saturday, sunday"

type bookingFields struct {
	subjectID   string
	teacherID   string
	classroomID string
	day         scheduler.DayOfWeek
	start       scheduler.ClockTime
	end         scheduler.ClockTime
}

// parseBookingInput returns a *ValidationError for malformed fields and
// ErrInvalidInterval when well formed times do not describe a positive range.
func parseBookingInput(input BookingInput) (bookingFields, error) {
	vErr := &ValidationError{}
	fields := bookingFields{
		subjectID:   strings.TrimSpace(input.SubjectID),
		teacherID:   strings.TrimSpace(input.TeacherID),
		classroomID: strings.TrimSpace(input.ClassroomID),
	}

	if fields.subjectID == "" {
		vErr.add("subject_id", "subject_id is required")
	}
	if fields.teacherID == "" {
		vErr.add("teacher_id", "teacher_id is required")
	}
	if fields.classroomID == "" {
		vErr.add("classroom_id", "classroom_id is required")
	}

	day, err := scheduler.ParseDayOfWeek(input.Day)
	if err != nil {
		vErr.add("day", dayMessage)
	}
	fields.day = day

	start, err := scheduler.ParseClockTime(input.Start)
	if err != nil {
		vErr.add("start_time", "start_time must be HH:MM")
	}
	fields.start = start

	end, err := scheduler.ParseClockTime(input.End)
	if err != nil {
		vErr.add("end_time", "end_time must be HH:MM")
	}
	fields.end = end

	if vErr.HasErrors() {
		return bookingFields{}, vErr
	}
	if span := (scheduler.Booking{Start: fields.start, End: fields.end}); !span.ValidInterval() {
		return bookingFields{}, ErrInvalidInterval
	}
	return fields, nil
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return cErr
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	if errors.Is(err, ErrInvalidInterval) || errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("references", "subject, teacher or classroom does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidInterval
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}

func toSlots(bookings []Booking) []scheduler.Booking {
	slots := make([]scheduler.Booking, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, b.Slot())
	}
	return slots
}

func mergeBookings(groups ...[]Booking) []Booking {
	seen := make(map[string]struct{})
	var merged []Booking
	for _, group := range groups {
		for _, b := range group {
			if _, ok := seen[b.ID]; ok {
				continue
			}
			seen[b.ID] = struct{}{}
			merged = append(merged, b)
		}
	}
	return merged
}

func sortBookings(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
