package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStoreTimeout bounds each store round trip when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// Manager owns the validate, conflict-check and persist sequence for weekly
// intervals and derives bookable slots from them.
type Manager struct {
	store        AvailabilityStore
	validator    *Validator
	slots        *SlotGenerator
	log          zerolog.Logger
	storeTimeout time.Duration
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithStoreTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.storeTimeout = d
		}
	}
}

func WithSlotGenerator(g *SlotGenerator) Option {
	return func(m *Manager) { m.slots = g }
}

func NewManager(store AvailabilityStore, v *Validator, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		validator:    v,
		slots:        NewSlotGenerator(DefaultSlotMinutes),
		log:          zerolog.Nop(),
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Policy() Policy { return m.validator.Policy() }

func (m *Manager) DefaultSlotMinutes() int { return m.slots.DefaultMinutes }

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.storeTimeout)
}

// -- Mutations --

// Create validates and stores a new interval for the doctor.
func (m *Manager) Create(ctx context.Context, doctorID int64, day int, start, end string) (*WeeklyInterval, error) {
	const op = "create interval"
	iv, err := m.validator.Validate(day, start, end)
	if err != nil {
		return nil, m.reject(op, doctorID, err)
	}
	w := &WeeklyInterval{DoctorID: doctorID, DayOfWeek: day, Start: iv.Start, End: iv.End}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	err = m.store.Atomically(ctx, doctorID, func(ctx context.Context, tx AvailabilityStore) error {
		existing, err := tx.FetchIntervals(ctx, doctorID)
		if err != nil {
			return storeFailure(op, err)
		}
		if hits := Conflicts(doctorID, day, iv, existing, nil); len(hits) > 0 {
			return conflictError(op, hits[0])
		}
		return storeFailure(op, tx.InsertInterval(ctx, w))
	})
	if err != nil {
		return nil, m.reject(op, doctorID, err)
	}

	m.log.Info().Int64("doctor_id", doctorID).Str("schedule_id", w.ID.String()).
		Int("day_of_week", day).Str("start", w.Start.String()).Str("end", w.End.String()).
		Msg("weekly interval created")
	return w, nil
}

// Update merges the supplied fields over the stored interval and re-runs
// validation and conflict detection, ignoring the interval's own old value.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, p Patch) (*WeeklyInterval, error) {
	const op = "update interval"
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	current, err := m.store.FetchIntervalByID(ctx, id)
	if err != nil {
		return nil, m.reject(op, 0, err)
	}
	if current == nil {
		return nil, m.reject(op, 0, newError(KindNotFound, op, "interval %s not found", id))
	}

	var updated WeeklyInterval
	err = m.store.Atomically(ctx, current.DoctorID, func(ctx context.Context, tx AvailabilityStore) error {
		cur, err := tx.FetchIntervalByID(ctx, id)
		if err != nil {
			return storeFailure(op, err)
		}
		if cur == nil {
			return newError(KindNotFound, op, "interval %s not found", id)
		}

		day := p.DayOfWeek.Or(cur.DayOfWeek)
		iv, err := m.validator.Validate(day, p.Start.Or(cur.Start.String()), p.End.Or(cur.End.String()))
		if err != nil {
			return err
		}

		existing, err := tx.FetchIntervals(ctx, cur.DoctorID)
		if err != nil {
			return storeFailure(op, err)
		}
		if hits := Conflicts(cur.DoctorID, day, iv, existing, &id); len(hits) > 0 {
			return conflictError(op, hits[0])
		}

		updated = *cur
		updated.DayOfWeek = day
		updated.Start = iv.Start
		updated.End = iv.End
		n, err := tx.UpdateInterval(ctx, &updated)
		if err != nil {
			return storeFailure(op, err)
		}
		if n == 0 {
			return newError(KindNotFound, op, "interval %s not found", id)
		}
		return nil
	})
	if err != nil {
		return nil, m.reject(op, current.DoctorID, err)
	}

	m.log.Info().Int64("doctor_id", updated.DoctorID).Str("schedule_id", id.String()).
		Int("day_of_week", updated.DayOfWeek).Str("start", updated.Start.String()).Str("end", updated.End.String()).
		Msg("weekly interval updated")
	return &updated, nil
}

// Delete removes an interval. Deleting an id that does not exist, including
// one already deleted, is NotFound.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "delete interval"
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	n, err := m.store.DeleteInterval(ctx, id)
	if err != nil {
		return m.reject(op, 0, err)
	}
	if n == 0 {
		return m.reject(op, 0, newError(KindNotFound, op, "interval %s not found", id))
	}
	m.log.Info().Str("schedule_id", id.String()).Msg("weekly interval deleted")
	return nil
}

// -- Queries --

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*WeeklyInterval, error) {
	const op = "get interval"
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	w, err := m.store.FetchIntervalByID(ctx, id)
	if err != nil {
		return nil, m.reject(op, 0, err)
	}
	if w == nil {
		return nil, newError(KindNotFound, op, "interval %s not found", id)
	}
	return w, nil
}

// ListForDoctor returns the doctor's intervals ordered by day, then start.
func (m *Manager) ListForDoctor(ctx context.Context, doctorID int64) ([]WeeklyInterval, error) {
	const op = "list intervals"
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	items, err := m.store.FetchIntervals(ctx, doctorID)
	if err != nil {
		return nil, m.reject(op, doctorID, err)
	}
	sortWeekly(items)
	if items == nil {
		items = []WeeklyInterval{}
	}
	return items, nil
}

// WeeklyView groups the doctor's intervals by day. Every day 1..7 is present,
// days without availability map to an empty list.
func (m *Manager) WeeklyView(ctx context.Context, doctorID int64) (map[int][]WeeklyInterval, error) {
	items, err := m.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	view := make(map[int][]WeeklyInterval, MaxDay)
	for d := MinDay; d <= MaxDay; d++ {
		view[d] = []WeeklyInterval{}
	}
	for _, w := range items {
		view[w.DayOfWeek] = append(view[w.DayOfWeek], w)
	}
	return view, nil
}

// SlotsForDay lists the bookable starts for a day of the recurring week.
func (m *Manager) SlotsForDay(ctx context.Context, doctorID int64, day, durationMinutes int) ([]TimeOfDay, error) {
	const op = "list slots"
	if day < MinDay || day > MaxDay {
		return nil, newError(KindInvalidDay, op, "day_of_week must be between %d and %d, got %d", MinDay, MaxDay, day)
	}
	if err := checkDuration(op, durationMinutes); err != nil {
		return nil, err
	}
	items, err := m.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return m.slots.Generate(intervalsOn(items, day), durationMinutes)
}

// SlotsForDate lists the bookable starts on a calendar date. Bookings already
// taken on that date are removed from the doctor's availability first.
func (m *Manager) SlotsForDate(ctx context.Context, doctorID int64, date time.Time, durationMinutes int) ([]TimeOfDay, error) {
	const op = "list slots"
	if err := checkDuration(op, durationMinutes); err != nil {
		return nil, err
	}
	items, err := m.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return m.slotsOn(ctx, op, doctorID, items, date, durationMinutes)
}

// MaxSearchDays caps how many calendar days one SearchSlots call may cover.
const MaxSearchDays = 31

// SlotSearch selects the calendar days From..To, both inclusive.
type SlotSearch struct {
	From     time.Time
	To       time.Time
	Duration int
}

// DateSlots is the free slots of one calendar day.
type DateSlots struct {
	Date      string      `json:"date"`
	DayOfWeek int         `json:"day_of_week"`
	Slots     []TimeOfDay `json:"slots"`
}

// SearchSlots walks a date range and returns every day that still has at
// least one bookable slot, in date order.
func (m *Manager) SearchSlots(ctx context.Context, doctorID int64, q SlotSearch) ([]DateSlots, error) {
	const op = "search slots"
	if err := checkDuration(op, q.Duration); err != nil {
		return nil, err
	}
	from, to := truncateDay(q.From), truncateDay(q.To)
	if to.Before(from) {
		return nil, newError(KindInvalidDateRange, op, "to %s is before from %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxSearchDays {
		return nil, newError(KindInvalidDateRange, op, "range covers %d days, at most %d allowed", days, MaxSearchDays)
	}

	items, err := m.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	out := []DateSlots{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		slots, err := m.slotsOn(ctx, op, doctorID, items, d, q.Duration)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		out = append(out, DateSlots{Date: d.Format(dateLayout), DayOfWeek: ISOWeekday(d), Slots: slots})
	}
	return out, nil
}

// slotsOn generates the date's slots from the doctor's intervals. Bookings
// are only fetched when the weekday has availability.
func (m *Manager) slotsOn(ctx context.Context, op string, doctorID int64, items []WeeklyInterval, date time.Time, durationMinutes int) ([]TimeOfDay, error) {
	free := intervalsOn(items, ISOWeekday(date))
	if len(free) == 0 {
		return []TimeOfDay{}, nil
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	bookings, err := m.store.FetchBookings(ctx, doctorID, date)
	if err != nil {
		return nil, m.reject(op, doctorID, err)
	}
	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, b.Interval())
	}
	return m.slots.Generate(Subtract(free, busy), durationMinutes)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ISOWeekday maps a date to 1=Monday .. 7=Sunday.
func ISOWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func (m *Manager) reject(op string, doctorID int64, err error) error {
	err = storeFailure(op, err)
	kind := KindOf(err)
	if kind == KindStoreFailure {
		m.log.Error().Err(err).Int64("doctor_id", doctorID).Str("op", op).Msg("scheduling store failure")
	} else {
		m.log.Debug().Err(err).Int64("doctor_id", doctorID).Str("op", op).Str("kind", kind.String()).Msg("scheduling request rejected")
	}
	return err
}

func conflictError(op string, hit WeeklyInterval) error {
	return newError(KindConflict, op, "overlaps existing interval %s (%s-%s)", hit.ID, hit.Start, hit.End)
}

func intervalsOn(items []WeeklyInterval, day int) []Interval {
	var out []Interval
	for _, w := range items {
		if w.DayOfWeek == day {
			out = append(out, w.Interval())
		}
	}
	return out
}

func sortWeekly(items []WeeklyInterval) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DayOfWeek != items[j].DayOfWeek {
			return items[i].DayOfWeek < items[j].DayOfWeek
		}
		return items[i].Start < items[j].Start
	})
}
