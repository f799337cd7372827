package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AvailabilityStore persists weekly intervals and exposes the bookings the
// slot listing needs.
type AvailabilityStore interface {
	FetchIntervals(ctx context.Context, doctorID int64) ([]WeeklyInterval, error)
	// FetchIntervalByID returns nil, nil when no interval has that id.
	FetchIntervalByID(ctx context.Context, id uuid.UUID) (*WeeklyInterval, error)
	// InsertInterval assigns w.ID and the timestamps.
	InsertInterval(ctx context.Context, w *WeeklyInterval) error
	UpdateInterval(ctx context.Context, w *WeeklyInterval) (int64, error)
	DeleteInterval(ctx context.Context, id uuid.UUID) (int64, error)
	FetchBookings(ctx context.Context, doctorID int64, date time.Time) ([]Booking, error)

	// Atomically runs fn against a store bound to one transaction in which
	// the doctor's intervals cannot be changed by anyone else. The
	// transaction commits when fn returns nil.
	Atomically(ctx context.Context, doctorID int64, fn func(ctx context.Context, tx AvailabilityStore) error) error
}
