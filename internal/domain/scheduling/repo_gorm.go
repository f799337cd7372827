package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// intervalRecord is the gorm row for weekly_interval. Times are stored as
// zero-padded HH:MM:SS text so they order correctly on every dialect.
type intervalRecord struct {
	ID        string    `gorm:"primaryKey;type:char(36)"`
	DoctorID  int64     `gorm:"not null;index:idx_weekly_interval_doctor_day,priority:1"`
	DayOfWeek int       `gorm:"not null;index:idx_weekly_interval_doctor_day,priority:2"`
	StartTime string    `gorm:"type:varchar(8);not null"`
	EndTime   string    `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (intervalRecord) TableName() string { return "weekly_interval" }

type appointmentRecord struct {
	ID              string `gorm:"primaryKey;type:char(36)"`
	DoctorID        int64  `gorm:"not null;index:idx_appointment_doctor_date,priority:1"`
	PatientID       int64  `gorm:"not null"`
	AppointmentDate string `gorm:"type:varchar(10);not null;index:idx_appointment_doctor_date,priority:2"`
	StartTime       string `gorm:"type:varchar(8);not null"`
	EndTime         string `gorm:"type:varchar(8);not null"`
	Status          string `gorm:"type:varchar(20);not null;default:scheduled"`
	CreatedAt       time.Time
}

func (appointmentRecord) TableName() string { return "appointment" }

func clockText(t TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (r intervalRecord) toDomain() (WeeklyInterval, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return WeeklyInterval{}, fmt.Errorf("weekly_interval %q: %w", r.ID, err)
	}
	start, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return WeeklyInterval{}, fmt.Errorf("weekly_interval %s start: %w", r.ID, err)
	}
	end, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return WeeklyInterval{}, fmt.Errorf("weekly_interval %s end: %w", r.ID, err)
	}
	return WeeklyInterval{
		ID: id, DoctorID: r.DoctorID, DayOfWeek: r.DayOfWeek,
		Start: start, End: end, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}, nil
}

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore returns an AvailabilityStore for MySQL deployments. It also
// runs on SQLite, which the tests use.
func NewGormStore(db *gorm.DB) AvailabilityStore {
	return &gormStore{db: db}
}

// AutoMigrateGorm creates or updates the tables the gorm store needs.
func AutoMigrateGorm(db *gorm.DB) error {
	return db.AutoMigrate(&intervalRecord{}, &appointmentRecord{})
}

func (s *gormStore) FetchIntervals(ctx context.Context, doctorID int64) ([]WeeklyInterval, error) {
	var recs []intervalRecord
	if err := s.db.WithContext(ctx).Where("doctor_id = ?", doctorID).
		Order("day_of_week, start_time").Find(&recs).Error; err != nil {
		return nil, err
	}
	items := make([]WeeklyInterval, 0, len(recs))
	for _, r := range recs {
		w, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, nil
}

func (s *gormStore) FetchIntervalByID(ctx context.Context, id uuid.UUID) (*WeeklyInterval, error) {
	var recs []intervalRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id.String()).Limit(1).Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	w, err := recs[0].toDomain()
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *gormStore) InsertInterval(ctx context.Context, w *WeeklyInterval) error {
	w.ID = uuid.New()
	rec := intervalRecord{
		ID:        w.ID.String(),
		DoctorID:  w.DoctorID,
		DayOfWeek: w.DayOfWeek,
		StartTime: clockText(w.Start),
		EndTime:   clockText(w.End),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	w.CreatedAt = rec.CreatedAt
	w.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *gormStore) UpdateInterval(ctx context.Context, w *WeeklyInterval) (int64, error) {
	now := s.db.NowFunc()
	res := s.db.WithContext(ctx).Model(&intervalRecord{}).Where("id = ?", w.ID.String()).
		Updates(map[string]interface{}{
			"day_of_week": w.DayOfWeek,
			"start_time":  clockText(w.Start),
			"end_time":    clockText(w.End),
			"updated_at":  now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		w.UpdatedAt = now
		return res.RowsAffected, nil
	}
	// MySQL reports changed rows, not matched rows, so an update that
	// rewrites identical values affects nothing.
	var n int64
	if err := s.db.WithContext(ctx).Model(&intervalRecord{}).Where("id = ?", w.ID.String()).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *gormStore) DeleteInterval(ctx context.Context, id uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&intervalRecord{})
	return res.RowsAffected, res.Error
}

func (s *gormStore) FetchBookings(ctx context.Context, doctorID int64, date time.Time) ([]Booking, error) {
	var recs []appointmentRecord
	if err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND appointment_date = ? AND status <> ?", doctorID, date.Format(dateLayout), "cancelled").
		Order("start_time").Find(&recs).Error; err != nil {
		return nil, err
	}
	items := make([]Booking, 0, len(recs))
	for _, r := range recs {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("appointment %q: %w", r.ID, err)
		}
		day, err := time.Parse(dateLayout, r.AppointmentDate)
		if err != nil {
			return nil, fmt.Errorf("appointment %s date: %w", r.ID, err)
		}
		start, err := ParseTimeOfDay(r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s start: %w", r.ID, err)
		}
		end, err := ParseTimeOfDay(r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s end: %w", r.ID, err)
		}
		items = append(items, Booking{ID: id, DoctorID: r.DoctorID, Date: day, Start: start, End: end})
	}
	return items, nil
}

// Atomically locks the doctor's rows (and, on InnoDB, the index gap around
// them) for the rest of the transaction. SQLite serializes writers on its
// own and does not support FOR UPDATE.
func (s *gormStore) Atomically(ctx context.Context, doctorID int64, fn func(ctx context.Context, tx AvailabilityStore) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "mysql" {
			var locked []intervalRecord
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("doctor_id = ?", doctorID).Select("id").Find(&locked).Error; err != nil {
				return err
			}
		}
		return fn(ctx, &gormStore{db: tx, inTx: true})
	})
}
