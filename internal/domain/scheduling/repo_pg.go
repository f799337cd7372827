package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/agenda/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type pgStore struct {
	pool *pgxpool.Pool
	q    queryable
	inTx bool
}

// NewPostgresStore returns an AvailabilityStore backed by the weekly_interval
// and appointment tables.
func NewPostgresStore(pool *pgxpool.Pool) AvailabilityStore {
	return &pgStore{pool: pool, q: pool}
}

const intervalCols = `id, doctor_id, day_of_week, start_time, end_time, created_at, updated_at`

func scanInterval(row pgx.Row) (*WeeklyInterval, error) {
	var w WeeklyInterval
	var start, end pgtype.Time
	if err := row.Scan(&w.ID, &w.DoctorID, &w.DayOfWeek, &start, &end, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Start = fromPGTime(start)
	w.End = fromPGTime(end)
	return &w, nil
}

func fromPGTime(t pgtype.Time) TimeOfDay {
	return FromDuration(time.Duration(t.Microseconds) * time.Microsecond)
}

func toPGTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Duration().Microseconds(), Valid: true}
}

func (s *pgStore) FetchIntervals(ctx context.Context, doctorID int64) ([]WeeklyInterval, error) {
	rows, err := s.q.Query(ctx, `SELECT `+intervalCols+` FROM weekly_interval
		WHERE doctor_id = $1 ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WeeklyInterval
	for rows.Next() {
		w, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *w)
	}
	return items, rows.Err()
}

func (s *pgStore) FetchIntervalByID(ctx context.Context, id uuid.UUID) (*WeeklyInterval, error) {
	w, err := scanInterval(s.q.QueryRow(ctx, `SELECT `+intervalCols+` FROM weekly_interval WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (s *pgStore) InsertInterval(ctx context.Context, w *WeeklyInterval) error {
	w.ID = uuid.New()
	err := s.q.QueryRow(ctx, `
		INSERT INTO weekly_interval (id, doctor_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		w.ID, w.DoctorID, w.DayOfWeek, toPGTime(w.Start), toPGTime(w.End)).Scan(&w.CreatedAt, &w.UpdatedAt)
	return classifyPG("insert interval", err)
}

func (s *pgStore) UpdateInterval(ctx context.Context, w *WeeklyInterval) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE weekly_interval SET day_of_week = $2, start_time = $3, end_time = $4, updated_at = NOW()
		WHERE id = $1`,
		w.ID, w.DayOfWeek, toPGTime(w.Start), toPGTime(w.End))
	if err != nil {
		return 0, classifyPG("update interval", err)
	}
	return tag.RowsAffected(), nil
}

func (s *pgStore) DeleteInterval(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM weekly_interval WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *pgStore) FetchBookings(ctx context.Context, doctorID int64, date time.Time) ([]Booking, error) {
	day := pgtype.Date{Time: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
	rows, err := s.q.Query(ctx, `
		SELECT id, doctor_id, appointment_date, start_time, end_time FROM appointment
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		ORDER BY start_time`, doctorID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Booking
	for rows.Next() {
		var b Booking
		var start, end pgtype.Time
		if err := rows.Scan(&b.ID, &b.DoctorID, &b.Date, &start, &end); err != nil {
			return nil, err
		}
		b.Start = fromPGTime(start)
		b.End = fromPGTime(end)
		items = append(items, b)
	}
	return items, rows.Err()
}

// Atomically serializes writers per doctor with a transaction-scoped
// advisory lock. The exclusion constraint on weekly_interval still guards
// against writers that bypass this store.
func (s *pgStore) Atomically(ctx context.Context, doctorID int64, fn func(ctx context.Context, tx AvailabilityStore) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return db.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, doctorID); err != nil {
			return err
		}
		return fn(ctx, &pgStore{q: tx, inTx: true})
	})
}

// classifyPG turns constraint violations into scheduling errors. Other
// errors are left for the manager to report as store failures.
func classifyPG(op string, err error) error {
	if err == nil {
		return nil
	}
	switch db.SQLState(err) {
	case db.CodeExclusionViolation:
		return &Error{Kind: KindConflict, Op: op, Msg: "overlaps an existing interval", Err: err}
	case db.CodeUniqueViolation:
		return &Error{Kind: KindConflict, Op: op, Msg: "duplicate interval", Err: err}
	}
	return err
}
