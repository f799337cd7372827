package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/agenda/internal/domain/scheduling"
	"github.com/clinic/agenda/internal/platform/db"
)

func newManager(pool *pgxpool.Pool) *scheduling.Manager {
	return scheduling.NewManager(scheduling.NewPostgresStore(pool), scheduling.NewValidator(scheduling.DefaultPolicy()))
}

func TestWeeklyIntervalCRUD(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t, "sched")
	m := newManager(pool)

	var created *scheduling.WeeklyInterval
	t.Run("Create", func(t *testing.T) {
		w, err := m.Create(ctx, 5, 2, "09:00", "10:00")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if w.ID == uuid.Nil {
			t.Fatal("expected non-nil ID")
		}
		if w.CreatedAt.IsZero() {
			t.Error("expected created_at from the database")
		}
		created = w
	})

	t.Run("Create_Conflict", func(t *testing.T) {
		_, err := m.Create(ctx, 5, 2, "09:30", "10:30")
		if !errors.Is(err, scheduling.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("Create_Adjacent", func(t *testing.T) {
		if _, err := m.Create(ctx, 5, 2, "10:00", "11:00"); err != nil {
			t.Fatalf("back-to-back interval: %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		got, err := m.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Start.String() != "09:00" || got.End.String() != "10:00" {
			t.Errorf("expected 09:00-10:00, got %s-%s", got.Start, got.End)
		}
	})

	t.Run("Update_Partial", func(t *testing.T) {
		got, err := m.Update(ctx, created.ID, scheduling.Patch{End: scheduling.Some("09:30")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.End.String() != "09:30" {
			t.Errorf("expected end 09:30, got %s", got.End)
		}
	})

	t.Run("Update_Conflict", func(t *testing.T) {
		_, err := m.Update(ctx, created.ID, scheduling.Patch{End: scheduling.Some("10:15")})
		if !errors.Is(err, scheduling.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		items, err := m.ListForDoctor(ctx, 5)
		if err != nil {
			t.Fatalf("ListForDoctor: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 intervals, got %d", len(items))
		}
		if items[0].Start.String() != "09:00" || items[1].Start.String() != "10:00" {
			t.Errorf("unexpected order: %s, %s", items[0].Start, items[1].Start)
		}
	})

	t.Run("Delete_Twice", func(t *testing.T) {
		if err := m.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := m.Delete(ctx, created.ID); !errors.Is(err, scheduling.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestExclusionConstraintBackstop(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t, "excl")

	insert := `INSERT INTO weekly_interval (id, doctor_id, day_of_week, start_time, end_time)
		VALUES ($1, 5, 2, $2::time, $3::time)`
	if _, err := pool.Exec(ctx, insert, uuid.New(), "09:00", "10:00"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := pool.Exec(ctx, insert, uuid.New(), "09:30", "10:30")
	if db.SQLState(err) != db.CodeExclusionViolation {
		t.Fatalf("expected exclusion violation, got %v", err)
	}
	if _, err := pool.Exec(ctx, insert, uuid.New(), "10:00", "11:00"); err != nil {
		t.Fatalf("adjacent insert should pass the constraint: %v", err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t, "race")
	m := newManager(pool)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(ctx, 7, 3, "09:00", "10:00")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, scheduling.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one create to win, got %d", ok)
	}

	items, err := m.ListForDoctor(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 stored interval, got %d", len(items))
	}
}

func TestSlotsForDate_WithAppointments(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t, "slots")
	m := newManager(pool)

	if _, err := m.Create(ctx, 5, 2, "09:00", "11:00"); err != nil {
		t.Fatal(err)
	}
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	_, err := pool.Exec(ctx, `INSERT INTO appointment (doctor_id, patient_id, appointment_date, start_time, end_time, status)
		VALUES (5, 1, $1, '09:30', '10:00', 'scheduled'), (5, 2, $1, '10:00', '10:30', 'cancelled')`, date)
	if err != nil {
		t.Fatalf("insert appointments: %v", err)
	}

	slots, err := m.SlotsForDate(ctx, 5, date, 30)
	if err != nil {
		t.Fatalf("SlotsForDate: %v", err)
	}
	want := []string{"09:00", "10:00", "10:30"}
	if len(slots) != len(want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
	for i := range want {
		if slots[i].String() != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], slots[i])
		}
	}
}

func TestStoreFailure_ClosedPool(t *testing.T) {
	pool := newSchema(t, "closed")
	m := newManager(pool)
	pool.Close()

	_, err := m.Create(context.Background(), 5, 2, "09:00", "10:00")
	if !errors.Is(err, scheduling.ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
}
