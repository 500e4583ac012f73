package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

// newTestDB opens a private in-memory database. With migrate == true the full
// schema (including the active-slot index) is created.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedAppointment(t *testing.T, db *gorm.DB, date, hhmm string, status domain.Status) *domain.Appointment {
	t.Helper()
	a := &domain.Appointment{
		Name:   "Visitante " + date + " " + hhmm,
		Phone:  "600000000",
		Email:  "visitante@example.org",
		Date:   schedule.MustDate(date),
		Time:   schedule.MustTimeOfDay(hhmm),
		Reason: "Entrevista personal con el obispo",
		Status: status,
	}
	if err := CreateAppointment(context.Background(), db, a); err != nil {
		t.Fatalf("seed %s %s: %v", date, hhmm, err)
	}
	return a
}

func TestDateStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, _, err := DateStats(context.Background(), db, schedule.MustDate("2026-10-24")); err == nil {
		t.Fatalf("expected error due to missing citas table")
	}
}

func TestDateStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, true)
	count, maxAt, err := DateStats(context.Background(), db, schedule.MustDate("2026-10-24"))
	if err != nil {
		t.Fatalf("DateStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestDateStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	a := seedAppointment(t, db, "2026-10-24", "17:00", domain.StatusPending)
	seedAppointment(t, db, "2026-10-24", "17:30", domain.StatusPending)
	seedAppointment(t, db, "2026-10-25", "18:00", domain.StatusPending)

	later := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := UpdateAppointmentStatus(ctx, db, a.ID, domain.StatusConfirmed, later); err != nil {
		t.Fatalf("update: %v", err)
	}

	count, maxAt, err := DateStats(ctx, db, schedule.MustDate("2026-10-24"))
	if err != nil {
		t.Fatalf("DateStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(later) {
		t.Fatalf("expected maxUpdatedAt=%v, got %v", later, maxAt)
	}
}
