package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

func TestCreateAndGetAppointment(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	note := "Vendré con mi esposa"
	a := &domain.Appointment{
		Name:     "Juan",
		Phone:    "+34600111222",
		Email:    "juan@example.org",
		Date:     schedule.MustDate("2026-10-20"),
		Time:     schedule.MustTimeOfDay("20:00"),
		Reason:   "Renovación de recomendación",
		Comments: &note,
		Status:   domain.StatusPending,
	}
	if err := CreateAppointment(ctx, db, a); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if a.ID == 0 || a.CreatedAt.IsZero() || !a.UpdatedAt.Equal(a.CreatedAt) {
		t.Fatalf("expected id and timestamps, got %+v", a)
	}

	got, err := GetAppointment(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got.Name != "Juan" || got.Comments == nil || *got.Comments != note || got.Time.String() != "20:00" {
		t.Fatalf("unexpected row: %+v", got)
	}

	if _, err := GetAppointment(ctx, db, a.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAppointment_ActiveSlotIsUnique(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	first := seedAppointment(t, db, "2026-10-24", "18:00", domain.StatusPending)

	dup := &domain.Appointment{
		Name: "Otro", Phone: "600", Email: "o@example.org",
		Date: first.Date, Time: first.Time, Reason: "Otro motivo suficiente", Status: domain.StatusPending,
	}
	if err := CreateAppointment(ctx, db, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for active slot, got %v", err)
	}

	// Cancelling frees the slot.
	if err := UpdateAppointmentStatus(ctx, db, first.ID, domain.StatusCancelled, time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	dup.ID = 0
	if err := CreateAppointment(ctx, db, dup); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCountActiveAt_IgnoresCancelled(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	seedAppointment(t, db, "2026-10-24", "17:00", domain.StatusCancelled)
	d, tm := schedule.MustDate("2026-10-24"), schedule.MustTimeOfDay("17:00")

	n, err := CountActiveAt(ctx, db, d, tm)
	if err != nil || n != 0 {
		t.Fatalf("CountActiveAt = %d, %v; want 0", n, err)
	}
	seedAppointment(t, db, "2026-10-24", "17:00", domain.StatusConfirmed)
	n, err = CountActiveAt(ctx, db, d, tm)
	if err != nil || n != 1 {
		t.Fatalf("CountActiveAt = %d, %v; want 1", n, err)
	}
	n, err = CountActiveAt(ctx, db, d, schedule.MustTimeOfDay("17:30"))
	if err != nil || n != 0 {
		t.Fatalf("CountActiveAt other time = %d, %v; want 0", n, err)
	}
}

func TestListAppointments_FiltersAndOrder(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	seedAppointment(t, db, "2026-10-25", "18:30", domain.StatusPending)
	seedAppointment(t, db, "2026-10-24", "19:00", domain.StatusConfirmed)
	seedAppointment(t, db, "2026-10-24", "17:00", domain.StatusCancelled)
	seedAppointment(t, db, "2026-10-20", "20:00", domain.StatusPending)

	all, err := ListAppointments(ctx, db, AppointmentFilter{})
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	var order []string
	for _, a := range all {
		order = append(order, a.Date.String()+" "+a.Time.String())
	}
	want := []string{"2026-10-20 20:00", "2026-10-24 17:00", "2026-10-24 19:00", "2026-10-25 18:30"}
	if len(order) != len(want) {
		t.Fatalf("got %v; want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v; want %v", order, want)
		}
	}

	d := schedule.MustDate("2026-10-24")
	byDate, _ := ListAppointments(ctx, db, AppointmentFilter{Date: &d})
	if len(byDate) != 2 {
		t.Fatalf("by date = %d; want 2", len(byDate))
	}
	active, _ := ListAppointments(ctx, db, AppointmentFilter{Date: &d, ExcludeCancelled: true})
	if len(active) != 1 || active[0].Status != domain.StatusConfirmed {
		t.Fatalf("active by date = %+v", active)
	}

	from, to := schedule.MustDate("2026-10-21"), schedule.MustDate("2026-10-24")
	ranged, _ := ListAppointments(ctx, db, AppointmentFilter{From: &from, To: &to})
	if len(ranged) != 2 {
		t.Fatalf("range = %d; want 2", len(ranged))
	}

	pending, _ := ListAppointments(ctx, db, AppointmentFilter{Status: domain.StatusPending})
	if len(pending) != 2 {
		t.Fatalf("pending = %d; want 2", len(pending))
	}

	none := schedule.MustDate("2027-01-01")
	empty, err := ListAppointments(ctx, db, AppointmentFilter{Date: &none})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v, %v", empty, err)
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	a := seedAppointment(t, db, "2026-10-24", "17:00", domain.StatusPending)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	if err := UpdateAppointmentStatus(ctx, db, a.ID, domain.StatusConfirmed, now); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := GetAppointment(ctx, db, a.ID)
	if got.Status != domain.StatusConfirmed || !got.UpdatedAt.Equal(now) {
		t.Fatalf("after update: %+v", got)
	}
	if err := UpdateAppointmentStatus(ctx, db, 999, domain.StatusConfirmed, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAppointmentStatus_RejectsStaleTransition(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	a := seedAppointment(t, db, "2026-10-24", "17:30", domain.StatusPending)
	if err := UpdateAppointmentStatus(ctx, db, a.ID, domain.StatusCancelled, now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	for _, next := range []domain.Status{domain.StatusConfirmed, domain.StatusPending} {
		if err := UpdateAppointmentStatus(ctx, db, a.ID, next, now.Add(time.Minute)); !errors.Is(err, ErrStaleStatus) {
			t.Fatalf("%s after cancel: expected ErrStaleStatus, got %v", next, err)
		}
	}
	got, _ := GetAppointment(ctx, db, a.ID)
	if got.Status != domain.StatusCancelled || !got.UpdatedAt.Equal(now) {
		t.Fatalf("cancelled row was touched: %+v", got)
	}

	// Re-applying the stored status is accepted.
	if err := UpdateAppointmentStatus(ctx, db, a.ID, domain.StatusCancelled, now); err != nil {
		t.Fatalf("re-cancel: %v", err)
	}

	b := seedAppointment(t, db, "2026-10-24", "18:00", domain.StatusConfirmed)
	if err := UpdateAppointmentStatus(ctx, db, b.ID, domain.StatusPending, now); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("confirmed -> pending: expected ErrStaleStatus, got %v", err)
	}
}

func TestDeleteAppointment_AndPurge(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	a := seedAppointment(t, db, "2026-10-10", "17:00", domain.StatusPending)
	seedAppointment(t, db, "2026-10-11", "18:00", domain.StatusConfirmed)
	seedAppointment(t, db, "2026-10-18", "18:00", domain.StatusPending)
	seedAppointment(t, db, "2026-10-20", "20:00", domain.StatusPending)

	if err := DeleteAppointment(ctx, db, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := DeleteAppointment(ctx, db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}

	n, err := DeleteAppointmentsBefore(ctx, db, schedule.MustDate("2026-10-18"))
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v; want 1", n, err)
	}
	rest, _ := ListAppointments(ctx, db, AppointmentFilter{})
	if len(rest) != 2 || rest[0].Date.String() != "2026-10-18" {
		t.Fatalf("remaining = %+v", rest)
	}
}
