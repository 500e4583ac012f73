package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/obispado/citas-backend/internal/schedule"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Appointment{}).TableName(): "citas",
		(AdminUser{}).TableName():   "admin_users",
		(AccessLog{}).TableName():   "access_logs",
		(Idempotency{}).TableName(): "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if st, ok := ParseStatus(" Confirmed "); !ok || st != StatusConfirmed {
		t.Fatalf("ParseStatus(Confirmed) = %q, %v", st, ok)
	}
	if _, ok := ParseStatus("done"); ok {
		t.Fatalf("unknown status accepted")
	}
	if Status("Pending").Valid() {
		t.Fatalf("Valid must be exact")
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusPending}:     true,
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusConfirmed}: true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusCancelled, StatusCancelled}: true,
		{StatusConfirmed, StatusPending}:   false,
		{StatusCancelled, StatusPending}:   false,
		{StatusCancelled, StatusConfirmed}: false,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s = %v; want %v", from, to, got, want)
			}
		}
	}
	if StatusPending.CanTransitionTo("archived") {
		t.Fatalf("unknown target accepted")
	}
}

func TestStatus_AllowedFrom(t *testing.T) {
	cases := map[Status][]Status{
		StatusPending:   {StatusPending},
		StatusConfirmed: {StatusPending, StatusConfirmed},
		StatusCancelled: {StatusPending, StatusConfirmed, StatusCancelled},
		"archived":      nil,
	}
	for next, want := range cases {
		got := next.AllowedFrom()
		if len(got) != len(want) {
			t.Fatalf("%s: got %v want %v", next, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s: got %v want %v", next, got, want)
			}
		}
	}
}

func TestAppointment_MigrateRoundTripAndCheck(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Appointment{}, &AdminUser{}, &AccessLog{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Appointment{}, "idx_citas_fecha_hora") {
		t.Fatalf("expected index idx_citas_fecha_hora")
	}
	if !m.HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatalf("expected unique index ux_scope_key")
	}

	a := &Appointment{
		Name:   "Ana Pérez",
		Phone:  "600123123",
		Email:  "ana@example.org",
		Date:   schedule.MustDate("2026-10-24"),
		Time:   schedule.MustTimeOfDay("17:30"),
		Reason: "Entrevista para recomendación",
		Status: StatusPending,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if a.ID == 0 {
		t.Fatalf("expected auto-increment id")
	}

	var raw struct {
		Fecha string
		Hora  string
	}
	if err := db.Raw("SELECT fecha, hora FROM citas WHERE id = ?", a.ID).Scan(&raw).Error; err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if raw.Fecha != "2026-10-24" || raw.Hora != "17:30" {
		t.Fatalf("stored columns = %+v", raw)
	}

	var got Appointment
	if err := db.Where("fecha = ? AND hora = ?", schedule.MustDate("2026-10-24"), schedule.MustTimeOfDay("17:30")).First(&got).Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Date != a.Date || got.Time != a.Time || got.Comments != nil || got.Status != StatusPending {
		t.Fatalf("unexpected row: %+v", got)
	}

	err := db.Exec(`INSERT INTO citas (nombre, telefono, email, fecha, hora, motivo, estado, created_at, updated_at)
	                VALUES (?,?,?,?,?,?,?,?,?)`,
		"X", "1", "x@y.z", "2026-10-25", "18:00", "motivo largo", "archived", time.Now(), time.Now()).Error
	if err == nil {
		t.Fatalf("expected CHECK violation for unknown estado")
	}
}

func TestIdempotency_UniqueScopeKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	rec := &Idempotency{ID: "i1", Scope: "appointments", Key: "k1", AppointmentID: 7, Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got Idempotency
	if err := db.First(&got, "id = ?", "i1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.AppointmentID != 7 || got.Status != 201 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected row: %+v", got)
	}
	dup := &Idempotency{ID: "i2", Scope: "appointments", Key: "k1", AppointmentID: 8, Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (scope, key)")
	}
	other := &Idempotency{ID: "i3", Scope: "other", Key: "k1", AppointmentID: 9, Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("same key in another scope should insert: %v", err)
	}
}
