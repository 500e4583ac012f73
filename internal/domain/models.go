// Package domain defines the persistence models for appointments, admin
// users and access logs. These types are mapped with GORM and form the core
// data layer of the booking service.
package domain

import (
	"strings"
	"time"

	"github.com/obispado/citas-backend/internal/schedule"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus accepts the three known statuses, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, true
	}
	return "", false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an appointment in status s may move to next.
// Re-applying the current status is always allowed; a cancelled appointment
// never leaves cancelled.
//
//	pending   -> confirmed | cancelled
//	confirmed -> cancelled
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	default:
		return false
	}
}

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCancelled}

// AllowedFrom returns the statuses an appointment may hold for a move to s
// to be accepted, s itself included.
func (s Status) AllowedFrom() []Status {
	var out []Status
	for _, from := range Statuses {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// Appointment is a visitor's request for a meeting at a given date and slot.
//
// Fields:
//   - ID: auto-increment primary key assigned by the store.
//   - Name, Phone, Email: contact details as submitted (email lower-cased).
//   - Date / Time: the requested slot, stored as "YYYY-MM-DD" and "HH:MM".
//   - Reason: free text describing the purpose of the visit.
//   - Comments: optional extra notes; NULL when empty.
//   - Status: pending, confirmed or cancelled (enforced by DB constraint).
//
// At most one non-cancelled appointment may exist per (fecha, hora); the
// partial unique index is created by repo.AutoMigrate.
type Appointment struct {
	ID        uint64             `json:"id"                 gorm:"primaryKey;autoIncrement"`
	Name      string             `json:"nombre"             gorm:"column:nombre;type:varchar(120);not null"`
	Phone     string             `json:"telefono"           gorm:"column:telefono;type:varchar(32);not null"`
	Email     string             `json:"email"              gorm:"column:email;type:varchar(254);not null"`
	Date      schedule.Date      `json:"fecha"              gorm:"column:fecha;type:varchar(10);not null;index:idx_citas_fecha_hora,priority:1"`
	Time      schedule.TimeOfDay `json:"hora"               gorm:"column:hora;type:varchar(5);not null;index:idx_citas_fecha_hora,priority:2"`
	Reason    string             `json:"motivo"             gorm:"column:motivo;type:text;not null"`
	Comments  *string            `json:"comentarios"        gorm:"column:comentarios;type:text"`
	Status    Status             `json:"estado"             gorm:"column:estado;type:varchar(16);not null;default:'pending';index;check:chk_citas_estado,estado IN ('pending','confirmed','cancelled')"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "citas" }

// AdminUser is an operator allowed to manage appointments.
type AdminUser struct {
	ID           uint64    `json:"id"       gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"type:varchar(64);not null;uniqueIndex"`
	PasswordHash string    `json:"-"        gorm:"type:varchar(100);not null"`
	Email        string    `json:"email"    gorm:"type:varchar(254)"`
	Role         string    `json:"role"     gorm:"type:varchar(32);not null;default:'admin'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for AdminUser.
func (AdminUser) TableName() string { return "admin_users" }

// Access log actions.
const (
	AccessLoginSucceeded = "successful_login"
	AccessLoginFailed    = "failed_login"
	AccessLogout         = "logout"
)

// AccessLog is an audit row for admin authentication events.
type AccessLog struct {
	ID        uint64    `json:"id"         gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username"   gorm:"type:varchar(64);not null;index"`
	Action    string    `json:"action"     gorm:"type:varchar(32);not null"`
	IP        string    `json:"ip"         gorm:"type:varchar(64)"`
	UserAgent string    `json:"user_agent" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for AccessLog.
func (AccessLog) TableName() string { return "access_logs" }
