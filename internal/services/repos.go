package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/schedule"
)

// AppointmentRepo defines the persistence contract the booking and admin
// services need. repo.Store implements it over GORM; tests use fakes.
type AppointmentRepo interface {
	// CreateAppointment inserts a and assigns its ID. repo.ErrDuplicate
	// reports an active appointment already holding the slot.
	CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) error

	// GetAppointment fetches one appointment or repo.ErrNotFound.
	GetAppointment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Appointment, error)

	// ListAppointments returns matches ordered by date then time.
	ListAppointments(ctx context.Context, db *gorm.DB, f repo.AppointmentFilter) ([]domain.Appointment, error)

	// CountActiveAt counts non-cancelled appointments at exactly date+time.
	CountActiveAt(ctx context.Context, db *gorm.DB, date schedule.Date, t schedule.TimeOfDay) (int64, error)

	// UpdateAppointmentStatus sets estado and updated_at, or repo.ErrNotFound.
	UpdateAppointmentStatus(ctx context.Context, db *gorm.DB, id uint64, status domain.Status, now time.Time) error

	// DeleteAppointment removes one appointment, or repo.ErrNotFound.
	DeleteAppointment(ctx context.Context, db *gorm.DB, id uint64) error

	// DeleteAppointmentsBefore removes appointments dated before date.
	DeleteAppointmentsBefore(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, error)

	// DateStats returns the row count and latest update for a date.
	DateStats(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, *time.Time, error)
}

// IdempotencyRepo stores replay records for booking submissions.
type IdempotencyRepo interface {
	GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, appointmentID uint64, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// AdminRepo covers admin credentials and the access log.
type AdminRepo interface {
	GetAdminByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.AdminUser, error)
	CreateAdmin(ctx context.Context, db *gorm.DB, u *domain.AdminUser) error
	UpdateAdminPassword(ctx context.Context, db *gorm.DB, username, hash string) error
	RecordAccess(ctx context.Context, db *gorm.DB, username, action, ip, userAgent string) error
	ListAccess(ctx context.Context, db *gorm.DB, limit int) ([]domain.AccessLog, error)
}

var (
	_ AppointmentRepo = repo.Store{}
	_ IdempotencyRepo = repo.Store{}
	_ AdminRepo       = repo.Store{}
)
