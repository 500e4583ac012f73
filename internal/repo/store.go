package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

// Store exposes the package functions as methods so services can depend on
// small interfaces and tests can substitute fakes.
type Store struct{}

func (Store) CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) error {
	return CreateAppointment(ctx, db, a)
}

func (Store) GetAppointment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Appointment, error) {
	return GetAppointment(ctx, db, id)
}

func (Store) ListAppointments(ctx context.Context, db *gorm.DB, f AppointmentFilter) ([]domain.Appointment, error) {
	return ListAppointments(ctx, db, f)
}

func (Store) CountActiveAt(ctx context.Context, db *gorm.DB, date schedule.Date, t schedule.TimeOfDay) (int64, error) {
	return CountActiveAt(ctx, db, date, t)
}

func (Store) UpdateAppointmentStatus(ctx context.Context, db *gorm.DB, id uint64, status domain.Status, now time.Time) error {
	return UpdateAppointmentStatus(ctx, db, id, status, now)
}

func (Store) DeleteAppointment(ctx context.Context, db *gorm.DB, id uint64) error {
	return DeleteAppointment(ctx, db, id)
}

func (Store) DeleteAppointmentsBefore(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, error) {
	return DeleteAppointmentsBefore(ctx, db, date)
}

func (Store) DateStats(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, *time.Time, error) {
	return DateStats(ctx, db, date)
}

func (Store) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, db, scope, key, now)
}

func (Store) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, appointmentID uint64, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return CreateIdempotency(ctx, db, scope, key, appointmentID, status, ttl)
}

func (Store) GetAdminByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.AdminUser, error) {
	return GetAdminByUsername(ctx, db, username)
}

func (Store) CreateAdmin(ctx context.Context, db *gorm.DB, u *domain.AdminUser) error {
	return CreateAdmin(ctx, db, u)
}

func (Store) UpdateAdminPassword(ctx context.Context, db *gorm.DB, username, hash string) error {
	return UpdateAdminPassword(ctx, db, username, hash)
}

func (Store) RecordAccess(ctx context.Context, db *gorm.DB, username, action, ip, userAgent string) error {
	return RecordAccess(ctx, db, username, action, ip, userAgent)
}

func (Store) ListAccess(ctx context.Context, db *gorm.DB, limit int) ([]domain.AccessLog, error) {
	return ListAccess(ctx, db, limit)
}
