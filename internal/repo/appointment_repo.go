// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Appointment model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an appointment is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A second active appointment for the same slot yields ErrDuplicate.
//   - A status change the stored estado no longer allows yields ErrStaleStatus.
//   - On other DB errors the raw gorm error is propagated.
//
// Listings are always ordered by fecha then hora ascending.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

// AppointmentFilter narrows ListAppointments. Zero fields are ignored.
type AppointmentFilter struct {
	Date             *schedule.Date
	Time             *schedule.TimeOfDay
	From             *schedule.Date // inclusive
	To               *schedule.Date // inclusive
	Status           domain.Status
	ExcludeCancelled bool
}

func (f AppointmentFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Date != nil {
		q = q.Where("fecha = ?", *f.Date)
	}
	if f.Time != nil {
		q = q.Where("hora = ?", *f.Time)
	}
	if f.From != nil {
		q = q.Where("fecha >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("fecha <= ?", *f.To)
	}
	if f.Status != "" {
		q = q.Where("estado = ?", f.Status)
	}
	if f.ExcludeCancelled {
		q = q.Where("estado <> ?", domain.StatusCancelled)
	}
	return q
}

// CreateAppointment inserts a and fills in its ID and timestamps.
// It returns ErrDuplicate when the slot already holds an active appointment.
func CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetAppointment fetches a single appointment by id, or ErrNotFound.
func GetAppointment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAppointments returns the appointments matching f. It returns an empty
// slice when nothing matches.
func ListAppointments(ctx context.Context, db *gorm.DB, f AppointmentFilter) ([]domain.Appointment, error) {
	out := []domain.Appointment{}
	err := f.apply(db.WithContext(ctx).Model(&domain.Appointment{})).
		Order("fecha asc").
		Order("hora asc").
		Find(&out).Error
	return out, err
}

// CountActiveAt counts non-cancelled appointments at exactly date and t.
func CountActiveAt(ctx context.Context, db *gorm.DB, date schedule.Date, t schedule.TimeOfDay) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("fecha = ? AND hora = ? AND estado <> ?", date, t, domain.StatusCancelled).
		Count(&n).Error
	return n, err
}

// UpdateAppointmentStatus moves the appointment to status, but only while
// its stored estado still allows that move. A missing row yields
// ErrNotFound; a row whose estado no longer allows it yields ErrStaleStatus.
func UpdateAppointmentStatus(ctx context.Context, db *gorm.DB, id uint64, status domain.Status, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND estado IN ?", id, status.AllowedFrom()).
		Updates(map[string]any{"estado": status, "updated_at": now.UTC()})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := GetAppointment(ctx, db, id); err != nil {
		return err
	}
	return ErrStaleStatus
}

// DeleteAppointment removes the appointment permanently. If no row matches
// it returns ErrNotFound.
func DeleteAppointment(ctx context.Context, db *gorm.DB, id uint64) error {
	res := db.WithContext(ctx).Delete(&domain.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAppointmentsBefore removes every appointment dated strictly before
// date and returns how many rows were deleted.
func DeleteAppointmentsBefore(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, error) {
	res := db.WithContext(ctx).Where("fecha < ?", date).Delete(&domain.Appointment{})
	return res.RowsAffected, res.Error
}
