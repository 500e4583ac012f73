// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

// DateStats returns the number of appointments on date (any status) and the
// greatest UpdatedAt among them. When the date has no rows, count is 0 and
// maxUpdatedAt is nil.
func DateStats(ctx context.Context, db *gorm.DB, date schedule.Date) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Appointment{}).Where("fecha = ?", date)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Appointment{}).
		Where("fecha = ?", date).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
