package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
)

// GetAdminByUsername fetches an admin by username (case-insensitive), or
// ErrNotFound.
func GetAdminByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := db.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAdmin inserts a new admin user. The username is stored lower-cased;
// an existing username yields ErrDuplicate.
func CreateAdmin(ctx context.Context, db *gorm.DB, u *domain.AdminUser) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateAdminPassword replaces the stored hash for username.
func UpdateAdminPassword(ctx context.Context, db *gorm.DB, username, hash string) error {
	res := db.WithContext(ctx).
		Model(&domain.AdminUser{}).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordAccess appends an access log entry.
func RecordAccess(ctx context.Context, db *gorm.DB, username, action, ip, userAgent string) error {
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	return db.WithContext(ctx).Create(&domain.AccessLog{
		Username:  username,
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}).Error
}

// ListAccess returns the most recent access log entries, newest first.
func ListAccess(ctx context.Context, db *gorm.DB, limit int) ([]domain.AccessLog, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []domain.AccessLog{}
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
