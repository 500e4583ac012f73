package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique constraint rejected the write.
var ErrDuplicate = errors.New("duplicate")

// ErrStaleStatus means the stored status changed and no longer allows the
// requested transition.
var ErrStaleStatus = errors.New("stale status")

// Postgres SQLSTATE codes inspected below.
const (
	pgUniqueViolation        = "23505"
	pgInsufficientPrivilege  = "42501"
	pgInvalidGrantor         = "0L000"
	pgInvalidRoleSpecificatn = "0P000"

	// Class 28 is invalid authorization: 28000, 28P01.
	pgClassInvalidAuthorization = "28"
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// IsAuthError reports whether the store refused the caller's credentials or
// privileges, as opposed to a data or connectivity problem. Postgres errors
// are judged by SQLSTATE (class 28 and the privilege codes); other drivers
// only by an explicit "permission denied".
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInsufficientPrivilege, pgInvalidGrantor, pgInvalidRoleSpecificatn:
			return true
		}
		return strings.HasPrefix(pgErr.Code, pgClassInvalidAuthorization)
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission denied")
}
