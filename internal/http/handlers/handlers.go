package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/http/middleware"
	"github.com/obispado/citas-backend/internal/schedule"
	"github.com/obispado/citas-backend/internal/services"
	"github.com/obispado/citas-backend/internal/session"
)

//
// Service contracts (context-aware)
//

// AvailabilityService answers slot and calendar questions for visitors.
type AvailabilityService interface {
	// Check reports whether a single slot can be booked.
	Check(ctx context.Context, date schedule.Date, t schedule.TimeOfDay) services.Availability
	// DaySlots lists a date's slots with their occupancy.
	DaySlots(ctx context.Context, date schedule.Date) (*services.DaySchedule, error)
	// DateStats returns the row count and latest update for a date.
	DateStats(ctx context.Context, date schedule.Date) (int64, *time.Time, error)
	// UpcomingDays lists the next bookable days.
	UpcomingDays(days int) []schedule.DayAvailability
}

// BookingService accepts appointment requests.
type BookingService interface {
	// SubmitIdempotent books once per key; the bool reports a replay.
	SubmitIdempotent(ctx context.Context, key string, req services.BookingRequest) (*domain.Appointment, bool, error)
}

// AdminService manages appointments through a per-session workspace.
type AdminService interface {
	Workspace(ctx context.Context, sessionID string) (*services.Workspace, error)
	Refresh(ctx context.Context, ws *services.Workspace) error
	Today() schedule.Date
	ChangeStatus(ctx context.Context, ws *services.Workspace, id uint64, status domain.Status) (*services.StatusChange, error)
	Delete(ctx context.Context, ws *services.Workspace, id uint64) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuthService signs operators in and out.
type AuthService interface {
	Login(ctx context.Context, username, password string, c services.Client) (*services.Login, error)
	Logout(ctx context.Context, sess *session.Session, c services.Client) error
	EndSession(ctx context.Context, sessionID string) error
	AccessLog(ctx context.Context, limit int) ([]domain.AccessLog, error)
}

// DigestService sends the weekly summary email.
type DigestService interface {
	Send(ctx context.Context) (*services.DigestResult, error)
}

//
// Handler wiring
//

// Handlers groups the public booking endpoints and the admin endpoints.
type Handlers struct {
	availSvc   AvailabilityService
	bookingSvc BookingService
	adminSvc   AdminService
	authSvc    AuthService
	digestSvc  DigestService
}

// New constructs Handlers bound to the given services. digest may be nil
// when no recipient is configured.
func New(avail AvailabilityService, booking BookingService, admin AdminService, auth AuthService, digest DigestService) *Handlers {
	return &Handlers{
		availSvc:   avail,
		bookingSvc: booking,
		adminSvc:   admin,
		authSvc:    auth,
		digestSvc:  digest,
	}
}

func client(c *gin.Context) services.Client {
	return services.Client{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// respondError writes err and, for authorization failures reported by the
// store, terminates the caller's session.
func (h *Handlers) respondError(c *gin.Context, err error) {
	if !writeServiceError(c, err) {
		return
	}
	sess, found := middleware.SessionFrom(c)
	if !found || h.authSvc == nil {
		return
	}
	if endErr := h.authSvc.EndSession(c.Request.Context(), sess.ID); endErr != nil {
		middleware.LoggerFrom(c).Warn().Err(endErr).Msg("end session failed")
	}
}
