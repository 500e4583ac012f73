// Package app assembles the stores and services shared by the HTTP server,
// the background jobs and the CLI commands.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/config"
	"github.com/obispado/citas-backend/internal/notify"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/schedule"
	"github.com/obispado/citas-backend/internal/services"
	"github.com/obispado/citas-backend/internal/session"
)

// App holds the wired services.
type App struct {
	Config   config.Config
	DB       *gorm.DB
	Calendar *schedule.Calendar
	Sessions session.Store
	Sender   notify.Sender

	Availability *services.AvailabilityService
	Booking      *services.BookingService
	Admin        *services.AdminService
	Auth         *services.AuthService
	Digest       *services.DigestService

	redis *redis.Client
}

// New resolves the calendar, session store and mail sender from cfg and
// wires the services over db.
func New(ctx context.Context, cfg config.Config, db *gorm.DB) (*App, error) {
	cal := schedule.DefaultCalendar()
	if cfg.Booking.CalendarPath != "" {
		c, err := schedule.LoadCalendar(cfg.Booking.CalendarPath)
		if err != nil {
			return nil, err
		}
		cal = c
	}

	var (
		sessions session.Store
		client   *redis.Client
	)
	if cfg.Session.RedisURL != "" {
		c, err := session.NewRedisClient(ctx, cfg.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		client = c
		sessions = session.NewRedisStore(c, "")
	} else {
		sessions = session.NewMemoryStore()
	}

	sender := notify.NewSender(notify.SendGridConfig{
		APIKey:    cfg.Mail.SendGridAPIKey,
		FromEmail: cfg.Mail.FromEmail,
		FromName:  cfg.Mail.FromName,
	})

	a, err := Build(cfg, db, cal, sessions, sender)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}
	a.redis = client
	return a, nil
}

// Build wires the services from already constructed dependencies.
func Build(cfg config.Config, db *gorm.DB, cal *schedule.Calendar, sessions session.Store, sender notify.Sender) (*App, error) {
	if db == nil {
		return nil, errors.New("app: nil database")
	}
	if cal == nil {
		cal = schedule.DefaultCalendar()
	}
	loc := cfg.Booking.Location
	if loc == nil {
		loc = time.Local
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("app: session secret: %w", err)
		}
		log.Warn().Msg("SESSION_SECRET not set; using a random key, tokens will not survive a restart")
	}

	store := repo.Store{}
	branding := notify.Branding{
		FromName:               cfg.Mail.FromName,
		OfficeLocation:         cfg.Booking.OfficeAddress,
		ConfirmationTemplateID: cfg.Mail.ConfirmationTemplateID,
		DigestTemplateID:       cfg.Mail.DigestTemplateID,
	}

	avail := services.NewAvailabilityService(db, store, cal)
	avail.Location = loc
	if cfg.Booking.UpcomingDays > 0 {
		avail.DefaultDays = cfg.Booking.UpcomingDays
	}

	booking := services.NewBookingService(db, store, store, avail)
	booking.Location = loc
	// a zero MaxAheadDays means the booking section was left unset
	if cfg.Booking.MaxAheadDays > 0 {
		avail.MinLeadDays = cfg.Booking.MinLeadDays
		booking.MinLeadDays = cfg.Booking.MinLeadDays
		booking.MaxAheadDays = cfg.Booking.MaxAheadDays
	}
	if cfg.IdempotencyTTL > 0 {
		booking.IdempotencyTTL = cfg.IdempotencyTTL
	}

	admin := services.NewAdminService(db, store, sender, branding)
	admin.Location = loc

	auth := services.NewAuthService(db, store, sessions, admin.Workspaces, secret)
	if cfg.Session.TTL > 0 {
		auth.TTL = cfg.Session.TTL
	}
	if cfg.Session.MaxAge > 0 {
		auth.MaxAge = cfg.Session.MaxAge
	}

	digest := services.NewDigestService(db, store, sender, branding, cfg.Mail.DigestTo)
	digest.Location = loc

	return &App{
		Config:       cfg,
		DB:           db,
		Calendar:     cal,
		Sessions:     sessions,
		Sender:       sender,
		Availability: avail,
		Booking:      booking,
		Admin:        admin,
		Auth:         auth,
		Digest:       digest,
	}, nil
}

// Close releases the Redis connection, if any. The database is owned by
// the caller.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
