package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/notify"
	"github.com/obispado/citas-backend/internal/observability"
	"github.com/obispado/citas-backend/internal/repo"
)

// DigestResult reports what a digest run covered.
type DigestResult struct {
	To           string `json:"to"`
	From         string `json:"from"`
	Until        string `json:"until"`
	Appointments int    `json:"appointments"`
}

// DigestService mails the office a summary of the coming week.
type DigestService struct {
	DB       *gorm.DB
	Repo     AppointmentRepo
	Sender   notify.Sender
	Branding notify.Branding
	To       string
	Days     int
	Clock    Clock
	Location *time.Location
}

// NewDigestService covers the next 7 days starting today.
func NewDigestService(db *gorm.DB, r AppointmentRepo, sender notify.Sender, b notify.Branding, to string) *DigestService {
	return &DigestService{
		DB:       db,
		Repo:     r,
		Sender:   sender,
		Branding: b,
		To:       strings.TrimSpace(to),
		Days:     7,
		Clock:    time.Now,
		Location: time.Local,
	}
}

// Send builds and delivers the digest of active appointments. It returns
// ErrNotConfigured when no recipient or sender is set.
func (s *DigestService) Send(ctx context.Context) (*DigestResult, error) {
	if s.To == "" || s.Sender == nil {
		return nil, ErrNotConfigured
	}
	days := s.Days
	if days <= 0 {
		days = 7
	}
	from := s.Clock.today(s.Location)
	until := from.AddDays(days - 1)

	appts, err := s.Repo.ListAppointments(ctx, s.DB, repo.AppointmentFilter{From: &from, To: &until, ExcludeCancelled: true})
	if err != nil {
		return nil, storeError(msgLoadFailed, err)
	}
	msg, err := notify.DigestMessage(s.To, from, until, appts, s.Branding)
	if err != nil {
		return nil, err
	}
	err = s.Sender.Send(ctx, msg)
	observability.ObserveNotification("digest", err == nil)
	if err != nil {
		return nil, err
	}

	log.Info().Int("appointments", len(appts)).Str("from", from.String()).Str("until", until.String()).Msg("weekly digest sent")
	return &DigestResult{To: s.To, From: from.String(), Until: until.String(), Appointments: len(appts)}, nil
}
