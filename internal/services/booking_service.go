// Package services – BookingService
//
// This file implements the public booking flow: server-side validation of
// the request form, a fresh availability check immediately before insert,
// normalization, and persistence with the status forced to pending.
// Submissions carrying an Idempotency-Key are replayed instead of booked a
// second time.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/notify"
	"github.com/obispado/citas-backend/internal/observability"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/schedule"
)

const idempotencyScope = "appointments"

// BookingRequest is the public booking form. Date and Time arrive as text
// ("YYYY-MM-DD", "HH:MM") and are parsed during validation.
type BookingRequest struct {
	Name     string `json:"nombre"`
	Phone    string `json:"telefono"`
	Email    string `json:"email"`
	Date     string `json:"fecha"`
	Time     string `json:"hora"`
	Reason   string `json:"motivo"`
	Comments string `json:"comentarios"`
}

// phoneStripRE removes the separators people type in phone numbers.
var phoneStripRE = regexp.MustCompile(`[\s\-.()]`)

var phoneRE = regexp.MustCompile(`^\+?\d{9,15}$`)

// BookingService accepts appointment requests from the public site.
type BookingService struct {
	DB           *gorm.DB
	Repo         AppointmentRepo
	Idem         IdempotencyRepo
	Availability *AvailabilityService
	Clock        Clock
	Location     *time.Location

	MinLeadDays    int           // first bookable day offset from today
	MaxAheadDays   int           // last bookable day offset from today
	IdempotencyTTL time.Duration // replay window for Idempotency-Key
}

// NewBookingService wires the service with the office defaults: bookings
// from tomorrow up to 61 days ahead.
func NewBookingService(db *gorm.DB, r AppointmentRepo, idem IdempotencyRepo, avail *AvailabilityService) *BookingService {
	return &BookingService{
		DB:             db,
		Repo:           r,
		Idem:           idem,
		Availability:   avail,
		Clock:          time.Now,
		Location:       time.Local,
		MinLeadDays:    1,
		MaxAheadDays:   61,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Validate checks the form fields and returns the parsed slot. Failures are
// reported together as a *ValidationError.
func (s *BookingService) Validate(req BookingRequest) (schedule.Date, schedule.TimeOfDay, error) {
	fields := map[string]string{}

	if utf8.RuneCountInString(strings.TrimSpace(req.Name)) < 2 {
		fields["nombre"] = "El nombre debe tener al menos 2 caracteres"
	}
	if !phoneRE.MatchString(normalizePhone(req.Phone)) {
		fields["telefono"] = "Ingrese un número de teléfono válido"
	}
	if email := strings.TrimSpace(req.Email); email != "" && !notify.ValidEmail(email) {
		fields["email"] = "Ingrese un correo electrónico válido"
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Reason)) < 10 {
		fields["motivo"] = "Describa el motivo con al menos 10 caracteres"
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		fields["fecha"] = "Seleccione una fecha válida"
	} else {
		today := s.Clock.today(s.Location)
		first, last := today.AddDays(s.MinLeadDays), today.AddDays(s.MaxAheadDays)
		switch {
		case date.Before(first):
			if s.MinLeadDays == 1 {
				fields["fecha"] = "La fecha debe ser a partir de mañana"
			} else {
				fields["fecha"] = fmt.Sprintf("La fecha debe ser a partir del %s", schedule.FormatLong(first))
			}
		case date.After(last):
			fields["fecha"] = fmt.Sprintf("La fecha no puede ser posterior al %s", schedule.FormatLong(last))
		}
	}

	t, err := schedule.ParseTimeOfDay(req.Time)
	if err != nil {
		fields["hora"] = "Seleccione una hora válida"
	}

	if len(fields) > 0 {
		return schedule.Date{}, 0, &ValidationError{Fields: fields}
	}
	return date, t, nil
}

// Submit validates req, re-checks availability and inserts the appointment
// as pending. An unavailable slot yields an *AvailabilityError whose message
// is the checker's reason; any other store failure wraps ErrPersistence.
func (s *BookingService) Submit(ctx context.Context, req BookingRequest) (*domain.Appointment, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("slot.date", req.Date),
			attribute.String("slot.time", req.Time),
		),
	)
	defer span.End()

	date, t, err := s.Validate(req)
	if err != nil {
		observability.ObserveBooking("invalid")
		return nil, err
	}

	if av := s.Availability.Check(ctx, date, t); !av.Available {
		observability.ObserveBooking(string(av.Kind))
		return nil, av.Err()
	}

	a := &domain.Appointment{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Date:     date,
		Time:     t,
		Reason:   strings.TrimSpace(req.Reason),
		Comments: optionalText(req.Comments),
		Status:   domain.StatusPending,
	}
	if err := s.Repo.CreateAppointment(ctx, s.DB, a); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			observability.ObserveBooking(string(KindSlotTaken))
			return nil, &AvailabilityError{Kind: KindSlotTaken, Reason: msgSlotTaken}
		}
		observability.ObserveBooking("persistence_error")
		log.Error().Err(err).Str("date", date.String()).Str("time", t.String()).Msg("create appointment failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	span.SetAttributes(attribute.Int64("appointment.id", int64(a.ID)))
	observability.ObserveBooking("created")
	log.Info().Uint64("appointment_id", a.ID).Str("date", date.String()).Str("time", t.String()).Msg("appointment requested")
	return a, nil
}

// SubmitIdempotent behaves like Submit but, when key is non-empty, returns
// the appointment recorded for an earlier request with the same key. The
// boolean reports whether the result was replayed.
func (s *BookingService) SubmitIdempotent(ctx context.Context, key string, req BookingRequest) (*domain.Appointment, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || s.Idem == nil {
		a, err := s.Submit(ctx, req)
		return a, false, err
	}

	if rec, err := s.Idem.GetIdempotency(ctx, s.DB, idempotencyScope, key, s.Clock.now().UTC()); err == nil && rec != nil {
		if a, err := s.Repo.GetAppointment(ctx, s.DB, rec.AppointmentID); err == nil {
			observability.ObserveBooking("replayed")
			return a, true, nil
		}
	}

	a, err := s.Submit(ctx, req)
	if err != nil {
		return nil, false, err
	}
	// Best effort: a lost record only disables replay for this key.
	if _, ierr := s.Idem.CreateIdempotency(ctx, s.DB, idempotencyScope, key, a.ID, http.StatusCreated, s.IdempotencyTTL); ierr != nil {
		log.Warn().Err(ierr).Uint64("appointment_id", a.ID).Msg("idempotency record not stored")
	}
	return a, false, nil
}

func normalizePhone(p string) string {
	return phoneStripRE.ReplaceAllString(strings.TrimSpace(p), "")
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
