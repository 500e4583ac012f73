// Package services – AvailabilityService
//
// This file implements the availability checker: it combines the weekly
// calendar (pure slot validation) with a conflict query against the store.
// Checks are read-only and fail closed: when the store cannot be consulted
// the slot is reported unavailable with a system_error kind.
//
// Observability: public methods are OpenTelemetry-instrumented and every
// check increments availability_checks_total{result}.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/observability"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/schedule"
)

// User-facing availability messages.
const (
	msgSlotAvailable = "Horario disponible"
	msgSlotTaken     = "Este horario ya está ocupado por otra cita"
	msgCheckFailed   = "Error al verificar disponibilidad: "
)

// Availability is the outcome of a slot check. Kind is empty when Available.
type Availability struct {
	Available bool      `json:"available"`
	Reason    string    `json:"reason"`
	Kind      ErrorKind `json:"kind,omitempty"`

	err error
}

// Err converts an unavailable result into an *AvailabilityError; it returns
// nil when the slot is available.
func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return &AvailabilityError{Kind: a.Kind, Reason: a.Reason, Err: a.err}
}

// SlotStatus is one generated slot of a day with its occupancy.
type SlotStatus struct {
	Time      schedule.TimeOfDay `json:"time"`
	Available bool               `json:"available"`
}

// DaySchedule lists every slot of a date and whether it can still be booked.
type DaySchedule struct {
	Date     schedule.Date `json:"date"`
	DayName  string        `json:"day_name"`
	Bookable bool          `json:"bookable"`
	Reason   string        `json:"reason,omitempty"`
	Slots    []SlotStatus  `json:"slots"`
}

// AvailabilityService answers "can this slot be booked?" questions.
type AvailabilityService struct {
	DB       *gorm.DB
	Repo     AppointmentRepo
	Calendar *schedule.Calendar
	Clock    Clock
	Location *time.Location

	// MinLeadDays is the offset of the first listed day (1 = tomorrow).
	MinLeadDays int
	// DefaultDays is the horizon UpcomingDays uses when none is given.
	DefaultDays int
}

// NewAvailabilityService constructs the service with the defaults used by
// the office: listings start tomorrow and span 30 days.
func NewAvailabilityService(db *gorm.DB, r AppointmentRepo, cal *schedule.Calendar) *AvailabilityService {
	return &AvailabilityService{
		DB:          db,
		Repo:        r,
		Calendar:    cal,
		Clock:       time.Now,
		Location:    time.Local,
		MinLeadDays: 1,
		DefaultDays: 30,
	}
}

// Check validates the slot against the calendar and, when it is allowed,
// queries the store for an active appointment at exactly that date and time.
func (s *AvailabilityService) Check(ctx context.Context, date schedule.Date, t schedule.TimeOfDay) Availability {
	tr := otel.Tracer("services/AvailabilityService")
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.String("slot.date", date.String()),
			attribute.String("slot.time", t.String()),
		),
	)
	defer span.End()

	res := s.check(ctx, date, t)
	result := "available"
	if !res.Available {
		result = string(res.Kind)
	}
	span.SetAttributes(attribute.String("slot.result", result))
	observability.ObserveAvailabilityCheck(result)
	return res
}

func (s *AvailabilityService) check(ctx context.Context, date schedule.Date, t schedule.TimeOfDay) Availability {
	if v := s.Calendar.ValidateSlot(date, t); !v.Valid {
		return Availability{Reason: v.Reason, Kind: KindSlotNotAllowed}
	}

	n, err := s.Repo.CountActiveAt(ctx, s.DB, date, t)
	if err != nil {
		log.Error().Err(err).Str("date", date.String()).Str("time", t.String()).Msg("availability query failed")
		return Availability{Reason: msgCheckFailed + err.Error(), Kind: KindSystem, err: err}
	}
	if n > 0 {
		return Availability{Reason: msgSlotTaken, Kind: KindSlotTaken}
	}
	return Availability{Available: true, Reason: msgSlotAvailable}
}

// DaySlots returns every generated slot for date with its occupancy, using a
// single by-date query. A non-bookable weekday yields no slots and the
// calendar's reason.
func (s *AvailabilityService) DaySlots(ctx context.Context, date schedule.Date) (*DaySchedule, error) {
	tr := otel.Tracer("services/AvailabilityService")
	ctx, span := tr.Start(ctx, "DaySlots",
		trace.WithAttributes(attribute.String("slot.date", date.String())),
	)
	defer span.End()

	wd := date.Weekday()
	out := &DaySchedule{
		Date:     date,
		DayName:  schedule.DayName(wd),
		Bookable: s.Calendar.IsWeekdayBookable(wd),
		Slots:    []SlotStatus{},
	}
	if !out.Bookable {
		out.Reason = s.Calendar.ValidateSlot(date, 0).Reason
		return out, nil
	}

	taken, err := s.Repo.ListAppointments(ctx, s.DB, repo.AppointmentFilter{Date: &date, ExcludeCancelled: true})
	if err != nil {
		return nil, &AvailabilityError{Kind: KindSystem, Reason: msgCheckFailed + err.Error(), Err: err}
	}
	busy := make(map[schedule.TimeOfDay]struct{}, len(taken))
	for _, a := range taken {
		busy[a.Time] = struct{}{}
	}
	for _, slot := range s.Calendar.GenerateSlots(wd) {
		_, occupied := busy[slot]
		out.Slots = append(out.Slots, SlotStatus{Time: slot, Available: !occupied})
	}
	return out, nil
}

// DateStats reports the number of appointments on date and their latest
// update, for conditional responses.
func (s *AvailabilityService) DateStats(ctx context.Context, date schedule.Date) (int64, *time.Time, error) {
	return s.Repo.DateStats(ctx, s.DB, date)
}

// UpcomingDays lists bookable days starting MinLeadDays after today. A
// non-positive days uses the configured default horizon.
func (s *AvailabilityService) UpcomingDays(days int) []schedule.DayAvailability {
	if days <= 0 {
		days = s.DefaultDays
	}
	from := s.Clock.today(s.Location).AddDays(s.MinLeadDays)
	out := s.Calendar.UpcomingDays(from, days)
	if out == nil {
		out = []schedule.DayAvailability{}
	}
	return out
}

// Today returns the current date in the service location.
func (s *AvailabilityService) Today() schedule.Date {
	return s.Clock.today(s.Location)
}

// IsActive reports whether an appointment status occupies its slot.
func IsActive(st domain.Status) bool { return st != domain.StatusCancelled }
