// Package services – AdminService
//
// This file implements the operator side: loading a session's workspace,
// status transitions with confirmation email, deletion and the purge of
// past appointments. Store failures that look like authorization problems
// are reported with KindAuth so the HTTP layer can end the session.
package services

import (
	"context"
	"errors"
	"time"

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

// Operator-facing messages.
const (
	msgNotFound        = "La cita no existe o ya fue eliminada. Actualice la lista."
	msgSessionRejected = "Sesión expirada. Inicie sesión nuevamente."
	msgUpdateFailed    = "Error al actualizar la cita: "
	msgLoadFailed      = "Error al cargar las citas: "
	msgDeleteFailed    = "Error al eliminar la cita: "
	msgNoEmail         = "La cita fue confirmada, pero no tiene un correo válido para enviar la confirmación"
	msgEmailFailed     = "La cita fue confirmada, pero no se pudo enviar el correo: "
)

// StatusChange is the result of a successful ChangeStatus. Warning is set
// when the confirmation email could not be attempted or failed.
type StatusChange struct {
	Appointment domain.Appointment `json:"appointment"`
	Notified    bool               `json:"notified"`
	Warning     string             `json:"warning,omitempty"`
}

// AdminService manages appointments on behalf of authenticated operators.
type AdminService struct {
	DB         *gorm.DB
	Repo       AppointmentRepo
	Sender     notify.Sender
	Branding   notify.Branding
	Workspaces *Workspaces
	Clock      Clock
	Location   *time.Location
}

// NewAdminService constructs the service with an empty workspace registry.
func NewAdminService(db *gorm.DB, r AppointmentRepo, sender notify.Sender, b notify.Branding) *AdminService {
	return &AdminService{
		DB:         db,
		Repo:       r,
		Sender:     sender,
		Branding:   b,
		Workspaces: NewWorkspaces(),
		Clock:      time.Now,
		Location:   time.Local,
	}
}

// Workspace returns the session's workspace, loading it on first use.
func (s *AdminService) Workspace(ctx context.Context, sessionID string) (*Workspace, error) {
	ws := s.Workspaces.Open(sessionID)
	if ws.Loaded() {
		return ws, nil
	}
	if err := s.Refresh(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Refresh re-fetches every appointment into ws.
func (s *AdminService) Refresh(ctx context.Context, ws *Workspace) error {
	list, err := s.Repo.ListAppointments(ctx, s.DB, repo.AppointmentFilter{})
	if err != nil {
		return storeError(msgLoadFailed, err)
	}
	ws.Replace(list, s.Clock.now())
	return nil
}

// Today returns the current date in the service location.
func (s *AdminService) Today() schedule.Date {
	return s.Clock.today(s.Location)
}

// ChangeStatus moves appointment id to status. The id must be present in ws;
// otherwise KindNotFound is returned without touching the store. A store
// failure aborts the change. Confirming sends one email when the
// appointment has a valid address; mail problems only produce a warning.
func (s *AdminService) ChangeStatus(ctx context.Context, ws *Workspace, id uint64, status domain.Status) (*StatusChange, error) {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "ChangeStatus",
		trace.WithAttributes(
			attribute.Int64("appointment.id", int64(id)),
			attribute.String("appointment.status", string(status)),
		),
	)
	defer span.End()

	if !status.Valid() {
		return nil, ErrInvalidInput
	}
	current, ok := ws.Get(id)
	if !ok {
		return nil, &AvailabilityError{Kind: KindNotFound, Reason: msgNotFound}
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	now := s.Clock.now()
	if err := s.Repo.UpdateAppointmentStatus(ctx, s.DB, id, status, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			ws.Remove(id)
			return nil, &AvailabilityError{Kind: KindNotFound, Reason: msgNotFound, Err: err}
		}
		if errors.Is(err, repo.ErrStaleStatus) {
			s.resync(ctx, ws, id)
			log.Info().Uint64("appointment_id", id).Str("to", string(status)).Msg("status changed by another session")
			return nil, ErrInvalidTransition
		}
		log.Error().Err(err).Uint64("appointment_id", id).Str("status", string(status)).Msg("status update failed")
		return nil, storeError(msgUpdateFailed, err)
	}

	updated, _ := ws.Patch(id, func(a *domain.Appointment) {
		a.Status = status
		a.UpdatedAt = now
	})
	observability.ObserveStatusChange(string(status))
	log.Info().Uint64("appointment_id", id).Str("from", string(current.Status)).Str("to", string(status)).Msg("appointment status changed")

	res := &StatusChange{Appointment: updated}
	if status == domain.StatusConfirmed {
		s.notifyConfirmed(ctx, res)
	}
	return res, nil
}

// resync replaces the workspace copy of id with the stored record.
func (s *AdminService) resync(ctx context.Context, ws *Workspace, id uint64) {
	stored, err := s.Repo.GetAppointment(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			ws.Remove(id)
		}
		return
	}
	ws.Patch(id, func(a *domain.Appointment) { *a = *stored })
}

func (s *AdminService) notifyConfirmed(ctx context.Context, res *StatusChange) {
	a := res.Appointment
	if !notify.ValidEmail(a.Email) {
		res.Warning = msgNoEmail
		return
	}
	if s.Sender == nil {
		res.Warning = msgEmailFailed + ErrNotConfigured.Error()
		return
	}

	msg, err := notify.ConfirmationMessage(a, s.Branding)
	if err == nil {
		err = s.Sender.Send(ctx, msg)
	}
	observability.ObserveNotification("confirmation", err == nil)
	if err != nil {
		log.Warn().Err(err).Uint64("appointment_id", a.ID).Msg("confirmation email failed")
		res.Warning = msgEmailFailed + err.Error()
		return
	}
	res.Notified = true
}

// Delete removes appointment id from the store and from ws.
func (s *AdminService) Delete(ctx context.Context, ws *Workspace, id uint64) error {
	if _, ok := ws.Get(id); !ok {
		return &AvailabilityError{Kind: KindNotFound, Reason: msgNotFound}
	}
	if err := s.Repo.DeleteAppointment(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			ws.Remove(id)
			return &AvailabilityError{Kind: KindNotFound, Reason: msgNotFound, Err: err}
		}
		return storeError(msgDeleteFailed, err)
	}
	ws.Remove(id)
	log.Info().Uint64("appointment_id", id).Msg("appointment deleted")
	return nil
}

// PurgeExpired deletes appointments dated before today from the store and
// from every open workspace.
func (s *AdminService) PurgeExpired(ctx context.Context) (int64, error) {
	today := s.Today()
	n, err := s.Repo.DeleteAppointmentsBefore(ctx, s.DB, today)
	if err != nil {
		return 0, storeError(msgDeleteFailed, err)
	}
	if s.Workspaces != nil {
		s.Workspaces.RemoveBefore(today)
	}
	log.Info().Int64("deleted", n).Str("before", today.String()).Msg("past appointments purged")
	return n, nil
}

// storeError classifies a store failure as auth_error or system_error.
func storeError(prefix string, err error) error {
	if repo.IsAuthError(err) {
		return &AvailabilityError{Kind: KindAuth, Reason: msgSessionRejected, Err: err}
	}
	return &AvailabilityError{Kind: KindSystem, Reason: prefix + err.Error(), Err: err}
}
