// Admin HTTP handlers.
//
// Endpoints behind middleware.RequireAdmin. Each operator session works on
// its own in-memory copy of the appointment list (the workspace):
//   - GET    /admin/appointments              (filtered view + stats)
//   - POST   /admin/appointments/refresh      (reload from the store)
//   - PATCH  /admin/appointments/{id}/status  (confirm / cancel)
//   - DELETE /admin/appointments/{id}
//   - POST   /admin/appointments/purge        (delete past appointments)
//   - POST   /admin/digest                    (send the weekly summary now)
//   - GET    /admin/access-logs
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/http/middleware"
	"github.com/obispado/citas-backend/internal/schedule"
	"github.com/obispado/citas-backend/internal/services"
	"github.com/obispado/citas-backend/internal/utils"
)

// ListAppointmentsResponse is the admin dashboard payload.
type ListAppointmentsResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
	Stats        services.Stats       `json:"stats"`
	LoadedAt     time.Time            `json:"loaded_at"`
}

// UpdateStatusRequest is the payload for changing an appointment status.
type UpdateStatusRequest struct {
	Status string `json:"estado" binding:"required" example:"confirmed"`
}

// PurgeResponse reports how many appointments were deleted.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// AccessLogResponse lists recent sign-in activity.
type AccessLogResponse struct {
	Entries []domain.AccessLog `json:"entries"`
}

// workspace resolves the caller's workspace; it writes the error response
// itself and returns nil on failure.
func (h *Handlers) workspace(c *gin.Context) *services.Workspace {
	sess, found := middleware.SessionFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Sesión expirada. Inicie sesión nuevamente.")
		return nil
	}
	ws, err := h.adminSvc.Workspace(c.Request.Context(), sess.ID)
	if err != nil {
		h.respondError(c, err)
		return nil
	}
	return ws
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id de cita inválido")
		return 0, false
	}
	return id, true
}

// ListAppointments godoc
// @ID          adminListAppointments
// @Summary     List appointments
// @Description Returns the session's appointments filtered by date, status and a free-text query over name, email and phone, plus dashboard counters.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       date    query  string  false  "Date (YYYY-MM-DD)"                       example(2026-10-20)
// @Param       status  query  string  false  "pending | confirmed | cancelled"
// @Param       q       query  string  false  "Search text (accent and case insensitive)"
//
// @Success     200  {object}  handlers.ListAppointmentsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/appointments [get]
func (h *Handlers) ListAppointments(c *gin.Context) {
	var f services.ListFilter
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Fecha inválida, use el formato AAAA-MM-DD")
			return
		}
		f.Date = &d
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		st, valid := domain.ParseStatus(raw)
		if !valid {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Estado inválido")
			return
		}
		f.Status = st
	}
	f.Query = c.Query("q")

	ws := h.workspace(c)
	if ws == nil {
		return
	}
	ok(c, http.StatusOK, ListAppointmentsResponse{
		Appointments: ws.Filter(f),
		Stats:        ws.Stats(h.adminSvc.Today()),
		LoadedAt:     ws.LoadedAt(),
	})
}

// RefreshAppointments godoc
// @ID          adminRefreshAppointments
// @Summary     Reload appointments
// @Description Re-fetches every appointment from the store into the session workspace.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListAppointmentsResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/appointments/refresh [post]
func (h *Handlers) RefreshAppointments(c *gin.Context) {
	ws := h.workspace(c)
	if ws == nil {
		return
	}
	if err := h.adminSvc.Refresh(c.Request.Context(), ws); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, ListAppointmentsResponse{
		Appointments: ws.Snapshot(),
		Stats:        ws.Stats(h.adminSvc.Today()),
		LoadedAt:     ws.LoadedAt(),
	})
}

// UpdateAppointmentStatus godoc
// @ID          adminUpdateAppointmentStatus
// @Summary     Change appointment status
// @Description Confirms or cancels an appointment. Confirming emails the visitor when an address is on file; mail problems are reported in "warning" without failing the change.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                               true  "Appointment ID"  example(42)
// @Param       body  body  handlers.UpdateStatusRequest  true  "New status"
//
// @Success     200  {object}  services.StatusChange
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized or session rejected"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Transition not allowed"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/appointments/{id}/status [patch]
func (h *Handlers) UpdateAppointmentStatus(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "estado requerido")
		return
	}
	st, valid := domain.ParseStatus(req.Status)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Estado inválido")
		return
	}

	ws := h.workspace(c)
	if ws == nil {
		return
	}
	res, err := h.adminSvc.ChangeStatus(c.Request.Context(), ws, id, st)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// DeleteAppointment godoc
// @ID          adminDeleteAppointment
// @Summary     Delete an appointment
// @Tags        Admin
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Appointment ID"  example(42)
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/appointments/{id} [delete]
func (h *Handlers) DeleteAppointment(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	ws := h.workspace(c)
	if ws == nil {
		return
	}
	if err := h.adminSvc.Delete(c.Request.Context(), ws, id); err != nil {
		h.respondError(c, err)
		return
	}
	noContent(c)
}

// PurgeAppointments godoc
// @ID          adminPurgeAppointments
// @Summary     Delete past appointments
// @Description Deletes every appointment dated before today.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.PurgeResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/appointments/purge [post]
func (h *Handlers) PurgeAppointments(c *gin.Context) {
	n, err := h.adminSvc.PurgeExpired(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, PurgeResponse{Deleted: n})
}

// SendDigest godoc
// @ID          adminSendDigest
// @Summary     Send the weekly digest
// @Description Emails the office a summary of the next seven days.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  services.DigestResult
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Not configured or store unavailable"
// @Router      /admin/digest [post]
func (h *Handlers) SendDigest(c *gin.Context) {
	if h.digestSvc == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeNotConfigured, "Función no configurada")
		return
	}
	res, err := h.digestSvc.Send(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ListAccessLogs godoc
// @ID          adminListAccessLogs
// @Summary     Recent sign-in activity
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       limit  query  int  false  "Max entries"  minimum(1) maximum(500) default(50)
//
// @Success     200  {object}  handlers.AccessLogResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/access-logs [get]
func (h *Handlers) ListAccessLogs(c *gin.Context) {
	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), 50), 1, 500)
	entries, err := h.authSvc.AccessLog(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []domain.AccessLog{}
	}
	ok(c, http.StatusOK, AccessLogResponse{Entries: entries})
}
