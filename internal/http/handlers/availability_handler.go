// Availability HTTP handlers.
//
// Public, read-only endpoints used by the booking form:
//   - GET /availability/days   (upcoming bookable days)
//   - GET /availability/slots  (slots of one date, ETag support)
//   - GET /availability/check  (single slot check)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/schedule"
	"github.com/obispado/citas-backend/internal/services"
	"github.com/obispado/citas-backend/internal/utils"
)

const maxListedDays = 90

// AvailableDaysResponse lists upcoming bookable days.
type AvailableDaysResponse struct {
	Days []schedule.DayAvailability `json:"days"`
}

func parseDateParam(c *gin.Context, name string) (schedule.Date, bool) {
	d, err := schedule.ParseDate(strings.TrimSpace(c.Query(name)))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Fecha inválida, use el formato AAAA-MM-DD")
		return schedule.Date{}, false
	}
	return d, true
}

// ListAvailableDays godoc
// @ID          listAvailableDays
// @Summary     List upcoming bookable days
// @Description Returns the next days (starting tomorrow) that have an appointment window, with their slots.
// @Tags        Availability
// @Produce     json
//
// @Param       days  query  int  false  "Horizon in days"  minimum(1) maximum(90) default(30)
//
// @Success     200  {object}  handlers.AvailableDaysResponse
// @Router      /availability/days [get]
func (h *Handlers) ListAvailableDays(c *gin.Context) {
	days := utils.AtoiDefault(c.Query("days"), 0)
	if days != 0 {
		days = utils.Clamp(days, 1, maxListedDays)
	}
	ok(c, http.StatusOK, AvailableDaysResponse{Days: h.availSvc.UpcomingDays(days)})
}

// DaySlots godoc
// @ID          daySlots
// @Summary     Slots of a date
// @Description Lists every slot of the date with its occupancy. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Availability
// @Produce     json
//
// @Param       date           query   string  true   "Date (YYYY-MM-DD)"          example(2026-10-20)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  services.DaySchedule
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /availability/slots [get]
func (h *Handlers) DaySlots(c *gin.Context) {
	date, valid := parseDateParam(c, "date")
	if !valid {
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.availSvc.DateStats(ctx, date); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"slots:%s:%d:%d"`, date, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	day, err := h.availSvc.DaySlots(ctx, date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, day)
}

// CheckSlot godoc
// @ID          checkSlot
// @Summary     Check one slot
// @Description Validates the slot against the weekly calendar and looks for an active appointment at that date and time.
// @Tags        Availability
// @Produce     json
//
// @Param       date  query  string  true  "Date (YYYY-MM-DD)"  example(2026-10-20)
// @Param       time  query  string  true  "Time (HH:MM)"       example(20:00)
//
// @Success     200  {object}  services.Availability
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /availability/check [get]
func (h *Handlers) CheckSlot(c *gin.Context) {
	date, valid := parseDateParam(c, "date")
	if !valid {
		return
	}
	t, err := schedule.ParseTimeOfDay(strings.TrimSpace(c.Query("time")))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Hora inválida, use el formato HH:MM")
		return
	}
	res := h.availSvc.Check(c.Request.Context(), date, t)
	// store failures keep the body but answer 503
	status := http.StatusOK
	if res.Kind == services.KindSystem {
		status = http.StatusServiceUnavailable
	}
	ok(c, status, res)
}
