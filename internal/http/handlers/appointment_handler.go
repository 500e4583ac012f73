package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/http/middleware"
	"github.com/obispado/citas-backend/internal/services"
)

// HeaderIdempotencyReplayed is set to "true" when a response repeats an
// earlier submission with the same Idempotency-Key.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// CreateAppointmentRequest is the public booking form.
type CreateAppointmentRequest struct {
	Name     string `json:"nombre"      example:"María González"`
	Phone    string `json:"telefono"    example:"+56 9 1234 5678"`
	Email    string `json:"email"       example:"maria@example.com"`
	Date     string `json:"fecha"       example:"2026-10-20"`
	Time     string `json:"hora"        example:"20:00"`
	Reason   string `json:"motivo"      example:"Entrevista para recomendación del templo"`
	Comments string `json:"comentarios" example:""`
}

func (r CreateAppointmentRequest) toService() services.BookingRequest {
	return services.BookingRequest{
		Name:     r.Name,
		Phone:    r.Phone,
		Email:    r.Email,
		Date:     r.Date,
		Time:     r.Time,
		Reason:   r.Reason,
		Comments: r.Comments,
	}
}

// CreateAppointment godoc
// @ID          createAppointment
// @Summary     Request an appointment
// @Description Validates the form, re-checks the slot and stores the appointment as pending. Repeating a request with the same Idempotency-Key returns the original appointment with 200.
// @Tags        Appointments
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Client-generated key for safe retries"  example(2f1c9a7e-form-1)
// @Param       body             body    handlers.CreateAppointmentRequest  true  "Booking form"
//
// @Success     201  {object}  domain.Appointment
// @Success     200  {object}  domain.Appointment  "Replayed"
// @Header      200  {string}  Idempotency-Replayed  "true on replay"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Slot taken"
// @Failure     422  {object}  handlers.ErrorResponse "Validation failed or slot not allowed"
// @Failure     429  {object}  handlers.ErrorResponse "Too many requests"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /appointments [post]
func (h *Handlers) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Cuerpo JSON inválido")
		return
	}

	key, found := middleware.GetIdempotencyKey(c)
	if !found {
		key = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}

	a, replayed, err := h.bookingSvc.SubmitIdempotent(c.Request.Context(), key, req.toService())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, a)
		return
	}
	ok(c, http.StatusCreated, a)
}
