package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/http/middleware"
	"github.com/obispado/citas-backend/internal/schedule"
	"github.com/obispado/citas-backend/internal/services"
)

const bookingBody = `{"nombre":"María González","telefono":"+56 9 1234 5678","email":"maria@example.com","fecha":"2026-10-20","hora":"20:00","motivo":"Entrevista para recomendación"}`

func bookingEngine(b stubBooking) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(&stubAvail{}, b, nil, nil, nil)
	r := gin.New()
	r.POST("/appointments",
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: "appointments"}, nil),
		h.CreateAppointment)
	return r
}

func TestCreateAppointment_BindingError(t *testing.T) {
	r := bookingEngine(stubBooking{submit: func(context.Context, string, services.BookingRequest) (*domain.Appointment, bool, error) {
		t.Fatalf("service should not be called on binding error")
		return nil, false, nil
	}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(`{"nombre":`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestCreateAppointment_CreatedAndReplayed(t *testing.T) {
	var gotKey string
	var gotReq services.BookingRequest
	replay := false
	r := bookingEngine(stubBooking{submit: func(_ context.Context, key string, req services.BookingRequest) (*domain.Appointment, bool, error) {
		gotKey, gotReq = key, req
		return &domain.Appointment{
			ID:     7,
			Name:   req.Name,
			Date:   schedule.MustDate(req.Date),
			Time:   schedule.MustTimeOfDay(req.Time),
			Status: domain.StatusPending,
		}, replay, nil
	}})

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(bookingBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderIdempotencyKey, "form-123")
		r.ServeHTTP(w, req)
		return w
	}

	w := send()
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotKey != "form-123" {
		t.Fatalf("key=%q", gotKey)
	}
	if gotReq.Phone != "+56 9 1234 5678" || gotReq.Reason != "Entrevista para recomendación" {
		t.Fatalf("request not forwarded: %+v", gotReq)
	}
	var a domain.Appointment
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("json: %v", err)
	}
	if a.ID != 7 || a.Status != domain.StatusPending {
		t.Fatalf("body=%+v", a)
	}
	if w.Header().Get(HeaderIdempotencyReplayed) != "" {
		t.Fatalf("fresh booking must not be marked as replay")
	}

	replay = true
	w = send()
	if w.Code != http.StatusOK || w.Header().Get(HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: status=%d header=%q", w.Code, w.Header().Get(HeaderIdempotencyReplayed))
	}
}

func TestCreateAppointment_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"telefono": "Ingrese un número de teléfono válido"}}, http.StatusUnprocessableEntity, ErrCodeValidation},
		{"weekday", &services.AvailabilityError{Kind: services.KindSlotNotAllowed, Reason: "Los Lunes no están disponibles para citas. Días disponibles: Domingos, Martes"}, http.StatusUnprocessableEntity, ErrCodeSlotNotAllowed},
		{"taken", &services.AvailabilityError{Kind: services.KindSlotTaken, Reason: "Este horario ya está ocupado por otra cita"}, http.StatusConflict, ErrCodeSlotTaken},
		{"system", &services.AvailabilityError{Kind: services.KindSystem, Reason: "Error al verificar disponibilidad: timeout"}, http.StatusServiceUnavailable, ErrCodeSystem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bookingEngine(stubBooking{submit: func(context.Context, string, services.BookingRequest) (*domain.Appointment, bool, error) {
				return nil, false, tc.err
			}})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(bookingBody)))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.code || er.Message == "" {
				t.Fatalf("body=%+v", er)
			}
			if tc.code == ErrCodeValidation && er.Fields["telefono"] == "" {
				t.Fatalf("field messages missing: %+v", er)
			}
			if ae, ok := tc.err.(*services.AvailabilityError); ok && er.Message != ae.Reason {
				t.Fatalf("message=%q want reason %q", er.Message, ae.Reason)
			}
		})
	}
}

func TestCreateAppointment_MalformedKey(t *testing.T) {
	r := bookingEngine(stubBooking{submit: func(context.Context, string, services.BookingRequest) (*domain.Appointment, bool, error) {
		t.Fatalf("service should not be called with a malformed key")
		return nil, false, nil
	}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(bookingBody))
	req.Header.Set(middleware.HeaderIdempotencyKey, "bad key with spaces")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}
