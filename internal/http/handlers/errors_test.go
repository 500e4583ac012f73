package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/services"
)

func TestWriteServiceError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		status     int
		code       string
		endSession bool
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"nombre": "x"}}, http.StatusUnprocessableEntity, ErrCodeValidation, false},
		{"not allowed", &services.AvailabilityError{Kind: services.KindSlotNotAllowed, Reason: "Los Lunes no están disponibles"}, http.StatusUnprocessableEntity, ErrCodeSlotNotAllowed, false},
		{"taken", &services.AvailabilityError{Kind: services.KindSlotTaken, Reason: "ocupado"}, http.StatusConflict, ErrCodeSlotTaken, false},
		{"system", &services.AvailabilityError{Kind: services.KindSystem, Reason: "down"}, http.StatusServiceUnavailable, ErrCodeSystem, false},
		{"not found", &services.AvailabilityError{Kind: services.KindNotFound, Reason: "no"}, http.StatusNotFound, ErrCodeNotFound, false},
		{"auth", &services.AvailabilityError{Kind: services.KindAuth, Reason: "Sesión expirada"}, http.StatusUnauthorized, ErrCodeAuth, true},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, false},
		{"transition", services.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition, false},
		{"input", services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest, false},
		{"not configured", services.ErrNotConfigured, http.StatusServiceUnavailable, ErrCodeNotConfigured, false},
		{"persistence", fmt.Errorf("%w: disk full", services.ErrPersistence), http.StatusInternalServerError, ErrCodeCreateFailed, false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ended bool
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { ended = writeServiceError(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.code {
				t.Fatalf("code=%q want %q", er.Code, tc.code)
			}
			if ended != tc.endSession {
				t.Fatalf("endSession=%v want %v", ended, tc.endSession)
			}
		})
	}
}
