package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/obispado/citas-backend/internal/http/middleware"
)

// envelopeEngine sets a fixed request id and a request-scoped logger
// writing to buf, the way RequestID and RedactingLogger do in production.
func envelopeEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := zerolog.New(buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set(middleware.HeaderRequestID, "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	return r
}

func TestFail_EnvelopeAndLogging(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		msg    string
		logged bool
	}{
		{"slot taken", http.StatusConflict, ErrCodeSlotTaken, "Este horario ya está ocupado por otra cita", false},
		{"not found", http.StatusNotFound, ErrCodeNotFound, "Cita no encontrada", false},
		{"store down", http.StatusServiceUnavailable, ErrCodeSystem, "No se pudo consultar la agenda", true},
		{"internal", http.StatusInternalServerError, ErrCodeInternal, "kaboom", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := envelopeEngine(&buf)
			r.GET("/x", func(c *gin.Context) { Fail(c, tc.status, tc.code, tc.msg) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json: %v", err)
			}
			if resp.RequestID != "rid-1" || resp.Code != tc.code || resp.Message != tc.msg || resp.Fields != nil {
				t.Fatalf("unexpected body: %+v", resp)
			}
			if got := strings.Contains(buf.String(), `"level":"error"`); got != tc.logged {
				t.Fatalf("logged=%v want %v: %s", got, tc.logged, buf.String())
			}
		})
	}
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/appointments", func(c *gin.Context) {
		ok(c, http.StatusCreated, gin.H{"id": 7, "estado": "pending"})
	})
	r.DELETE("/appointments/7", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/appointments", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	var body struct {
		ID     int    `json:"id"`
		Estado string `json:"estado"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.ID != 7 || body.Estado != "pending" {
		t.Fatalf("body=%s err=%v", w.Body.String(), err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/appointments/7", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("204 expected with empty body, got %d %q", w.Code, w.Body.String())
	}
}

func Test_failFields_IncludesFieldMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/appointments", func(c *gin.Context) {
		failFields(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Revise los datos del formulario",
			map[string]string{"telefono": "Ingrese un número de teléfono válido"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/appointments", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeValidation || er.Fields["telefono"] == "" {
		t.Fatalf("unexpected body: %+v", er)
	}
	if strings.Contains(w.Body.String(), `"request_id"`) {
		t.Fatalf("empty request id should be omitted: %s", w.Body.String())
	}
}
