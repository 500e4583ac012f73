package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"email=ana@example.com", "email=[REDACTED:email]"},
		{"email=ana%40example.com", "email=[REDACTED:email]"},
		{"tel=+34 600 123 456", "tel=[REDACTED:phone]"},
		{"id=123e4567-e89b-12d3-a456-426614174000", "id=[REDACTED:id]"},
		{"date=2026-10-20&time=20:00", "date=2026-10-20&time=20:00"},
	}
	for _, tc := range tests {
		if got := redact(tc.in); got != tc.want {
			t.Fatalf("redact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}, SkipPaths: []string{"/health"}}))
	r.GET("/admin/appointments", func(c *gin.Context) {
		c.Set(CtxKeyAdmin, "obispo")
		LoggerFrom(c).Info().Msg("inside")
		c.Status(http.StatusNotFound)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?q=ana@example.com", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Api-Key", "k")
	r.ServeHTTP(w, req)

	out := buf.String()
	for _, leak := range []string{"secret-token", "ana@example.com"} {
		if strings.Contains(out, leak) {
			t.Fatalf("log leaks %q: %s", leak, out)
		}
	}
	for _, want := range []string{`"level":"warn"`, `"admin":"obispo"`, `"message":"inside"`, "[REDACTED]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %s: %s", want, out)
		}
	}

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if strings.Contains(buf.String(), "http_request") {
		t.Fatalf("skipped path was logged: %s", buf.String())
	}
}
