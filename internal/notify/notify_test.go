package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

func confirmedAppt() domain.Appointment {
	return domain.Appointment{
		ID:     3,
		Name:   "Lucía",
		Email:  "lucia@example.org",
		Date:   schedule.MustDate("2026-10-20"),
		Time:   schedule.MustTimeOfDay("20:00"),
		Reason: "Entrevista de recomendación",
		Status: domain.StatusConfirmed,
	}
}

func TestValidEmail(t *testing.T) {
	good := []string{"a@b.co", " ana.perez@example.org "}
	bad := []string{"", "ana", "ana@", "ana@example", "a b@example.org", "@example.org"}
	for _, s := range good {
		if !ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = false", s)
		}
	}
	for _, s := range bad {
		if ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = true", s)
		}
	}
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if s := NewSendGridSender(SendGridConfig{FromEmail: "x@example.org"}); s != nil {
		t.Fatalf("expected nil sender when API key is empty")
	}
	if _, ok := NewSender(SendGridConfig{}).(LogSender); !ok {
		t.Fatalf("NewSender without key should return LogSender")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{APIKey: "SG.test", FromEmail: "x@example.org"})
	if s == nil || s.fromName != "Obispado SUD" {
		t.Fatalf("unexpected sender: %+v", s)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	var s *SendGridSender
	if err := s.Send(context.Background(), Message{To: "a@b.co"}); err == nil {
		t.Fatalf("expected error when sender is nil")
	}
}

func TestSendGridSender_Send_StatusHandling(t *testing.T) {
	var got *mail.SGMailV3
	s := &SendGridSender{fromEmail: "obispado@example.org", fromName: "Obispado SUD"}

	s.send = func(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
		got = m
		return &rest.Response{StatusCode: 202}, nil
	}
	msg, err := ConfirmationMessage(confirmedAppt(), Branding{FromName: "Obispado SUD"})
	if err != nil {
		t.Fatalf("ConfirmationMessage: %v", err)
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got == nil || got.From.Address != "obispado@example.org" || len(got.Personalizations) != 1 {
		t.Fatalf("unexpected mail: %+v", got)
	}
	if got.Personalizations[0].To[0].Address != "lucia@example.org" {
		t.Fatalf("unexpected recipient: %+v", got.Personalizations[0].To)
	}

	s.send = func(context.Context, *mail.SGMailV3) (*rest.Response, error) {
		return &rest.Response{StatusCode: 401, Body: "unauthorized"}, nil
	}
	if err := s.Send(context.Background(), msg); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}

	s.send = func(context.Context, *mail.SGMailV3) (*rest.Response, error) {
		return nil, errors.New("dial tcp: timeout")
	}
	if err := s.Send(context.Background(), msg); err == nil {
		t.Fatalf("expected transport error")
	}

	if err := s.Send(context.Background(), Message{To: "not-an-email"}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestSendGridSender_DynamicTemplate(t *testing.T) {
	var got *mail.SGMailV3
	s := &SendGridSender{
		fromEmail: "obispado@example.org",
		fromName:  "Obispado SUD",
		send: func(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
			got = m
			return &rest.Response{StatusCode: 202}, nil
		},
	}
	msg, err := ConfirmationMessage(confirmedAppt(), Branding{FromName: "Obispado SUD", ConfirmationTemplateID: "d-123"})
	if err != nil {
		t.Fatalf("ConfirmationMessage: %v", err)
	}
	if msg.Text != "" {
		t.Fatalf("template messages should not be rendered locally")
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.TemplateID != "d-123" {
		t.Fatalf("TemplateID = %q", got.TemplateID)
	}
	data := got.Personalizations[0].DynamicTemplateData
	if data["fecha"] != "martes, 20 de octubre de 2026" || data["hora"] != "20:00" || data["lugar"] != defaultLocation {
		t.Fatalf("unexpected template data: %+v", data)
	}
}

func TestConfirmationMessage_RenderedBody(t *testing.T) {
	a := confirmedAppt()
	a.Reason = "  "
	msg, err := ConfirmationMessage(a, Branding{FromName: "Obispado SUD", OfficeLocation: "Capilla Centro"})
	if err != nil {
		t.Fatalf("ConfirmationMessage: %v", err)
	}
	for _, want := range []string{"Hola Lucía", "martes, 20 de octubre de 2026", "20:00", "Consulta pastoral", "Capilla Centro", "Llegue 10 minutos antes", "Obispado SUD"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text body missing %q:\n%s", want, msg.Text)
		}
	}
	if !strings.Contains(msg.HTML, "<strong>confirmada</strong>") {
		t.Fatalf("html body not rendered: %s", msg.HTML)
	}
}

func TestDigestMessage_GroupsByDay(t *testing.T) {
	appts := []domain.Appointment{
		{Name: "A", Date: schedule.MustDate("2026-10-20"), Time: schedule.MustTimeOfDay("20:00"), Reason: "r1", Status: domain.StatusPending},
		{Name: "B", Date: schedule.MustDate("2026-10-24"), Time: schedule.MustTimeOfDay("17:00"), Reason: "r2", Status: domain.StatusConfirmed},
		{Name: "C", Date: schedule.MustDate("2026-10-24"), Time: schedule.MustTimeOfDay("17:30"), Reason: "r3", Status: domain.StatusPending},
	}
	msg, err := DigestMessage("obispo@example.org", schedule.MustDate("2026-10-19"), schedule.MustDate("2026-10-25"), appts, Branding{FromName: "Obispado SUD"})
	if err != nil {
		t.Fatalf("DigestMessage: %v", err)
	}
	if msg.Data["pending"] != 2 || msg.Data["total"] != 3 {
		t.Fatalf("unexpected counts: %+v", msg.Data)
	}
	days := msg.Data["days"].([]DigestDay)
	if len(days) != 2 || len(days[1].Appointments) != 2 {
		t.Fatalf("unexpected grouping: %+v", days)
	}
	if !strings.Contains(msg.Text, "sábado, 24 de octubre de 2026") || !strings.Contains(msg.Text, "C (pendiente)") {
		t.Fatalf("unexpected digest text:\n%s", msg.Text)
	}

	empty, err := DigestMessage("obispo@example.org", schedule.MustDate("2026-10-19"), schedule.MustDate("2026-10-25"), nil, Branding{})
	if err != nil || !strings.Contains(empty.Text, "No hay citas programadas") {
		t.Fatalf("empty digest = %q, %v", empty.Text, err)
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{}).Send(context.Background(), Message{To: "a@b.co", Subject: "x"}); err != nil {
		t.Fatalf("LogSender.Send: %v", err)
	}
	if err := (LogSender{}).Send(context.Background(), Message{To: ""}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}
