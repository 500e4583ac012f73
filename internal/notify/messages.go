package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

const (
	defaultReason   = "Consulta pastoral"
	defaultLocation = "Oficina del Obispo - Capilla Local"
	arrivalReminder = "Llegue 10 minutos antes de la hora programada"
)

// Branding is the sender-side text merged into every message.
type Branding struct {
	FromName               string
	OfficeLocation         string
	ConfirmationTemplateID string
	DigestTemplateID       string
}

func (b Branding) location() string {
	if strings.TrimSpace(b.OfficeLocation) == "" {
		return defaultLocation
	}
	return b.OfficeLocation
}

var confirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(
	`Hola {{.nombre}},

Su cita con el obispado ha sido confirmada.

Fecha: {{.fecha}}
Hora: {{.hora}}
Motivo: {{.motivo}}
Lugar: {{.lugar}}

{{.recordatorio}}.

{{.from_name}}
`))

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(
	`<p>Hola {{.nombre}},</p>
<p>Su cita con el obispado ha sido <strong>confirmada</strong>.</p>
<ul>
<li><strong>Fecha:</strong> {{.fecha}}</li>
<li><strong>Hora:</strong> {{.hora}}</li>
<li><strong>Motivo:</strong> {{.motivo}}</li>
<li><strong>Lugar:</strong> {{.lugar}}</li>
</ul>
<p>{{.recordatorio}}.</p>
<p>{{.from_name}}</p>
`))

// ConfirmationData returns the template variables for a confirmed
// appointment. Keys match the stored SendGrid template.
func ConfirmationData(a domain.Appointment, b Branding) map[string]any {
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		reason = defaultReason
	}
	return map[string]any{
		"nombre":       a.Name,
		"fecha":        schedule.FormatLong(a.Date),
		"hora":         a.Time.String(),
		"motivo":       reason,
		"lugar":        b.location(),
		"recordatorio": arrivalReminder,
		"from_name":    b.FromName,
		"email":        a.Email,
	}
}

// ConfirmationMessage builds the email sent when an appointment is confirmed.
func ConfirmationMessage(a domain.Appointment, b Branding) (Message, error) {
	data := ConfirmationData(a, b)
	msg := Message{
		To:         a.Email,
		ToName:     a.Name,
		Subject:    "Confirmación de cita - " + schedule.FormatLong(a.Date) + " " + a.Time.String(),
		TemplateID: b.ConfirmationTemplateID,
		Data:       data,
	}
	if msg.TemplateID != "" {
		return msg, nil
	}
	var err error
	if msg.Text, msg.HTML, err = render(confirmationText, confirmationHTML, data); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DigestDay groups the appointments of one day for the weekly digest.
type DigestDay struct {
	Date         string        `json:"date"`
	Label        string        `json:"label"`
	Appointments []DigestEntry `json:"appointments"`
}

// DigestEntry is one appointment line in the digest.
type DigestEntry struct {
	Time   string `json:"time"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Status string `json:"status"`
}

var digestText = texttemplate.Must(texttemplate.New("digest").Parse(
	`Resumen de citas del {{.from}} al {{.to}}

Total: {{.total}} · Pendientes de confirmar: {{.pending}}
{{range .days}}
{{.Label}}
{{range .Appointments}}  {{.Time}}  {{.Name}} ({{.Status}}) - {{.Reason}}
{{end}}{{else}}
No hay citas programadas.
{{end}}
{{.from_name}}
`))

var digestHTML = htmltemplate.Must(htmltemplate.New("digest").Parse(
	`<h2>Resumen de citas del {{.from}} al {{.to}}</h2>
<p>Total: <strong>{{.total}}</strong> · Pendientes de confirmar: <strong>{{.pending}}</strong></p>
{{range .days}}<h3>{{.Label}}</h3>
<ul>{{range .Appointments}}<li>{{.Time}} {{.Name}} ({{.Status}}): {{.Reason}}</li>{{end}}</ul>
{{else}}<p>No hay citas programadas.</p>{{end}}
<p>{{.from_name}}</p>
`))

// DigestMessage builds the weekly summary sent to the office.
func DigestMessage(to string, from, until schedule.Date, appts []domain.Appointment, b Branding) (Message, error) {
	var (
		days    []DigestDay
		pending int
	)
	for _, a := range appts {
		if a.Status == domain.StatusPending {
			pending++
		}
		if n := len(days); n == 0 || days[n-1].Date != a.Date.String() {
			days = append(days, DigestDay{Date: a.Date.String(), Label: schedule.FormatLong(a.Date)})
		}
		last := &days[len(days)-1]
		last.Appointments = append(last.Appointments, DigestEntry{
			Time:   a.Time.String(),
			Name:   a.Name,
			Reason: a.Reason,
			Status: statusLabel(a.Status),
		})
	}
	data := map[string]any{
		"from":      schedule.FormatLong(from),
		"to":        schedule.FormatLong(until),
		"total":     len(appts),
		"pending":   pending,
		"days":      days,
		"from_name": b.FromName,
	}
	msg := Message{
		To:         to,
		Subject:    "Resumen semanal de citas",
		TemplateID: b.DigestTemplateID,
		Data:       data,
	}
	if msg.TemplateID != "" {
		return msg, nil
	}
	var err error
	if msg.Text, msg.HTML, err = render(digestText, digestHTML, data); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusPending:
		return "pendiente"
	case domain.StatusConfirmed:
		return "confirmada"
	case domain.StatusCancelled:
		return "cancelada"
	}
	return string(s)
}

func render(txt *texttemplate.Template, html *htmltemplate.Template, data map[string]any) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := txt.Execute(&tb, data); err != nil {
		return "", "", err
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}
