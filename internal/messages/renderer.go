package messages

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
)

// TemplateData is what catalog templates can reference.
type TemplateData struct {
	CustomerName string
	ServiceName  string
	Date         string // 09/10/2026
	Time         string // 2:00 PM
	Specialist   string
	Price        string
	Duration     string
}

// BuildTemplateData formats an appointment for customer-facing templates.
func BuildTemplateData(appt *appointments.Appointment, loc *time.Location) (TemplateData, error) {
	start, err := appt.StartsAt(loc)
	if err != nil {
		return TemplateData{}, err
	}
	return TemplateData{
		CustomerName: appt.CustomerName,
		ServiceName:  appt.ServiceName,
		Date:         start.Format("01/02/2006"),
		Time:         start.Format("3:04 PM"),
		Specialist:   appt.Specialist,
		Price:        fmt.Sprintf("%.2f", appt.Price),
		Duration:     fmt.Sprintf("%d", appt.DurationMinutes),
	}, nil
}

// Renderer renders catalog message templates with strict missing-key
// semantics: a template referencing an unknown field fails loudly instead of
// texting a customer a blank.
type Renderer struct{}

func (Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("messages: template text required")
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("messages: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("messages: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
