package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
	"github.com/radiancemd/spa-scheduler/internal/notify"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Confirmations sends the immediate transactional texts around booking and
// cancellation. Unlike scheduled messages these go out synchronously and are
// not persisted in the queue.
type Confirmations struct {
	catalog  catalog.Provider
	sender   notify.Sender
	renderer Renderer
	loc      *time.Location
	logger   *logging.Logger
}

func NewConfirmations(cat catalog.Provider, sender notify.Sender, loc *time.Location, logger *logging.Logger) *Confirmations {
	if logger == nil {
		logger = logging.Default()
	}
	return &Confirmations{catalog: cat, sender: sender, loc: loc, logger: logger}
}

// SendBookingConfirmation texts the customer their booking details. When the
// appointment carries a payment link, it is appended so the deposit request
// rides the same message.
func (c *Confirmations) SendBookingConfirmation(ctx context.Context, appt *appointments.Appointment) error {
	body, err := c.render(ctx, catalog.TemplateConfirmation, appt)
	if err != nil {
		return err
	}
	if body == "" {
		data, dErr := BuildTemplateData(appt, c.loc)
		if dErr != nil {
			return dErr
		}
		body = fmt.Sprintf("Hi %s! Your %s appointment is confirmed for %s at %s with %s.",
			data.CustomerName, data.ServiceName, data.Date, data.Time, appt.Specialist)
	}
	if appt.PaymentURL != "" {
		body += fmt.Sprintf(" A $%.2f deposit holds your spot: %s", appt.DepositAmount, appt.PaymentURL)
	}
	return c.send(ctx, appt.CustomerPhone, body)
}

// SendCancellationConfirmation acknowledges a completed cancellation.
func (c *Confirmations) SendCancellationConfirmation(ctx context.Context, appt *appointments.Appointment) error {
	body, err := c.render(ctx, catalog.TemplateCancellationOK, appt)
	if err != nil {
		return err
	}
	if body == "" {
		data, dErr := BuildTemplateData(appt, c.loc)
		if dErr != nil {
			return dErr
		}
		body = fmt.Sprintf("Hi %s, your %s appointment on %s at %s has been cancelled. We hope to see you again soon!",
			data.CustomerName, data.ServiceName, data.Date, data.Time)
	}
	return c.send(ctx, appt.CustomerPhone, body)
}

// SendRefundNotice tells the customer their deposit refund is on its way.
func (c *Confirmations) SendRefundNotice(ctx context.Context, appt *appointments.Appointment, amountCents int) error {
	body, err := c.render(ctx, catalog.TemplateRefundNotice, appt)
	if err != nil {
		return err
	}
	if body == "" {
		body = fmt.Sprintf("Hi %s, your $%.2f deposit refund has been processed and should appear in 5-10 business days.",
			appt.CustomerName, float64(amountCents)/100)
	}
	return c.send(ctx, appt.CustomerPhone, body)
}

// render returns "" (no error) when the template is missing or disabled so
// callers can fall back to a built-in message.
func (c *Confirmations) render(ctx context.Context, templateType string, appt *appointments.Appointment) (string, error) {
	tpl, err := c.catalog.Template(ctx, templateType)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("messages: confirmation template %s: %w", templateType, err)
	}
	if !tpl.Enabled {
		return "", nil
	}
	data, err := BuildTemplateData(appt, c.loc)
	if err != nil {
		return "", err
	}
	return c.renderer.Render(templateType, tpl.Content, data)
}

func (c *Confirmations) send(ctx context.Context, to, body string) error {
	if c.sender == nil {
		return nil
	}
	if err := c.sender.SendSMS(ctx, to, body); err != nil {
		return fmt.Errorf("messages: send confirmation: %w", err)
	}
	return nil
}
