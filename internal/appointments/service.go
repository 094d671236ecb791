package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
	"github.com/radiancemd/spa-scheduler/internal/observability/metrics"
	"github.com/radiancemd/spa-scheduler/internal/payments"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

var tracer trace.Tracer = otel.Tracer("spa.internal.appointments")

// MessageScheduler is the coordinator's view of the delayed-message queue.
type MessageScheduler interface {
	ScheduleForAppointment(ctx context.Context, appt *Appointment) error
	CancelForAppointment(ctx context.Context, appointmentID string) (int, error)
}

// ConfirmationSender sends the immediate transactional texts.
type ConfirmationSender interface {
	SendBookingConfirmation(ctx context.Context, appt *Appointment) error
	SendCancellationConfirmation(ctx context.Context, appt *Appointment) error
	SendRefundNotice(ctx context.Context, appt *Appointment, amountCents int) error
}

// Service coordinates the full booking and cancellation flows across the
// calendar, the local store, payments, and messaging.
type Service struct {
	store         *Store
	calc          *Calculator
	rotator       *Rotator
	dedupe        *Dedupe
	policy        CancellationPolicy
	calendar      calendar.Provider
	catalog       catalog.Provider
	scheduler     MessageScheduler
	confirmations ConfirmationSender
	deposits      payments.Deposits
	metrics       *metrics.SchedulingMetrics
	loc           *time.Location
	now           func() time.Time
	logger        *logging.Logger
}

// ServiceParams wires a coordinator. Scheduler, confirmations, deposits,
// dedupe and metrics are optional; the booking core works without them.
type ServiceParams struct {
	Store         *Store
	Calculator    *Calculator
	Rotator       *Rotator
	Dedupe        *Dedupe
	Policy        CancellationPolicy
	Calendar      calendar.Provider
	Catalog       catalog.Provider
	Scheduler     MessageScheduler
	Confirmations ConfirmationSender
	Deposits      payments.Deposits
	Metrics       *metrics.SchedulingMetrics
	Location      *time.Location
	Logger        *logging.Logger
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:         p.Store,
		calc:          p.Calculator,
		rotator:       p.Rotator,
		dedupe:        p.Dedupe,
		policy:        p.Policy,
		calendar:      p.Calendar,
		catalog:       p.Catalog,
		scheduler:     p.Scheduler,
		confirmations: p.Confirmations,
		deposits:      p.Deposits,
		metrics:       p.Metrics,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

// BookRequest is a booking for a service on the clinic's menu.
type BookRequest struct {
	CustomerName         string `json:"name"`
	CustomerPhone        string `json:"phone"`
	Date                 string `json:"date"`
	Time                 string `json:"time"`
	Service              string `json:"service"`
	SpecialistPreference string `json:"specialist_preference,omitempty"`
}

// CustomBookRequest bypasses menu validation for one-off services, with
// caller-supplied price and duration and never a deposit.
type CustomBookRequest struct {
	BookRequest
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
}

// BookingResult reports what the booking achieved beyond the appointment
// itself. Degraded outcomes (deposit link failed, local persist failed) are
// flags here, not errors — the appointment exists either way.
type BookingResult struct {
	Appointment       *Appointment `json:"appointment"`
	AlreadyBooked     bool         `json:"already_booked,omitempty"`
	ConfirmationSent  bool         `json:"confirmation_sent"`
	MessagesScheduled bool         `json:"messages_scheduled"`
	DepositError      string       `json:"deposit_error,omitempty"`
	Reconciling       bool         `json:"reconciling,omitempty"`
}

// Book books a menu service. Unknown services are rejected with the current
// service list so the caller can re-prompt.
func (s *Service) Book(ctx context.Context, req BookRequest) (*BookingResult, error) {
	ctx, span := tracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(attribute.String("spa.service", req.Service), attribute.String("spa.date", req.Date))

	svc, err := s.catalog.ServiceByName(ctx, req.Service)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			s.metrics.ObserveBooking("unknown_service", 0)
			return nil, &ValidationError{
				Msg:               fmt.Sprintf("unknown service: %s", req.Service),
				AvailableServices: s.serviceNames(ctx),
			}
		}
		return nil, fmt.Errorf("appointments: resolve service: %w", err)
	}

	return s.book(ctx, req, svc.Name, svc.Price, svc.DurationMinutes, svc.RequiresDeposit, svc.DepositAmount)
}

// BookCustom books an off-menu service without validation.
func (s *Service) BookCustom(ctx context.Context, req CustomBookRequest) (*BookingResult, error) {
	ctx, span := tracer.Start(ctx, "appointments.book_custom")
	defer span.End()

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	return s.book(ctx, req.BookRequest, req.Service, req.Price, duration, false, 0)
}

func (s *Service) book(ctx context.Context, req BookRequest, serviceName string, price float64, durationMinutes int, requiresDeposit bool, depositAmount float64) (*BookingResult, error) {
	started := s.now()
	phone := FormatPhoneE164(req.CustomerPhone)

	if _, err := ParseDateTime(req.Date, req.Time, s.loc); err != nil {
		s.metrics.ObserveBooking("invalid_input", 0)
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid date/time: %s %s", req.Date, req.Time)}
	}

	// A repeated identical request from the same session short-circuits to
	// the original booking instead of double-booking the customer. An entry
	// pointing at a since-cancelled appointment is stale: drop it and let
	// the request book fresh.
	if s.dedupe != nil {
		if eventID, seen := s.dedupe.Seen(ctx, req.CustomerName, phone, req.Date, req.Time, req.Service, req.SpecialistPreference); seen {
			prior, err := s.store.GetByEventID(ctx, eventID)
			if err == nil && prior.Status == StatusCancelled {
				s.logger.Info("dedupe entry pointed at cancelled appointment, rebooking", "event_id", eventID)
				s.dedupe.Forget(ctx, req.CustomerName, phone, req.Date, req.Time, req.Service, req.SpecialistPreference)
			} else {
				s.logger.Info("duplicate booking request short-circuited", "event_id", eventID)
				s.metrics.ObserveBooking("duplicate", s.now().Sub(started).Seconds())
				result := &BookingResult{AlreadyBooked: true}
				if err == nil {
					result.Appointment = prior
				} else {
					result.Appointment = &Appointment{EventID: eventID}
				}
				return result, nil
			}
		}
	}

	free, err := s.calc.SlotAvailable(ctx, req.Date, req.Time, durationMinutes)
	if err != nil {
		return nil, &ExternalError{Op: "availability check", Err: err}
	}
	if !free {
		alternatives, remaining := s.alternativesFor(ctx, req.Date, req.Time, serviceName)
		s.metrics.ObserveBooking("conflict", s.now().Sub(started).Seconds())
		return nil, &ConflictError{Date: req.Date, Time: req.Time, Alternatives: alternatives, Remaining: remaining}
	}

	specialist, _, err := s.rotator.Next(ctx, req.SpecialistPreference)
	if err != nil {
		return nil, err
	}

	start, _ := ParseDateTime(req.Date, req.Time, s.loc)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	summary := fmt.Sprintf("%s - %s", serviceName, req.CustomerName)
	if specialist != "" {
		summary += " with " + specialist
	}

	priceCopy := price
	durationCopy := durationMinutes
	created, err := s.calendar.CreateEvent(ctx, calendar.CreateEventInput{
		Summary: summary,
		Start:   start,
		End:     end,
		Metadata: calendar.EventMetadata{
			CustomerName:  req.CustomerName,
			CustomerPhone: phone,
			Service:       serviceName,
			Specialist:    specialist,
			Price:         &priceCopy,
			Duration:      &durationCopy,
		},
	})
	if err != nil {
		s.metrics.ObserveBooking("calendar_error", s.now().Sub(started).Seconds())
		return nil, &ExternalError{Op: "calendar create", Err: err}
	}

	appt := &Appointment{
		EventID:         created.ID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   phone,
		Service:         req.Service,
		ServiceName:     serviceName,
		Specialist:      specialist,
		Date:            req.Date,
		Time:            req.Time,
		Price:           price,
		DurationMinutes: durationMinutes,
		Status:          StatusConfirmed,
		DepositRequired: requiresDeposit,
		EventURL:        created.URL,
	}

	result := &BookingResult{Appointment: appt}

	// The calendar event exists; a failed local write is repaired by the next
	// reconciliation pass rather than retried here.
	if err := s.store.Upsert(ctx, appt); err != nil {
		s.logger.Error("local persist failed after calendar create, deferring to reconciliation",
			"event_id", appt.EventID, "error", err)
		result.Reconciling = true
	}

	if requiresDeposit && s.deposits != nil {
		link, err := s.deposits.CreateDepositLink(ctx, payments.DepositRequest{
			AppointmentID: appt.EventID,
			CustomerName:  appt.CustomerName,
			CustomerPhone: appt.CustomerPhone,
			ServiceName:   appt.ServiceName,
			AmountCents:   int(depositAmount * 100),
		})
		if err != nil {
			s.logger.Warn("deposit link creation failed, booking stands", "event_id", appt.EventID, "error", err)
			result.DepositError = err.Error()
		} else {
			appt.DepositAmount = depositAmount
			appt.PaymentURL = link.URL
			appt.PaymentLinkID = link.LinkID
			if err := s.store.Update(ctx, appt.EventID, UpdateFields{
				PaymentURL:    &appt.PaymentURL,
				PaymentLinkID: &appt.PaymentLinkID,
			}); err != nil {
				s.logger.Warn("failed to persist payment link", "event_id", appt.EventID, "error", err)
			}
		}
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleForAppointment(ctx, appt); err != nil {
			s.logger.Warn("message scheduling failed, booking stands", "event_id", appt.EventID, "error", err)
		} else {
			result.MessagesScheduled = true
		}
	}

	if s.confirmations != nil {
		if err := s.confirmations.SendBookingConfirmation(ctx, appt); err != nil {
			s.logger.Warn("booking confirmation failed", "event_id", appt.EventID, "error", err)
		} else {
			result.ConfirmationSent = true
		}
	}

	if s.dedupe != nil {
		s.dedupe.Remember(ctx, req.CustomerName, phone, req.Date, req.Time, req.Service, req.SpecialistPreference, appt.EventID)
	}

	s.metrics.ObserveBooking("success", s.now().Sub(started).Seconds())
	s.logger.Info("appointment booked",
		"event_id", appt.EventID, "service", serviceName, "specialist", specialist,
		"date", req.Date, "time", req.Time)
	return result, nil
}

// alternativesFor offers nearby open slots when the requested one is taken:
// closest before/after the asked time, then a day-part spread.
func (s *Service) alternativesFor(ctx context.Context, date, timeOfDay, serviceName string) ([]Slot, int) {
	slots, err := s.calc.AvailableSlots(ctx, date, serviceName)
	if err != nil || len(slots) == 0 {
		return nil, 0
	}
	var alternatives []Slot
	before, after := ClosestSlots(slots, timeOfDay)
	if before != nil {
		alternatives = append(alternatives, *before)
	}
	if after != nil {
		alternatives = append(alternatives, *after)
	}
	if len(alternatives) > 0 {
		return alternatives, len(slots) - len(alternatives)
	}
	return SpreadSlots(slots, 5)
}

func (s *Service) serviceNames(ctx context.Context) []string {
	services, err := s.catalog.Services(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, len(services))
	for i, svc := range services {
		names[i] = svc.Name
	}
	return names
}

// CancelResult reports everything the cancellation did.
type CancelResult struct {
	Appointment          *Appointment           `json:"appointment"`
	MessagesCancelled    int                    `json:"messages_cancelled"`
	Refund               *payments.RefundResult `json:"refund,omitempty"`
	CalendarDeleteFailed bool                   `json:"calendar_delete_failed,omitempty"`
	ConfirmationSent     bool                   `json:"confirmation_sent"`
}

// Cancel cancels an appointment end to end: policy check, deposit refund,
// pending message cancellation, calendar delete, local status flip, and the
// customer confirmation. A calendar delete failure is logged and left for
// reconciliation; the local cancellation stands.
func (s *Service) Cancel(ctx context.Context, eventID string) (*CancelResult, error) {
	ctx, span := tracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("spa.event_id", eventID))

	appt, err := s.store.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		s.metrics.ObserveCancellation("already_cancelled")
		return &CancelResult{Appointment: appt}, nil
	}

	if err := s.policy.Validate(appt, s.now()); err != nil {
		s.metrics.ObserveCancellation("denied")
		return nil, err
	}

	result := &CancelResult{Appointment: appt}

	if s.deposits != nil {
		refund, err := s.deposits.RefundByAppointment(ctx, eventID, "Appointment cancelled")
		if err != nil {
			s.logger.Warn("deposit refund failed, continuing cancellation", "event_id", eventID, "error", err)
		} else {
			result.Refund = refund
		}
	}

	if s.scheduler != nil {
		n, err := s.scheduler.CancelForAppointment(ctx, eventID)
		if err != nil {
			s.logger.Warn("message cancellation failed", "event_id", eventID, "error", err)
		} else {
			result.MessagesCancelled = n
		}
	}

	if err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			s.logger.Info("event already gone from calendar", "event_id", eventID)
		} else {
			s.logger.Error("calendar delete failed, reconciliation will retry", "event_id", eventID, "error", err)
			result.CalendarDeleteFailed = true
		}
	}

	if err := s.store.MarkCancelled(ctx, eventID); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled

	// Clear the booking dedupe entry so the customer can rebook the same
	// slot right away. The entry may have been keyed with an empty
	// preference or with the assigned specialist.
	if s.dedupe != nil {
		s.dedupe.Forget(ctx, appt.CustomerName, appt.CustomerPhone, appt.Date, appt.Time, appt.Service, "")
		s.dedupe.Forget(ctx, appt.CustomerName, appt.CustomerPhone, appt.Date, appt.Time, appt.Service, appt.Specialist)
	}

	if s.confirmations != nil {
		if err := s.confirmations.SendCancellationConfirmation(ctx, appt); err != nil {
			s.logger.Warn("cancellation confirmation failed", "event_id", eventID, "error", err)
		} else {
			result.ConfirmationSent = true
		}
		if result.Refund != nil && !result.Refund.Skipped {
			if err := s.confirmations.SendRefundNotice(ctx, appt, result.Refund.AmountCents); err != nil {
				s.logger.Warn("refund notice failed", "event_id", eventID, "error", err)
			}
		}
	}

	s.metrics.ObserveCancellation("success")
	s.logger.Info("appointment cancelled", "event_id", eventID, "messages_cancelled", result.MessagesCancelled)
	return result, nil
}

// FindByPhone returns the customer's upcoming confirmed appointments,
// soonest first. Phone input tolerates any common format.
func (s *Service) FindByPhone(ctx context.Context, phone string) ([]Appointment, error) {
	normalized := FormatPhoneE164(phone)
	today := s.now().In(s.loc).Format(DateLayout)
	return s.store.ListUpcomingByPhone(ctx, normalized, today)
}

// MarkCompleted handles a customer showing up: the show-up deposit is
// refunded and the customer is told.
func (s *Service) MarkCompleted(ctx context.Context, eventID string) (*payments.RefundResult, error) {
	appt, err := s.store.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if s.deposits == nil {
		return &payments.RefundResult{Skipped: true, Reason: "payments not configured"}, nil
	}
	refund, err := s.deposits.RefundByAppointment(ctx, eventID, "Customer showed up")
	if err != nil {
		return nil, err
	}
	if !refund.Skipped && s.confirmations != nil {
		if err := s.confirmations.SendRefundNotice(ctx, appt, refund.AmountCents); err != nil {
			s.logger.Warn("refund notice failed", "event_id", eventID, "error", err)
		}
	}
	return refund, nil
}
