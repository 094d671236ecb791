// Package handlers exposes the scheduling engine over HTTP. Handlers decode
// requests, call the coordinator, and translate domain errors into status
// codes; business rules live below this layer.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radiancemd/spa-scheduler/internal/appointments"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// SchedulingHandler serves the public booking surface.
type SchedulingHandler struct {
	service *appointments.Service
	calc    *appointments.Calculator
	logger  *logging.Logger
}

// NewSchedulingHandler creates the booking handler.
func NewSchedulingHandler(service *appointments.Service, calc *appointments.Calculator, logger *logging.Logger) *SchedulingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulingHandler{service: service, calc: calc, logger: logger}
}

type slotView struct {
	Time           string `json:"time"`
	Conversational string `json:"conversational"`
}

type availabilityResponse struct {
	Date            string     `json:"date"`
	Service         string     `json:"service"`
	DurationMinutes int        `json:"duration_minutes"`
	Open            bool       `json:"open"`
	Slots           []slotView `json:"slots"`
	Suggested       []slotView `json:"suggested,omitempty"`
	Remaining       int        `json:"remaining,omitempty"`
	ClosestBefore   *slotView  `json:"closest_before,omitempty"`
	ClosestAfter    *slotView  `json:"closest_after,omitempty"`
}

// Availability handles GET /availability. With preferred_time it also names
// the nearest open slots on either side; without it, a spread of suggestions
// across the day.
func (h *SchedulingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	service := r.URL.Query().Get("service")
	if date == "" || service == "" {
		writeError(w, http.StatusBadRequest, "date and service are required")
		return
	}

	slots, err := h.calc.AvailableSlots(r.Context(), date, service)
	if err != nil {
		h.logger.Error("availability lookup failed", "date", date, "service", service, "error", err)
		writeError(w, http.StatusBadGateway, "calendar unavailable")
		return
	}

	resp := availabilityResponse{
		Date:            date,
		Service:         service,
		DurationMinutes: h.calc.ServiceDuration(r.Context(), service),
		Open:            len(slots) > 0,
		Slots:           slotViews(slots),
	}

	if preferred := r.URL.Query().Get("preferred_time"); preferred != "" {
		clock, err := appointments.ParseClockTime(preferred)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unrecognized preferred_time")
			return
		}
		before, after := appointments.ClosestSlots(slots, clock)
		if before != nil {
			v := slotView{Time: before.TimeOfDay(), Conversational: before.Conversational()}
			resp.ClosestBefore = &v
		}
		if after != nil {
			v := slotView{Time: after.TimeOfDay(), Conversational: after.Conversational()}
			resp.ClosestAfter = &v
		}
	} else {
		picked, remaining := appointments.SpreadSlots(slots, 5)
		resp.Suggested = slotViews(picked)
		resp.Remaining = remaining
	}

	writeJSON(w, http.StatusOK, resp)
}

// Book handles POST /appointments.
func (h *SchedulingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req appointments.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Book(r.Context(), req)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyBooked {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// BookCustom handles POST /appointments/custom, for services not on the menu.
func (h *SchedulingHandler) BookCustom(w http.ResponseWriter, r *http.Request) {
	var req appointments.CustomBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.BookCustom(r.Context(), req)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyBooked {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// Cancel handles DELETE /appointments/{eventID}.
func (h *SchedulingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	result, err := h.service.Cancel(r.Context(), eventID)
	if err != nil {
		var policyErr *appointments.PolicyError
		switch {
		case errors.Is(err, appointments.ErrNotFound):
			writeError(w, http.StatusNotFound, "appointment not found")
		case errors.As(err, &policyErr):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":           policyErr.Reason,
				"hours_remaining": policyErr.HoursRemaining,
			})
		default:
			h.logger.Error("cancellation failed", "event_id", eventID, "error", err)
			writeError(w, http.StatusInternalServerError, "cancellation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListByPhone handles GET /appointments?phone=.
func (h *SchedulingHandler) ListByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	appts, err := h.service.FindByPhone(r.Context(), phone)
	if err != nil {
		var valErr *appointments.ValidationError
		if errors.As(err, &valErr) {
			writeError(w, http.StatusBadRequest, valErr.Msg)
			return
		}
		h.logger.Error("phone lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appts,
		"count":        len(appts),
	})
}

// Complete handles POST /appointments/{eventID}/complete, releasing any held
// deposit back to the customer after the visit.
func (h *SchedulingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	refund, err := h.service.MarkCompleted(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("completion failed", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "completion failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refund": refund})
}

func (h *SchedulingHandler) writeBookingError(w http.ResponseWriter, err error) {
	var (
		valErr      *appointments.ValidationError
		conflictErr *appointments.ConflictError
		extErr      *appointments.ExternalError
	)
	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":              valErr.Msg,
			"available_services": valErr.AvailableServices,
		})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        conflictErr.Error(),
			"alternatives": slotViews(conflictErr.Alternatives),
			"remaining":    conflictErr.Remaining,
		})
	case errors.As(err, &extErr):
		h.logger.Error("booking dependency failed", "op", extErr.Op, "error", extErr.Err)
		writeError(w, http.StatusBadGateway, "booking temporarily unavailable")
	default:
		h.logger.Error("booking failed", "error", err)
		writeError(w, http.StatusInternalServerError, "booking failed")
	}
}

func slotViews(slots []appointments.Slot) []slotView {
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView{Time: s.TimeOfDay(), Conversational: s.Conversational()})
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
