package handlers

import (
	"net/http"
	"strconv"

	"github.com/radiancemd/spa-scheduler/internal/messages"
	"github.com/radiancemd/spa-scheduler/internal/reconcile"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// AdminHandler serves the JWT-guarded operator endpoints.
type AdminHandler struct {
	reconciler *reconcile.Reconciler
	messages   *messages.Store
	logger     *logging.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(reconciler *reconcile.Reconciler, msgStore *messages.Store, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{reconciler: reconciler, messages: msgStore, logger: logger}
}

// Reconcile handles POST /admin/reconcile: one on-demand sync pass against
// the calendar, same code path as the scheduled job.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reconciler.ReconcileOnce(r.Context())
	if err != nil {
		h.logger.Error("manual reconcile failed", "error", err)
		writeError(w, http.StatusBadGateway, "reconcile failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Messages handles GET /admin/messages: the scheduled-message queue, newest
// first, for operator inspection.
func (h *AdminHandler) Messages(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := h.messages.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("message list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "message list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}
