package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/govmigrate/govmigrate/internal/api/models"
	"github.com/govmigrate/govmigrate/internal/api/response"
	"github.com/govmigrate/govmigrate/internal/health"
)

// AlertsHandler handles alert lifecycle endpoints.
type AlertsHandler struct {
	alerts *health.AlertManager
}

// NewAlertsHandler creates a new AlertsHandler.
func NewAlertsHandler(alerts *health.AlertManager) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// ListAlerts handles GET /v1/alerts - list alerts, active only by default.
// Pass ?all=true to include resolved alerts.
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	alerts := h.alerts.Alerts(activeOnly)
	response.JSON(w, r, http.StatusOK, models.AlertsResponse{Alerts: alerts})
}

// GetAlert handles GET /v1/alerts/{alertId}.
func (h *AlertsHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerts.Get(chi.URLParam(r, "alertId"))
	if err != nil {
		response.NotFound(w, r, "alert not found")
		return
	}
	response.JSON(w, r, http.StatusOK, alert)
}

// AcknowledgeAlert handles POST /v1/alerts/{alertId}/ack.
func (h *AlertsHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "alertId")
	if err := h.alerts.Acknowledge(id); err != nil {
		if errors.Is(err, health.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to acknowledge alert")
		return
	}

	alert, err := h.alerts.Get(id)
	if err != nil {
		response.InternalError(w, r, "failed to load alert")
		return
	}
	response.JSON(w, r, http.StatusOK, alert)
}

// ResolveAlert handles POST /v1/alerts/{alertId}/resolve.
func (h *AlertsHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "alertId")
	if err := h.alerts.Resolve(id); err != nil {
		if errors.Is(err, health.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to resolve alert")
		return
	}

	alert, err := h.alerts.Get(id)
	if err != nil {
		response.InternalError(w, r, "failed to load alert")
		return
	}
	response.JSON(w, r, http.StatusOK, alert)
}
