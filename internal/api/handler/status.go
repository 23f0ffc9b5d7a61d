package handler

import (
	"encoding/json"
	"net/http"

	"github.com/govmigrate/govmigrate/internal/api/models"
	"github.com/govmigrate/govmigrate/internal/api/response"
	"github.com/govmigrate/govmigrate/internal/health"
)

// StatusHandler handles backend service status endpoints.
type StatusHandler struct {
	monitor  *health.Monitor
	registry *health.Registry
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(monitor *health.Monitor, registry *health.Registry) *StatusHandler {
	return &StatusHandler{monitor: monitor, registry: registry}
}

func (h *StatusHandler) statusResponse(snap health.Snapshot) models.StatusResponse {
	services := make([]models.ServiceStatus, 0, len(snap.Records))
	// Registration order keeps the response stable across polls.
	for _, key := range h.registry.Keys() {
		if rec, ok := snap.Records[key]; ok {
			services = append(services, models.NewServiceStatus(rec))
		}
	}
	return models.StatusResponse{
		Overall:   snap.Overall(),
		CheckedAt: models.Timestamp(snap.CheckedAt),
		Services:  services,
		Mode:      h.monitor.Mode(),
	}
}

// GetStatus handles GET /v1/status - cached aggregate backend status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.monitor.Status(r.Context())
	response.JSON(w, r, http.StatusOK, h.statusResponse(snap))
}

// CheckNow handles POST /v1/status/check - force a fresh round of checks.
func (h *StatusHandler) CheckNow(w http.ResponseWriter, r *http.Request) {
	snap := h.monitor.CheckAllServices(r.Context())
	response.JSON(w, r, http.StatusOK, h.statusResponse(snap))
}

// UpdateMode handles PUT /v1/status/mode - switch the monitoring cadence.
func (h *StatusHandler) UpdateMode(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	mode, err := health.ParseMode(req.Mode)
	if err != nil {
		response.BadRequest(w, r, "unknown monitoring mode", []models.FieldError{
			{Field: "mode", Message: "must be one of fast, normal, slow", Code: "invalid"},
		})
		return
	}

	if err := h.monitor.SetMode(mode); err != nil {
		response.InternalError(w, r, "failed to set monitoring mode")
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]health.Mode{"mode": h.monitor.Mode()})
}
