package handler

import (
	"net/http"
	"time"

	"github.com/govmigrate/govmigrate/internal/api/models"
	"github.com/govmigrate/govmigrate/internal/api/response"
	"github.com/govmigrate/govmigrate/internal/health"
)

// OpsHandler handles operational endpoints for the gateway itself.
type OpsHandler struct {
	version   string
	buildTime string
	monitor   *health.Monitor
}

// NewOpsHandler creates a new OpsHandler. The monitor is optional; readiness
// degrades to a plain liveness answer without it.
func NewOpsHandler(version, buildTime string, monitor *health.Monitor) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		monitor:   monitor,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthResp := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, healthResp)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The gateway is
// ready as soon as it can serve; backend unhealth is reported as degraded,
// not failure, because the control plane must stay reachable during incidents.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	if h.monitor != nil {
		if snap := h.monitor.Status(r.Context()); snap.Overall() == health.StatusUnhealthy {
			status = models.HealthStatusDegraded
		}
	}

	healthResp := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, healthResp)
}
