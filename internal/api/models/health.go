package models

import (
	"github.com/govmigrate/govmigrate/internal/health"
)

// ServiceStatus is the API view of one monitored backend service.
type ServiceStatus struct {
	Service             string        `json:"service"`
	Status              health.Status `json:"status"`
	LastChecked         Timestamp     `json:"lastChecked"`
	ResponseTimeMs      int64         `json:"responseTimeMs"`
	AvgResponseTimeMs   int64         `json:"avgResponseTimeMs"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	ErrorRate           float64       `json:"errorRate"`
	Uptime              float64       `json:"uptime"`
	LastError           string        `json:"lastError,omitempty"`
}

// NewServiceStatus converts a health record to its API representation.
func NewServiceStatus(rec health.Record) ServiceStatus {
	return ServiceStatus{
		Service:             rec.Service,
		Status:              rec.Status,
		LastChecked:         Timestamp(rec.LastChecked),
		ResponseTimeMs:      rec.ResponseTime.Milliseconds(),
		AvgResponseTimeMs:   rec.AvgResponseTime.Milliseconds(),
		ConsecutiveFailures: rec.ConsecutiveFailures,
		ErrorRate:           rec.ErrorRate(),
		Uptime:              rec.Uptime(),
		LastError:           rec.LastError,
	}
}

// StatusResponse is the aggregate backend status.
type StatusResponse struct {
	Overall   health.Status   `json:"overall"`
	CheckedAt Timestamp       `json:"checkedAt"`
	Services  []ServiceStatus `json:"services"`
	Mode      health.Mode     `json:"mode"`
}

// UpdateModeRequest switches the monitoring cadence.
type UpdateModeRequest struct {
	Mode string `json:"mode"`
}

// AlertsResponse lists alerts.
type AlertsResponse struct {
	Alerts []health.Alert `json:"alerts"`
}
