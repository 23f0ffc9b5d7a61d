// Package health polls the backend governance services' health endpoints,
// maintains per-service rolling status records, and raises alerts when
// configured thresholds are crossed.
package health

import "time"

// Status is the health state of one monitored service.
type Status string

// Service health states.
const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Record is the cached status and rolling metrics for one backend service.
// Records are created on first check, updated on every poll, and live for
// the monitor's lifetime.
type Record struct {
	Service             string        `json:"service"`
	Status              Status        `json:"status"`
	LastChecked         time.Time     `json:"lastChecked"`
	ResponseTime        time.Duration `json:"responseTime"`
	AvgResponseTime     time.Duration `json:"avgResponseTime"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	TotalChecks         int64         `json:"totalChecks"`
	TotalFailures       int64         `json:"totalFailures"`
	LastError           string        `json:"lastError,omitempty"`
}

// ErrorRate returns the fraction of checks that failed, 0 before any check.
func (r Record) ErrorRate() float64 {
	if r.TotalChecks == 0 {
		return 0
	}
	return float64(r.TotalFailures) / float64(r.TotalChecks)
}

// Uptime returns the fraction of checks that succeeded, 1 before any check.
func (r Record) Uptime() float64 {
	return 1 - r.ErrorRate()
}

// Snapshot is the aggregate result of one round of checks.
type Snapshot struct {
	CheckedAt time.Time         `json:"checkedAt"`
	Records   map[string]Record `json:"records"`
}

// Overall reduces the snapshot to a single status: unhealthy if any service
// is unhealthy, unknown if any service has not been checked, healthy
// otherwise.
func (s Snapshot) Overall() Status {
	if len(s.Records) == 0 {
		return StatusUnknown
	}
	overall := StatusHealthy
	for _, rec := range s.Records {
		switch rec.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusUnknown:
			overall = StatusUnknown
		}
	}
	return overall
}
