package health

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrAlertNotFound is returned when acknowledging or resolving an unknown
// alert ID.
var ErrAlertNotFound = errors.New("alert not found")

// DefaultCooldown is how long the same (service, type) pair is suppressed
// after an alert fires.
const DefaultCooldown = 5 * time.Minute

// Severity ranks an alert.
type Severity string

// Alert severities.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AlertType classifies what threshold was crossed.
type AlertType string

// Alert types.
const (
	TypeServiceFailure AlertType = "service-failure"
	TypeSlowResponse   AlertType = "slow-response"
	TypeHighErrorRate  AlertType = "high-error-rate"
	TypeLowUptime      AlertType = "low-uptime"
	TypeRecovery       AlertType = "recovery"
)

// Alert is a raised notification. Alerts are never hard-deleted; resolved
// alerts are filtered out of active views.
type Alert struct {
	ID             string            `json:"id"`
	Type           AlertType         `json:"type"`
	Severity       Severity          `json:"severity"`
	Service        string            `json:"service,omitempty"`
	Message        string            `json:"message"`
	CreatedAt      time.Time         `json:"createdAt"`
	AcknowledgedAt *time.Time        `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time        `json:"resolvedAt,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Active reports whether the alert has not been resolved.
func (a Alert) Active() bool {
	return a.ResolvedAt == nil
}

type dedupeKey struct {
	service string
	typ     AlertType
}

// AlertManagerConfig holds configuration for the alert manager.
type AlertManagerConfig struct {
	Logger zerolog.Logger

	// Cooldown suppresses repeats of the same (service, type) pair.
	// Defaults to DefaultCooldown.
	Cooldown time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// AlertManager owns the alert collection: raising with deduplication,
// acknowledge/resolve lifecycle, and callback fan-out.
type AlertManager struct {
	logger   zerolog.Logger
	cooldown time.Duration
	now      func() time.Time

	mu         sync.Mutex
	alerts     []*Alert
	byID       map[string]*Alert
	lastRaised map[dedupeKey]time.Time

	cbMu      sync.Mutex
	nextID    int
	callbacks map[int]func(Alert)
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(cfg AlertManagerConfig) *AlertManager {
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AlertManager{
		logger:     cfg.Logger,
		cooldown:   cooldown,
		now:        now,
		byID:       make(map[string]*Alert),
		lastRaised: make(map[dedupeKey]time.Time),
		callbacks:  make(map[int]func(Alert)),
	}
}

// Raise creates an alert unless the same (service, type) pair already fired
// within the cooldown window. Returns nil when suppressed.
func (m *AlertManager) Raise(typ AlertType, severity Severity, service, message string, metadata map[string]string) *Alert {
	return m.raise(typ, severity, service, message, metadata, true)
}

// RaiseImmediate creates an alert bypassing the cooldown. Used for
// transition alerts (recovery) that must fire exactly once per transition
// regardless of recent history.
func (m *AlertManager) RaiseImmediate(typ AlertType, severity Severity, service, message string, metadata map[string]string) *Alert {
	return m.raise(typ, severity, service, message, metadata, false)
}

func (m *AlertManager) raise(typ AlertType, severity Severity, service, message string, metadata map[string]string, dedupe bool) *Alert {
	m.mu.Lock()
	now := m.now()
	key := dedupeKey{service: service, typ: typ}

	if dedupe {
		if last, ok := m.lastRaised[key]; ok && now.Sub(last) < m.cooldown {
			m.mu.Unlock()
			return nil
		}
	}

	alert := &Alert{
		ID:        uuid.New().String(),
		Type:      typ,
		Severity:  severity,
		Service:   service,
		Message:   message,
		CreatedAt: now,
		Metadata:  metadata,
	}
	m.alerts = append(m.alerts, alert)
	m.byID[alert.ID] = alert
	m.lastRaised[key] = now
	snapshot := *alert
	m.mu.Unlock()

	m.logger.Warn().
		Str("alert_id", snapshot.ID).
		Str("type", string(typ)).
		Str("severity", string(severity)).
		Str("service", service).
		Msg(message)

	m.notify(snapshot)
	return &snapshot
}

// Acknowledge marks an alert as seen by an operator.
func (m *AlertManager) Acknowledge(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[id]
	if !ok {
		return ErrAlertNotFound
	}
	if alert.AcknowledgedAt == nil {
		now := m.now()
		alert.AcknowledgedAt = &now
	}
	return nil
}

// Resolve marks an alert as resolved. Resolved alerts stay in the
// collection but drop out of active views.
func (m *AlertManager) Resolve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[id]
	if !ok {
		return ErrAlertNotFound
	}
	if alert.ResolvedAt == nil {
		now := m.now()
		alert.ResolvedAt = &now
	}
	return nil
}

// Alerts returns a copy of the alert collection, newest last. With
// activeOnly, resolved alerts are filtered out.
func (m *AlertManager) Alerts(activeOnly bool) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if activeOnly && !alert.Active() {
			continue
		}
		out = append(out, *alert)
	}
	return out
}

// Get returns the alert with the given ID.
func (m *AlertManager) Get(id string) (Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[id]
	if !ok {
		return Alert{}, ErrAlertNotFound
	}
	return *alert, nil
}

// Subscribe registers a callback invoked for every raised alert and returns
// a function that removes it. A panicking callback is isolated and never
// prevents delivery to the others.
func (m *AlertManager) Subscribe(fn func(Alert)) func() {
	m.cbMu.Lock()
	id := m.nextID
	m.nextID++
	m.callbacks[id] = fn
	m.cbMu.Unlock()

	return func() {
		m.cbMu.Lock()
		delete(m.callbacks, id)
		m.cbMu.Unlock()
	}
}

// Reset clears the alert collection and cooldown state, for test isolation.
func (m *AlertManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = nil
	m.byID = make(map[string]*Alert)
	m.lastRaised = make(map[dedupeKey]time.Time)
}

func (m *AlertManager) notify(alert Alert) {
	m.cbMu.Lock()
	callbacks := make([]func(Alert), 0, len(m.callbacks))
	for _, fn := range m.callbacks {
		callbacks = append(callbacks, fn)
	}
	m.cbMu.Unlock()

	for _, fn := range callbacks {
		m.safeNotify(fn, alert)
	}
}

func (m *AlertManager) safeNotify(fn func(Alert), alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("alert_id", alert.ID).
				Interface("panic", r).
				Msg("alert callback panicked")
		}
	}()
	fn(alert)
}
