package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrMonitorRunning is returned when Start is called on a running monitor.
var ErrMonitorRunning = errors.New("monitor already running")

// ErrUnknownMode is returned for a polling mode outside the closed set.
var ErrUnknownMode = errors.New("unknown monitoring mode")

// Mode selects the polling cadence.
type Mode string

// Monitoring modes.
const (
	ModeFast   Mode = "fast"
	ModeNormal Mode = "normal"
	ModeSlow   Mode = "slow"
)

var modeIntervals = map[Mode]time.Duration{
	ModeFast:   10 * time.Second,
	ModeNormal: 30 * time.Second,
	ModeSlow:   2 * time.Minute,
}

// ParseMode validates a raw mode name against the closed mode set.
func ParseMode(s string) (Mode, error) {
	mode := Mode(s)
	if _, ok := modeIntervals[mode]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return mode, nil
}

// ModeInterval returns the polling interval for the mode. The zero value
// falls back to normal.
func ModeInterval(m Mode) time.Duration {
	if interval, ok := modeIntervals[m]; ok {
		return interval
	}
	return modeIntervals[ModeNormal]
}

// Thresholds configures when checks raise alerts.
type Thresholds struct {
	// ConsecutiveFailures raises a critical service-failure alert when
	// reached. Default 3.
	ConsecutiveFailures int

	// ResponseTime raises a slow-response alert when a successful check
	// exceeds it. Default 2s.
	ResponseTime time.Duration

	// ErrorRate raises a high-error-rate alert when exceeded. Default 0.10.
	ErrorRate float64

	// Uptime raises a low-uptime alert when the success ratio drops below
	// it. Default 0.99.
	Uptime float64

	// MinChecks gates the rate-based thresholds so a single early failure
	// does not trip them. Default 10.
	MinChecks int64
}

// DefaultThresholds returns the standard alerting thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConsecutiveFailures: 3,
		ResponseTime:        2 * time.Second,
		ErrorRate:           0.10,
		Uptime:              0.99,
		MinChecks:           10,
	}
}

// MonitorConfig holds configuration for the health monitor.
type MonitorConfig struct {
	Registry *Registry
	Logger   zerolog.Logger

	// Alerts receives threshold crossings. Optional; no alerting when nil.
	Alerts *AlertManager

	// Client issues the health check requests. Defaults to a plain
	// http.Client; per-check timeouts come from CheckTimeout.
	Client *http.Client

	// CheckTimeout bounds each individual health check. Default 5s.
	CheckTimeout time.Duration

	// Thresholds for alerting. Zero value uses DefaultThresholds.
	Thresholds Thresholds

	// CacheTTL is how long Status serves the last aggregate snapshot
	// before forcing a fresh round of checks. Default 5s.
	CacheTTL time.Duration

	// Mode is the initial polling cadence. Default normal.
	Mode Mode

	// Metrics records check outcomes and snapshot cache usage. Optional.
	Metrics *CheckMetrics

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Monitor polls the registered services and owns their health records.
// Checks never fail on an unhealthy dependency; failure is captured in the
// returned record so one down service cannot abort monitoring the others.
type Monitor struct {
	registry     *Registry
	logger       zerolog.Logger
	alerts       *AlertManager
	client       *http.Client
	checkTimeout time.Duration
	thresholds   Thresholds
	cacheTTL     time.Duration
	metrics      *CheckMetrics
	now          func() time.Time

	mu         sync.RWMutex
	records    map[string]*Record
	snapshot   Snapshot
	snapshotAt time.Time
	mode       Mode

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	modeCh chan struct{}
}

// NewMonitor creates a new health monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	checkTimeout := cfg.CheckTimeout
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	thresholds := cfg.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Second
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeNormal
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		registry:     cfg.Registry,
		logger:       cfg.Logger,
		alerts:       cfg.Alerts,
		client:       client,
		checkTimeout: checkTimeout,
		thresholds:   thresholds,
		cacheTTL:     cacheTTL,
		metrics:      cfg.Metrics,
		now:          now,
		records:      make(map[string]*Record),
		mode:         mode,
		modeCh:       make(chan struct{}, 1),
	}
}

// CheckService issues one health check for the given service key and
// updates its record. The only error condition is an unknown key; an
// unhealthy or unreachable service is reported in the record.
func (m *Monitor) CheckService(ctx context.Context, key string) (Record, error) {
	svc, err := m.registry.Get(key)
	if err != nil {
		return Record{}, err
	}

	healthy, responseTime, checkErr := m.probe(ctx, svc)
	m.metrics.RecordCheck(svc.Key, responseTime, healthy)

	errMsg := ""
	if checkErr != nil {
		errMsg = checkErr.Error()
	}
	record := m.apply(svc.Key, healthy, responseTime, errMsg)

	m.logger.Debug().
		Str("service", svc.Key).
		Str("status", string(record.Status)).
		Dur("response_time", responseTime).
		Int("consecutive_failures", record.ConsecutiveFailures).
		Msg("health check completed")

	return record, nil
}

func (m *Monitor) probe(ctx context.Context, svc Service) (bool, time.Duration, error) {
	checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, svc.BaseURL+"/health", http.NoBody)
	if err != nil {
		return false, 0, err
	}

	start := m.now()
	resp, err := m.client.Do(req)
	elapsed := m.now().Sub(start)
	if err != nil {
		return false, elapsed, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, elapsed, fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return true, elapsed, nil
}

// apply folds one check outcome into the service's record and evaluates
// alert thresholds against the updated state.
func (m *Monitor) apply(key string, healthy bool, responseTime time.Duration, errMsg string) Record {
	m.mu.Lock()
	rec, ok := m.records[key]
	if !ok {
		rec = &Record{Service: key, Status: StatusUnknown}
		m.records[key] = rec
	}

	prev := rec.Status
	rec.LastChecked = m.now()
	rec.TotalChecks++
	rec.ResponseTime = responseTime

	if healthy {
		rec.Status = StatusHealthy
		rec.ConsecutiveFailures = 0
		rec.LastError = ""
		successes := rec.TotalChecks - rec.TotalFailures
		rec.AvgResponseTime += (responseTime - rec.AvgResponseTime) / time.Duration(successes)
	} else {
		rec.Status = StatusUnhealthy
		rec.ConsecutiveFailures++
		rec.TotalFailures++
		rec.LastError = errMsg
	}

	snapshot := *rec
	m.mu.Unlock()

	m.evaluate(prev, snapshot)
	return snapshot
}

func (m *Monitor) evaluate(prev Status, rec Record) {
	if m.alerts == nil {
		return
	}

	switch rec.Status {
	case StatusHealthy:
		if prev == StatusUnhealthy {
			m.alerts.RaiseImmediate(TypeRecovery, SeverityInfo, rec.Service,
				fmt.Sprintf("%s recovered", rec.Service), nil)
		}
		if rec.ResponseTime > m.thresholds.ResponseTime {
			m.alerts.Raise(TypeSlowResponse, SeverityMedium, rec.Service,
				fmt.Sprintf("%s responded in %s", rec.Service, rec.ResponseTime),
				map[string]string{"response_time": rec.ResponseTime.String()})
		}
	case StatusUnhealthy:
		if rec.ConsecutiveFailures >= m.thresholds.ConsecutiveFailures {
			m.alerts.Raise(TypeServiceFailure, SeverityCritical, rec.Service,
				fmt.Sprintf("%s failed %d consecutive health checks", rec.Service, rec.ConsecutiveFailures),
				map[string]string{
					"consecutive_failures": strconv.Itoa(rec.ConsecutiveFailures),
					"last_error":           rec.LastError,
				})
		}
	}

	if rec.TotalChecks >= m.thresholds.MinChecks {
		if rec.ErrorRate() > m.thresholds.ErrorRate {
			m.alerts.Raise(TypeHighErrorRate, SeverityHigh, rec.Service,
				fmt.Sprintf("%s error rate %.0f%%", rec.Service, rec.ErrorRate()*100), nil)
		}
		if rec.Uptime() < m.thresholds.Uptime {
			m.alerts.Raise(TypeLowUptime, SeverityLow, rec.Service,
				fmt.Sprintf("%s uptime %.1f%%", rec.Service, rec.Uptime()*100), nil)
		}
	}
}

// CheckAllServices checks every registered service concurrently with
// all-settle semantics: each check is independently timeout-bounded, and a
// hung service delays the aggregate by at most its own timeout.
func (m *Monitor) CheckAllServices(ctx context.Context) Snapshot {
	keys := m.registry.Keys()
	results := make(map[string]Record, len(keys))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			rec, err := m.CheckService(ctx, key)
			if err != nil {
				// Registry keys are fixed; this only happens on a
				// programming error.
				m.logger.Error().Err(err).Str("service", key).Msg("health check failed")
				return
			}
			mu.Lock()
			results[key] = rec
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	snap := Snapshot{CheckedAt: m.now(), Records: results}

	m.mu.Lock()
	m.snapshot = snap
	m.snapshotAt = snap.CheckedAt
	m.mu.Unlock()

	return snap
}

// Status returns the last aggregate snapshot if it is fresher than the
// cache TTL, otherwise runs a new round of checks. This lets many UI
// consumers read current status without a network round trip per read.
func (m *Monitor) Status(ctx context.Context) Snapshot {
	m.mu.RLock()
	if !m.snapshotAt.IsZero() && m.now().Sub(m.snapshotAt) < m.cacheTTL {
		snap := m.cloneSnapshotLocked()
		m.mu.RUnlock()
		m.metrics.RecordCacheHit()
		return snap
	}
	m.mu.RUnlock()

	m.metrics.RecordCacheMiss()
	return m.CheckAllServices(ctx)
}

func (m *Monitor) cloneSnapshotLocked() Snapshot {
	records := make(map[string]Record, len(m.snapshot.Records))
	for k, v := range m.snapshot.Records {
		records[k] = v
	}
	return Snapshot{CheckedAt: m.snapshot.CheckedAt, Records: records}
}

// Record returns the current record for one service, if it has been checked.
func (m *Monitor) Record(key string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Mode returns the current polling mode.
func (m *Monitor) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetMode switches the polling cadence. The running poll loop restarts its
// timer with the new interval; there is never more than one timer for the
// service set.
func (m *Monitor) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()

	m.logger.Info().Str("mode", string(mode)).Msg("monitoring mode changed")

	select {
	case m.modeCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *Monitor) interval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ModeInterval(m.mode)
}

// Start launches the polling loop. It returns ErrMonitorRunning if the
// loop is already active.
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return ErrMonitorRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.Info().
		Str("mode", string(m.Mode())).
		Int("services", m.registry.Len()).
		Msg("health monitor started")

	go m.run(loopCtx, m.done)
	return nil
}

func (m *Monitor) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	// Immediate first round so the snapshot is warm before the first tick.
	m.CheckAllServices(ctx)

	timer := time.NewTimer(m.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.modeCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.interval())
		case <-timer.C:
			m.CheckAllServices(ctx)
			timer.Reset(m.interval())
		}
	}
}

// Stop cancels the polling loop and waits for it to exit. In-flight checks
// are cancelled with the loop context and their results discarded.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	m.logger.Info().Msg("health monitor stopped")
}

// Reset clears all records and the snapshot cache, for test isolation.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]*Record)
	m.snapshot = Snapshot{}
	m.snapshotAt = time.Time{}
}
