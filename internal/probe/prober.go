// Package probe issues resilient connectivity checks against external
// endpoints. Unlike the background health monitor, a probe retries transient
// failures with exponential backoff and trips a circuit breaker per target,
// because a probe is a one-shot diagnostic rather than a sampled time series.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the target's circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Result is the outcome of one probe.
type Result struct {
	Target     string        `json:"target"`
	URL        string        `json:"url"`
	Up         bool          `json:"up"`
	StatusCode int           `json:"statusCode,omitempty"`
	Duration   time.Duration `json:"duration"`
	Attempts   int           `json:"attempts"`
	Err        string        `json:"error,omitempty"`
}

// ProberConfig holds configuration for the prober.
type ProberConfig struct {
	Logger zerolog.Logger

	// Timeout bounds each individual attempt. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3.
	MaxRetries uint64

	// InitialInterval is the first backoff interval. Default: 100ms.
	InitialInterval time.Duration

	// MaxInterval caps the backoff interval. Default: 5 seconds.
	MaxInterval time.Duration
}

// Prober checks endpoint reachability with retry and per-target circuit
// breaking.
type Prober struct {
	logger zerolog.Logger
	client *http.Client
	cfg    ProberConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

// NewProber creates a new prober.
func NewProber(cfg ProberConfig) *Prober {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	return &Prober{
		logger:   cfg.Logger,
		client:   &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[int]),
	}
}

func (p *Prober) breaker(target string) *gobreaker.CircuitBreaker[int] {
	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.breakers[target]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
			Name:        target,
			MaxRequests: 1,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && ratio >= 0.5
			},
		})
		p.breakers[target] = cb
	}
	return cb
}

// Probe checks whether the URL answers with a 2xx. Transient failures (5xx,
// network errors) are retried with exponential backoff; a 4xx is not retried
// since the endpoint answered, but the result is still reported as down. The
// error return is reserved for an open circuit or a cancelled context; an
// unreachable target is reported in the result.
func (p *Prober) Probe(ctx context.Context, target, url string) (Result, error) {
	cb := p.breaker(target)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialInterval
	bo.MaxInterval = p.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.MaxRetries), ctx)

	result := Result{Target: target, URL: url}
	start := time.Now()

	operation := func() error {
		result.Attempts++

		status, err := cb.Execute(func() (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				return 0, backoff.Permanent(err)
			}
			resp, err := p.client.Do(req)
			if err != nil {
				return 0, err
			}
			defer func() {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}()

			if resp.StatusCode >= 500 {
				return resp.StatusCode, fmt.Errorf("server error: %s", http.StatusText(resp.StatusCode))
			}
			return resp.StatusCode, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			result.StatusCode = status
			result.Err = err.Error()
			p.logger.Debug().
				Str("target", target).
				Int("attempt", result.Attempts).
				Err(err).
				Msg("probe attempt failed")
			return err
		}

		result.StatusCode = status
		result.Err = ""
		return nil
	}

	err := backoff.Retry(operation, policy)
	result.Duration = time.Since(start)

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return result, ErrCircuitOpen
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		// Retries exhausted; the target is down but the probe itself worked.
		result.Up = false
		return result, nil
	}

	result.Up = result.StatusCode >= 200 && result.StatusCode < 300
	return result, nil
}

// State returns the circuit breaker state for a target.
func (p *Prober) State(target string) gobreaker.State {
	return p.breaker(target).State()
}
