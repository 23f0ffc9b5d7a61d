package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govmigrate/govmigrate/internal/probe"
)

func TestProber_UpTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	prober := probe.NewProber(probe.ProberConfig{Logger: zerolog.Nop()})

	result, err := prober.Probe(context.Background(), "auth", server.URL)
	require.NoError(t, err)

	assert.True(t, result.Up)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
}

func TestProber_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := probe.NewProber(probe.ProberConfig{
		Logger:          zerolog.Nop(),
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	})

	result, err := prober.Probe(context.Background(), "synthesis", server.URL)
	require.NoError(t, err)

	assert.True(t, result.Up)
	assert.Equal(t, 3, result.Attempts, "should have retried until success")
}

func TestProber_ExhaustedRetriesReportDown(t *testing.T) {
	prober := probe.NewProber(probe.ProberConfig{
		Logger:          zerolog.Nop(),
		Timeout:         200 * time.Millisecond,
		MaxRetries:      2,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
	})

	result, err := prober.Probe(context.Background(), "devnet", "http://127.0.0.1:1/health")
	require.NoError(t, err, "an unreachable target is a result, not a probe error")

	assert.False(t, result.Up)
	assert.Equal(t, 3, result.Attempts)
	assert.NotEmpty(t, result.Err)
}

func TestProber_ClientErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	prober := probe.NewProber(probe.ProberConfig{
		Logger:          zerolog.Nop(),
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
	})

	result, err := prober.Probe(context.Background(), "compliance", server.URL)
	require.NoError(t, err)

	assert.False(t, result.Up)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, int32(1), attempts.Load(), "4xx should not be retried")
}

func TestProber_CircuitBreakerTrips(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	prober := probe.NewProber(probe.ProberConfig{
		Logger:          zerolog.Nop(),
		MaxRetries:      2,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	})

	ctx := context.Background()

	// Each probe makes up to 3 attempts; after enough failures the breaker
	// opens and subsequent probes fail fast.
	for i := 0; i < 3; i++ {
		_, _ = prober.Probe(ctx, "principles", server.URL)
	}

	_, err := prober.Probe(ctx, "principles", server.URL)
	require.ErrorIs(t, err, probe.ErrCircuitOpen)
}

func TestProber_BreakersAreIndependentPerTarget(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	prober := probe.NewProber(probe.ProberConfig{
		Logger:          zerolog.Nop(),
		MaxRetries:      2,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = prober.Probe(ctx, "principles", failing.URL)
	}

	result, err := prober.Probe(ctx, "auth", healthy.URL)
	require.NoError(t, err)
	assert.True(t, result.Up)
}
