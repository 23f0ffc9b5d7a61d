package health_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govmigrate/govmigrate/internal/health"
)

func TestNewCheckMetrics(t *testing.T) {
	metrics, err := health.NewCheckMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics)

	// Should not panic
	metrics.RecordCheck("auth", 25*time.Millisecond, true)
	metrics.RecordCacheHit()
	metrics.RecordCacheMiss()
}

func TestCheckMetrics_NilReceiverIsNoop(t *testing.T) {
	var metrics *health.CheckMetrics

	// A monitor without metrics configured records nothing and must not panic.
	metrics.RecordCheck("auth", time.Millisecond, false)
	metrics.RecordCacheHit()
	metrics.RecordCacheMiss()
}
