package broker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics("meshbroker_test", reg)
	assert.NoError(t, err)

	m.setPeerCount(3)
	m.incReconnects(2)
	m.incMalformed()
	m.incRouterIn()
	m.incRouterOut()
	m.incSubIn()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.peerCount))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.reconnects))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.malformed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.routerMsgsIn))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.routerMsgsOut))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subMsgsIn))
}

func TestMetricsNilRegistrySkipsRegistration(t *testing.T) {
	m, err := NewMetrics("meshbroker_test", nil)
	assert.NoError(t, err)
	assert.NotPanics(t, func() {
		m.incReconnects(1)
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconnects))
}

func TestMetricsSharedRegistryAcrossEnvs(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics("meshbroker_shared", reg)
	assert.NoError(t, err)

	_, err = NewMetrics("meshbroker_shared", reg)
	assert.NoError(t, err, "a second ClientEnv on the same registry must not panic or error")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.setPeerCount(1)
		m.incReconnects(1)
		m.incMalformed()
		m.incRouterIn()
		m.incRouterOut()
		m.incSubIn()
	})
}
