package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func seriesCount(t *testing.T, tel *Telemetry, name string) int {
	t.Helper()
	families, err := tel.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestTelemetrySetup(t *testing.T) {
	tel, err := Setup(Options{
		ServiceName:    "test-service",
		ServiceVersion: "v0.0.1",
		Environment:    "testnet",
		Attributes:     map[string]string{"team": "risk"},
		Metrics:        true,
	})
	require.NoError(t, err)

	assert.NotNil(t, otel.GetTracerProvider())
	assert.NotNil(t, otel.GetMeterProvider())
	assert.NotNil(t, GetTracer("test-tracer"))
	assert.NotNil(t, GetMeter("test-meter"))
	assert.NotNil(t, tel.Gatherer())

	m := GetGlobalMetrics()
	assert.NotNil(t, m.PositionsServed)
	assert.NotNil(t, m.RequestDuration)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestTelemetrySetup_MetricsDisabled(t *testing.T) {
	tel, err := Setup(Options{ServiceName: "test-service"})
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	assert.Nil(t, tel.Gatherer())
	assert.NotPanics(t, func() {
		GetGlobalMetrics().RecordProtection(context.Background(), nil)
	})
}

func TestMetricsHolder_UntrackedIDsAddNoSeries(t *testing.T) {
	tel, err := Setup(Options{ServiceName: "test-series", Metrics: true})
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	m := GetGlobalMetrics()
	m.TrackPositions("XLM-123")
	ctx := context.Background()

	m.ObservePosition(ctx, "XLM-123", 1.15, 0.85)
	before := seriesCount(t, tel, MetricHealthFactor)

	for i := 0; i < 5000; i++ {
		m.ObservePosition(ctx, fmt.Sprintf("junk-%d", i), 1.15, 0.85)
	}

	assert.Equal(t, before, seriesCount(t, tel, MetricHealthFactor))
	assert.Equal(t, before, seriesCount(t, tel, MetricLTV))
	assert.LessOrEqual(t, seriesCount(t, tel, MetricPositionsServedTotal), 1)
	assert.NotContains(t, m.GetHealthFactors(), "junk-0")
}

func TestMetricsHolder_ObservePosition(t *testing.T) {
	m := newMetricsHolder()
	ctx := context.Background()

	m.TrackPositions("XLM-123", "ABC-1")
	m.ObservePosition(ctx, "XLM-123", 1.15, 0.85)
	m.ObservePosition(ctx, "ABC-1", 1.15, 0.85)
	m.ObservePosition(ctx, "untracked", 2, 0.5)

	hf := m.GetHealthFactors()
	assert.Len(t, hf, 2)
	assert.Equal(t, 1.15, hf["XLM-123"])
	assert.Equal(t, 1.15, hf["ABC-1"])
	assert.Equal(t, 0.85, m.GetLTVs()["XLM-123"])

	// returned maps are copies
	hf["XLM-123"] = 0
	assert.Equal(t, 1.15, m.GetHealthFactors()["XLM-123"])
}

func TestMetricsHolder_RecordersTolerateUninitialized(t *testing.T) {
	m := newMetricsHolder()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordAlert(ctx, "telegram", nil)
		m.RecordAlert(ctx, "telegram", errors.New("boom"))
		m.RecordProtection(ctx, nil)
		m.RecordDeeplinkFailure(ctx)
		m.RecordRequest(ctx, "/health", 200, 0.01)
		m.ObservePosition(ctx, "XLM-123", 1.15, 0.85)
	})
}
