package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricPositionsServedTotal    = "blendguard_positions_served_total"
	MetricAlertsSentTotal         = "blendguard_alerts_sent_total"
	MetricAlertsFailedTotal       = "blendguard_alerts_failed_total"
	MetricProtectionsTotal        = "blendguard_protections_executed_total"
	MetricProtectionsRejected     = "blendguard_protections_rejected_total"
	MetricHealthFactor            = "blendguard_position_health_factor"
	MetricLTV                     = "blendguard_position_ltv"
	MetricRequestDurationSeconds  = "blendguard_api_request_duration_seconds"
	MetricDeeplinkVerifyFailTotal = "blendguard_deeplink_verify_failures_total"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	PositionsServed     metric.Int64Counter
	AlertsSent          metric.Int64Counter
	AlertsFailed        metric.Int64Counter
	ProtectionsExecuted metric.Int64Counter
	ProtectionsRejected metric.Int64Counter
	DeeplinkFailures    metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	HealthFactor        metric.Float64ObservableGauge
	LTV                 metric.Float64ObservableGauge

	// Gauge state, keyed by position id. Only tracked ids are kept so
	// arbitrary lookups cannot add series.
	mu              sync.RWMutex
	tracked         map[string]struct{}
	healthFactorMap map[string]float64
	ltvMap          map[string]float64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = newMetricsHolder()
	})
	return globalMetrics
}

func newMetricsHolder() *MetricsHolder {
	return &MetricsHolder{
		tracked:         make(map[string]struct{}),
		healthFactorMap: make(map[string]float64),
		ltvMap:          make(map[string]float64),
	}
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.PositionsServed, err = meter.Int64Counter(MetricPositionsServedTotal, metric.WithDescription("Position lookups served"))
	if err != nil {
		return err
	}

	m.AlertsSent, err = meter.Int64Counter(MetricAlertsSentTotal, metric.WithDescription("Alerts delivered per channel"))
	if err != nil {
		return err
	}

	m.AlertsFailed, err = meter.Int64Counter(MetricAlertsFailedTotal, metric.WithDescription("Alert deliveries that failed per channel"))
	if err != nil {
		return err
	}

	m.ProtectionsExecuted, err = meter.Int64Counter(MetricProtectionsTotal, metric.WithDescription("Safety vault protections executed"))
	if err != nil {
		return err
	}

	m.ProtectionsRejected, err = meter.Int64Counter(MetricProtectionsRejected, metric.WithDescription("Safety vault protections rejected"))
	if err != nil {
		return err
	}

	m.DeeplinkFailures, err = meter.Int64Counter(MetricDeeplinkVerifyFailTotal, metric.WithDescription("Protect links that failed signature verification"))
	if err != nil {
		return err
	}

	m.RequestDuration, err = meter.Float64Histogram(MetricRequestDurationSeconds, metric.WithDescription("API request latency"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	m.HealthFactor, err = meter.Float64ObservableGauge(MetricHealthFactor, metric.WithDescription("Last served health factor"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for id, val := range m.healthFactorMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("position_id", id)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.LTV, err = meter.Float64ObservableGauge(MetricLTV, metric.WithDescription("Last served loan-to-value ratio"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for id, val := range m.ltvMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("position_id", id)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// Helpers to update observable state and record counters.
// Counters are nil until InitMetrics runs; the helpers are no-ops then.

// TrackPositions adds ids to the set exported through the health factor and LTV gauges
func (m *MetricsHolder) TrackPositions(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.tracked[id] = struct{}{}
	}
}

// ObservePosition counts a served lookup and, for tracked ids, updates the gauges
func (m *MetricsHolder) ObservePosition(ctx context.Context, positionID string, healthFactor, ltv float64) {
	if m.PositionsServed != nil {
		m.PositionsServed.Add(ctx, 1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracked[positionID]; !ok {
		return
	}
	m.healthFactorMap[positionID] = healthFactor
	m.ltvMap[positionID] = ltv
}

func (m *MetricsHolder) RecordAlert(ctx context.Context, channel string, err error) {
	attrs := metric.WithAttributes(attribute.String("channel", channel))
	if err != nil {
		if m.AlertsFailed != nil {
			m.AlertsFailed.Add(ctx, 1, attrs)
		}
		return
	}
	if m.AlertsSent != nil {
		m.AlertsSent.Add(ctx, 1, attrs)
	}
}

func (m *MetricsHolder) RecordProtection(ctx context.Context, err error) {
	if err != nil {
		if m.ProtectionsRejected != nil {
			m.ProtectionsRejected.Add(ctx, 1)
		}
		return
	}
	if m.ProtectionsExecuted != nil {
		m.ProtectionsExecuted.Add(ctx, 1)
	}
}

func (m *MetricsHolder) RecordDeeplinkFailure(ctx context.Context) {
	if m.DeeplinkFailures != nil {
		m.DeeplinkFailures.Add(ctx, 1)
	}
}

func (m *MetricsHolder) RecordRequest(ctx context.Context, route string, status int, seconds float64) {
	if m.RequestDuration != nil {
		m.RequestDuration.Record(ctx, seconds, metric.WithAttributes(
			attribute.String("route", route),
			attribute.Int("status", status),
		))
	}
}

func (m *MetricsHolder) GetHealthFactors() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]float64, len(m.healthFactorMap))
	for k, v := range m.healthFactorMap {
		res[k] = v
	}
	return res
}

func (m *MetricsHolder) GetLTVs() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]float64, len(m.ltvMap))
	for k, v := range m.ltvMap {
		res[k] = v
	}
	return res
}
