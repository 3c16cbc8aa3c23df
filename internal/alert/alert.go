// Package alert delivers liquidation warnings and protection receipts to users and operators
package alert

import (
	"context"
	"sync"
	"time"

	"blendguard/internal/core"
	"blendguard/pkg/concurrency"
	"blendguard/pkg/telemetry"
)

type AlertLevel string

const (
	Info     AlertLevel = "INFO"
	Warning  AlertLevel = "WARNING"
	Error    AlertLevel = "ERROR"
	Critical AlertLevel = "CRITICAL"
)

// Button is an inline action attached to a message. Exactly one of URL or CallbackData is set.
type Button struct {
	Text         string
	URL          string
	CallbackData string
}

type AlertPayload struct {
	Level     AlertLevel
	Title     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string

	// Recipient overrides the channel's default destination (a Telegram chat id)
	Recipient string
	Buttons   [][]Button
	// Raw sends Message verbatim without the level/title header
	Raw bool
}

type AlertChannel interface {
	Send(ctx context.Context, alert AlertPayload) error
	Name() string
}

type AlertManager struct {
	channels []AlertChannel
	pool     *concurrency.WorkerPool
	logger   core.ILogger
	timeout  time.Duration
	mu       sync.RWMutex
}

func NewAlertManager(logger core.ILogger, pool *concurrency.WorkerPool) *AlertManager {
	if pool == nil {
		pool = concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "alerts"}, logger)
	}
	return &AlertManager{
		channels: make([]AlertChannel, 0),
		pool:     pool,
		logger:   logger.WithField("component", "alert_manager"),
		timeout:  10 * time.Second,
	}
}

func (am *AlertManager) AddChannel(ch AlertChannel) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.channels = append(am.channels, ch)
	am.logger.Info("Added alert channel", "name", ch.Name())
}

// Channels returns the names of registered channels
func (am *AlertManager) Channels() []string {
	am.mu.RLock()
	defer am.mu.RUnlock()
	names := make([]string, 0, len(am.channels))
	for _, ch := range am.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch queues the payload for every channel and returns immediately.
// Delivery errors are logged and counted, never returned.
func (am *AlertManager) Dispatch(ctx context.Context, payload AlertPayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	am.logger.Info("Triggering alert", "title", payload.Title, "level", payload.Level)

	am.mu.RLock()
	channels := make([]AlertChannel, len(am.channels))
	copy(channels, am.channels)
	am.mu.RUnlock()

	// delivery outlives the request that triggered it
	base := context.WithoutCancel(ctx)
	for _, ch := range channels {
		c := ch
		err := am.pool.Submit(func() {
			sendCtx, cancel := context.WithTimeout(base, am.timeout)
			defer cancel()

			err := c.Send(sendCtx, payload)
			telemetry.GetGlobalMetrics().RecordAlert(sendCtx, c.Name(), err)
			if err != nil {
				am.logger.Error("Failed to send alert", "channel", c.Name(), "error", err)
			}
		})
		if err != nil {
			am.logger.Error("Alert dropped", "channel", c.Name(), "error", err)
		}
	}
}

// Stop waits for queued deliveries to finish
func (am *AlertManager) Stop() {
	am.pool.Stop()
}
