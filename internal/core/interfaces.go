// Package core defines the core interfaces shared across the BlendGuard backend
package core

// ComponentHealthy is the status GetStatus reports for a passing check
const ComponentHealthy = "Healthy"

// IHealthMonitor defines the interface for health monitoring
type IHealthMonitor interface {
	Register(component string, check func() error)
	GetStatus() map[string]string
	IsHealthy() bool
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

// NopLogger discards everything. Useful in tests and as a nil-safe default.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})                {}
func (NopLogger) Info(string, ...interface{})                 {}
func (NopLogger) Warn(string, ...interface{})                 {}
func (NopLogger) Error(string, ...interface{})                {}
func (NopLogger) Fatal(string, ...interface{})                {}
func (n NopLogger) WithField(string, interface{}) ILogger     { return n }
func (n NopLogger) WithFields(map[string]interface{}) ILogger { return n }
