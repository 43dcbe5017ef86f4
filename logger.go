package guardrail

// Fields carries structured log attributes.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging
// stack; ready-made adapters for slog, zap, and logrus live under log/.
// If no logger is configured, logging is disabled via [NopLogger].
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// NopLogger discards all log records.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
