// Package zap adapts go.uber.org/zap to the guardrail.Logger interface.
package zap

import (
	"go.uber.org/zap"

	"github.com/venntor/guardrail"
)

var _ guardrail.Logger = Logger{}

// Logger wraps a *zap.Logger.
type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f guardrail.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f guardrail.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f guardrail.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f guardrail.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f guardrail.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}

	return out
}
