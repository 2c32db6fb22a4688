package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/derive/internal/core/ports"
)

// Bridge is an sdktrace.SpanProcessor that reports finished spans to a logger.
// Pass spans are logged with their phase children indented below them.
type Bridge struct {
	logger ports.Logger
}

// NewBridge returns a Bridge writing to logger.
func NewBridge(logger ports.Logger) *Bridge {
	return &Bridge{logger: logger}
}

// OnStart does nothing; timings are only known once a span ends.
func (b *Bridge) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd logs the span name and duration.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.logger == nil || !s.SpanContext().IsValid() {
		return
	}

	indent := ""
	if s.Parent().IsValid() {
		indent = "  "
	}
	elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Microsecond)
	line := fmt.Sprintf("%s%s %s", indent, s.Name(), elapsed)

	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "failed"
		}
		b.logger.Warn(line + " (" + strings.TrimSpace(desc) + ")")
		return
	}
	b.logger.Info(line)
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
