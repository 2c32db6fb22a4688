package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/derive/internal/adapters/telemetry"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/derive/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func TestInterfaceSatisfaction(_ *testing.T) {
	var _ ports.Tracer = (*telemetry.OTelTracer)(nil)
	var _ ports.Span = (*telemetry.OTelSpan)(nil)
	var _ ports.Tracer = (*telemetry.NoOpTracer)(nil)
	var _ ports.Span = telemetry.NoOpSpan{}
	var _ sdktrace.SpanProcessor = (*telemetry.Bridge)(nil)
}

func TestOTelTracer_Attributes(t *testing.T) {
	sr, tp := newRecorder(t)
	tracer := telemetry.NewOTelTracer(tp, "derive")

	_, span := tracer.Start(t.Context(), "pass")
	span.SetAttribute("pass.id", uint64(7))
	span.SetAttribute("sources", 3)
	span.SetAttribute("skipped", false)
	span.SetAttribute("affected", []string{"a.kt", "b.kt"})
	span.SetAttribute("state", struct{ X int }{1})
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	attrs := ended[0].Attributes()
	assert.Contains(t, attrs, attribute.Int64("pass.id", 7))
	assert.Contains(t, attrs, attribute.Int("sources", 3))
	assert.Contains(t, attrs, attribute.Bool("skipped", false))
	assert.Contains(t, attrs, attribute.StringSlice("affected", []string{"a.kt", "b.kt"}))
	assert.Contains(t, attrs, attribute.String("state", "{1}"))
}

func TestOTelTracer_RecordError(t *testing.T) {
	sr, tp := newRecorder(t)
	tracer := telemetry.NewOTelTracer(tp, "derive")

	_, span := tracer.Start(t.Context(), "reconcile")
	span.RecordError(nil)
	span.RecordError(errors.New("disk full"))
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "disk full", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestOTelTracer_WithRoot(t *testing.T) {
	sr, tp := newRecorder(t)
	tracer := telemetry.NewOTelTracer(tp, "derive")

	ctx, outer := tracer.Start(t.Context(), "watch")
	_, child := tracer.Start(ctx, "compile")
	_, root := tracer.Start(ctx, "pass", ports.WithRoot())
	child.End()
	root.End()
	outer.End()

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range sr.Ended() {
		byName[s.Name()] = s
	}
	require.Len(t, byName, 3)
	assert.Equal(t, byName["watch"].SpanContext().SpanID(), byName["compile"].Parent().SpanID())
	assert.False(t, byName["pass"].Parent().IsValid())
	assert.NotEqual(t, byName["watch"].SpanContext().TraceID(), byName["pass"].SpanContext().TraceID())
}

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()
	ctx := t.Context()

	got, span := tracer.Start(ctx, "pass", ports.WithRoot())
	assert.Equal(t, ctx, got)

	span.SetAttribute("k", "v")
	span.RecordError(errors.New("ignored"))
	span.End()
}

func TestBridge_LogsFinishedSpans(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(log)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := telemetry.NewOTelTracer(tp, "derive")

	gomock.InOrder(
		log.EXPECT().Info(gomock.Cond(func(msg string) bool {
			return len(msg) > 10 && msg[:10] == "  compile "
		})),
		log.EXPECT().Warn(gomock.Cond(func(msg string) bool {
			return len(msg) > 5 && msg[:5] == "pass " && msg[len(msg)-len("(boom)"):] == "(boom)"
		})),
	)

	ctx, pass := tracer.Start(t.Context(), "pass")
	_, phase := tracer.Start(ctx, "compile")
	phase.End()
	pass.RecordError(errors.New("boom"))
	pass.End()
}

func TestBridge_NilLogger(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(nil)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.NotPanics(t, func() {
		_, span := tp.Tracer("t").Start(t.Context(), "pass")
		span.End()
	})
}
