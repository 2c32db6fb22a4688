package logger_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/derive/internal/adapters/logger"
)

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		msg        string
		goldenName string
	}{
		{"info", slog.LevelInfo, "information message", "handler_info"},
		{"warn", slog.LevelWarn, "warning message", "handler_warn"},
		{"error", slog.LevelError, "error message", "handler_error"},
		{"debug filtered", slog.LevelDebug, "debug message", "handler_debug_filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			lg.Log(t.Context(), tt.level, tt.msg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(slog.Handler) slog.Handler
		attrs      []any
		goldenName string
	}{
		{
			name:       "record attrs",
			setup:      func(h slog.Handler) slog.Handler { return h },
			attrs:      []any{"pass", 3, "artifacts", 12},
			goldenName: "handler_record_attrs",
		},
		{
			name: "handler and record attrs",
			setup: func(h slog.Handler) slog.Handler {
				return h.WithAttrs([]slog.Attr{slog.String("phase", "reconcile")})
			},
			attrs:      []any{"ms", 4},
			goldenName: "handler_combined_attrs",
		},
		{
			name: "nested groups",
			setup: func(h slog.Handler) slog.Handler {
				return h.WithGroup("pass").WithGroup("phase")
			},
			attrs:      []any{"name", "compile"},
			goldenName: "handler_group_nested",
		},
		{
			name:       "group attribute",
			setup:      func(h slog.Handler) slog.Handler { return h },
			attrs:      []any{slog.Group("report", slog.Int("created", 2), slog.Int("deleted", 1))},
			goldenName: "handler_attrs_group",
		},
		{
			name:       "empty group name is ignored",
			setup:      func(h slog.Handler) slog.Handler { return h.WithGroup("") },
			attrs:      []any{"key", "val"},
			goldenName: "handler_group_empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			h := tt.setup(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			slog.New(h).Info("message", tt.attrs...)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := logger.NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelWarn))
	assert.True(t, h.Enabled(t.Context(), slog.LevelError))
}

func TestPrettyHandler_NilWriter(t *testing.T) {
	require.NotPanics(t, func() {
		_ = logger.NewPrettyHandler(nil, nil)
	})
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestPrettyHandler_WriteError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	h := logger.NewPrettyHandler(brokenWriter{}, nil)
	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "msg", 0)

	assert.Error(t, h.Handle(t.Context(), r))
}
