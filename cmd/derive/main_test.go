package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/derive/internal/adapters/fs"
	"go.trai.ch/derive/internal/adapters/metrics"
	"go.trai.ch/derive/internal/app"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports/mocks"
	"go.trai.ch/derive/internal/engine/registry"
	"go.uber.org/mock/gomock"
)

func newApp(ctrl *gomock.Controller) (*app.App, *mocks.MockConfigLoader, *mocks.MockLogger) {
	loader := mocks.NewMockConfigLoader(ctrl)
	log := mocks.NewMockLogger(ctrl)
	a := app.New(loader, fs.NewStorage(), fs.NewWalker(), registry.New(), metrics.NewPrometheusRecorder(nil), nil, log)
	return a, loader, log
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	application, _, log := newApp(ctrl)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: log}, func() {}, nil
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run logs the error and returns 1 when a command fails.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	application, loader, log := newApp(ctrl)

	loader.EXPECT().Load(".").Return(nil, domain.ErrConfigNotFound)
	log.EXPECT().Error(gomock.Cond(func(err error) bool {
		return errors.Is(err, domain.ErrConfigNotFound)
	}))

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: log}, func() {}, nil
	}

	exitCode := run(context.Background(), []string{"run"}, new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_AppliesOptions verifies that options are applied to the app before execution.
func TestRun_AppliesOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	application, _, log := newApp(ctrl)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: log}, func() {}, nil
	}

	applied := false
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), provider, func(a *app.App) {
		applied = a == application
	})
	assert.Equal(t, 0, exitCode)
	assert.True(t, applied)
}
