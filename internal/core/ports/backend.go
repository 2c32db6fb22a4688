// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/derive/internal/core/domain"
)

// Backend compiles source units into derived artifacts.
//
//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Compile translates the given units and returns every artifact produced together with
	// the units that contributed to it.
	//
	// Units that fail to compile are reported in CompileResult.Failures and produce no
	// outputs. A non-nil error means the backend itself failed and the pass must abort.
	Compile(ctx context.Context, units []domain.SourceUnit) (*domain.CompileResult, error)
}
