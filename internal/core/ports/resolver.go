package ports

import (
	"context"

	"go.trai.ch/derive/internal/core/domain"
)

// SourceResolver enumerates the source units that make up the project.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type SourceResolver interface {
	// Resolve returns every source unit currently present, in a stable order.
	Resolve(ctx context.Context) ([]domain.SourceUnit, error)
}
