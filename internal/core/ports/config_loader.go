package ports

import "go.trai.ch/derive/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration file starting at cwd and walking up, then parses it.
	Load(cwd string) (*domain.Config, error)
}
