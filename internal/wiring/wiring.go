// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/derive/internal/adapters/config"
	_ "go.trai.ch/derive/internal/adapters/fs"
	_ "go.trai.ch/derive/internal/adapters/logger"
	_ "go.trai.ch/derive/internal/adapters/metrics"
	_ "go.trai.ch/derive/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/derive/internal/app"
	_ "go.trai.ch/derive/internal/engine/registry"
)
