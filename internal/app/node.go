package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/derive/internal/adapters/config"
	"go.trai.ch/derive/internal/adapters/fs"
	"go.trai.ch/derive/internal/adapters/logger"
	"go.trai.ch/derive/internal/adapters/metrics"
	"go.trai.ch/derive/internal/adapters/watcher"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/derive/internal/engine/registry"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized application components the CLI needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			fs.StorageNodeID,
			fs.WalkerNodeID,
			registry.NodeID,
			metrics.NodeID,
			watcher.FactoryNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	storage, err := graft.Dep[ports.Storage](ctx)
	if err != nil {
		return nil, err
	}
	walker, err := graft.Dep[*fs.Walker](ctx)
	if err != nil {
		return nil, err
	}
	reg, err := graft.Dep[*registry.Registry](ctx)
	if err != nil {
		return nil, err
	}
	rec, err := graft.Dep[*metrics.PrometheusRecorder](ctx)
	if err != nil {
		return nil, err
	}
	newWatcher, err := graft.Dep[watcher.Factory](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, storage, walker, reg, rec, newWatcher, log), nil
}
