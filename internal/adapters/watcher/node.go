package watcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/derive/internal/adapters/logger"
	"go.trai.ch/derive/internal/core/ports"
)

// FactoryNodeID is the graft node providing a constructor for file watchers.
// Watchers own OS resources, so each watch session creates its own.
const FactoryNodeID graft.ID = "adapter.watcher.factory"

// Factory creates a new, unstarted watcher.
type Factory func() (ports.Watcher, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        FactoryNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func() (ports.Watcher, error) {
				return NewWatcher(log)
			}, nil
		},
	})
}
