package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/derive/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the file walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// StorageNodeID is the unique identifier for the artifact storage Graft node.
	StorageNodeID graft.ID = "adapter.fs.storage"
)

func init() {
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.Storage]{
		ID:        StorageNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Storage, error) {
			return NewStorage(), nil
		},
	})
}
