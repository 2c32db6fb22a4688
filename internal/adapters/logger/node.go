package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/derive/internal/core/ports"
)

// NodeID is the graft node for the process-wide logger.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Logger, error) {
			return New(), nil
		},
	})
}
