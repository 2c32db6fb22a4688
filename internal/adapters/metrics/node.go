package metrics

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the graft node for the process-wide Prometheus recorder.
const NodeID graft.ID = "adapter.metrics"

func init() {
	graft.Register(graft.Node[*PrometheusRecorder]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*PrometheusRecorder, error) {
			return NewPrometheusRecorder(nil), nil
		},
	})
}
