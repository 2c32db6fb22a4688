package ports

import "time"

// Metrics records pass measurements.
//
//go:generate go run go.uber.org/mock/mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// ObservePass records the duration and outcome of a finished pass.
	ObservePass(outcome string, d time.Duration)
	// ObservePhase records the duration of a single pass phase.
	ObservePhase(phase string, d time.Duration)
	// AddArtifacts counts artifacts by reconciliation action.
	AddArtifacts(action string, n int)
	// AddUnitFailures counts source units the backend failed to compile.
	AddUnitFailures(n int)
	// SetRegistryEntries records the number of committed registry entries.
	SetRegistryEntries(n int)
}
