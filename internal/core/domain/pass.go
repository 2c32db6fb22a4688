package domain

import (
	"time"
)

// PassState is a step of the build pass state machine.
type PassState uint32

const (
	// PassIdle means no pass is running.
	PassIdle PassState = iota
	// PassCompiling means the backend is producing the new artifact list.
	PassCompiling
	// PassReconciling means artifacts are being materialized, touched and staged.
	PassReconciling
	// PassCollectingOrphans means the new mapping is committed and orphans are being removed.
	PassCollectingOrphans
)

func (s PassState) String() string {
	switch s {
	case PassIdle:
		return "idle"
	case PassCompiling:
		return "compiling"
	case PassReconciling:
		return "reconciling"
	case PassCollectingOrphans:
		return "collecting-orphans"
	default:
		return "unknown"
	}
}

// Pass outcomes used for metrics and reports.
const (
	PassOutcomeSuccess = "success"
	PassOutcomeFailed  = "failed"
	PassOutcomeSkipped = "skipped"
)

// Artifact actions used for metrics and reports.
const (
	ArtifactCreated      = "created"
	ArtifactTouched      = "touched"
	ArtifactUnchanged    = "unchanged"
	ArtifactDeleted      = "deleted"
	ArtifactDeleteFailed = "delete_failed"
)

// PassReport summarizes one build pass.
type PassReport struct {
	ID        uint64
	StartedAt time.Time
	Duration  time.Duration
	Skipped   bool

	// Affected is the triggering affected set, sorted.
	Affected []SourceUnit
	// Sources is the number of source units handed to the backend.
	Sources int

	Created   []ArtifactPath
	Touched   []ArtifactPath
	Unchanged []ArtifactPath
	Deleted   []ArtifactPath

	// Failures are per-unit compilation failures; they never abort a pass.
	Failures []UnitFailure
	// DeleteFailures are orphans that could not be removed.
	DeleteFailures []ArtifactPath
	// Entries is the registry size after commit.
	Entries int
}

// Outcome returns the metrics outcome label for a finished report.
func (r *PassReport) Outcome() string {
	if r.Skipped {
		return PassOutcomeSkipped
	}
	return PassOutcomeSuccess
}
