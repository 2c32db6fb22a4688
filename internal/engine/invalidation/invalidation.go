// Package invalidation decides which artifacts must be marked stale in a pass.
package invalidation

import "go.trai.ch/derive/internal/core/domain"

// Reason explains a touch decision.
type Reason uint8

const (
	// ReasonNone means no contributor of the artifact was affected.
	ReasonNone Reason = iota
	// ReasonContributorChanged means a current contributor is in the affected set.
	ReasonContributorChanged
	// ReasonFormerContributorChanged means only a contributor of the previous pass is
	// in the affected set, for example a source that was deleted or stopped emitting the
	// artifact.
	ReasonFormerContributorChanged
)

func (r Reason) String() string {
	switch r {
	case ReasonContributorChanged:
		return "contributor changed"
	case ReasonFormerContributorChanged:
		return "former contributor changed"
	default:
		return "none"
	}
}

// MustTouch reports whether an artifact must be touched: true when any of its previous
// or current contributors is in affected. False positives are acceptable, false
// negatives are not.
func MustTouch(oldContributors, newContributors, affected domain.SourceSet) bool {
	return Decide(oldContributors, newContributors, affected) != ReasonNone
}

// Decide is MustTouch with the reason for the decision.
func Decide(oldContributors, newContributors, affected domain.SourceSet) Reason {
	switch {
	case newContributors.Intersects(affected):
		return ReasonContributorChanged
	case oldContributors.Intersects(affected):
		return ReasonFormerContributorChanged
	default:
		return ReasonNone
	}
}
