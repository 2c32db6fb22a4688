package domain

import (
	"slices"
	"strings"
	"unique"
)

// SourceUnit identifies a source file by its root-relative, slash-separated path.
// Units are interned, so two units are equal exactly when their paths are.
type SourceUnit struct {
	h unique.Handle[string]
}

// NewSourceUnit interns path as a SourceUnit.
func NewSourceUnit(path string) SourceUnit {
	return SourceUnit{h: unique.Make(path)}
}

// String returns the unit path.
func (u SourceUnit) String() string {
	if u.IsZero() {
		return ""
	}
	return u.h.Value()
}

// IsZero reports whether u was never assigned.
func (u SourceUnit) IsZero() bool {
	var zero unique.Handle[string]
	return u.h == zero
}

// MarshalText implements encoding.TextMarshaler.
func (u SourceUnit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *SourceUnit) UnmarshalText(text []byte) error {
	u.h = unique.Make(string(text))
	return nil
}

// SourceSet is a set of source units. The nil set is a valid empty set for reads.
type SourceSet map[SourceUnit]struct{}

// NewSourceSet builds a set from units.
func NewSourceSet(units ...SourceUnit) SourceSet {
	s := make(SourceSet, len(units))
	for _, u := range units {
		s[u] = struct{}{}
	}
	return s
}

// SourceSetOf builds a set from unit paths.
func SourceSetOf(paths ...string) SourceSet {
	s := make(SourceSet, len(paths))
	for _, p := range paths {
		s[NewSourceUnit(p)] = struct{}{}
	}
	return s
}

// Add inserts u.
func (s SourceSet) Add(u SourceUnit) { s[u] = struct{}{} }

// Has reports whether u is in the set.
func (s SourceSet) Has(u SourceUnit) bool {
	_, ok := s[u]
	return ok
}

// Len returns the number of units.
func (s SourceSet) Len() int { return len(s) }

// Clone returns an independent copy. Cloning nil yields an empty, non-nil set.
func (s SourceSet) Clone() SourceSet {
	out := make(SourceSet, len(s))
	for u := range s {
		out[u] = struct{}{}
	}
	return out
}

// Intersects reports whether s and other share at least one unit.
func (s SourceSet) Intersects(other SourceSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for u := range small {
		if large.Has(u) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the units of both sets.
func (s SourceSet) Union(other SourceSet) SourceSet {
	out := make(SourceSet, len(s)+len(other))
	for u := range s {
		out[u] = struct{}{}
	}
	for u := range other {
		out[u] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same units.
func (s SourceSet) Equal(other SourceSet) bool {
	if len(s) != len(other) {
		return false
	}
	for u := range s {
		if !other.Has(u) {
			return false
		}
	}
	return true
}

// Strings returns the unit paths in sorted order.
func (s SourceSet) Strings() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u.String())
	}
	slices.Sort(out)
	return out
}

// Sorted returns the units ordered by path.
func (s SourceSet) Sorted() []SourceUnit {
	out := make([]SourceUnit, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b SourceUnit) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}
