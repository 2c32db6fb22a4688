package invalidation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/engine/invalidation"
)

func TestMustTouch(t *testing.T) {
	tests := []struct {
		name     string
		old      domain.SourceSet
		new      domain.SourceSet
		affected domain.SourceSet
		want     invalidation.Reason
	}{
		{
			name:     "current contributor affected",
			old:      domain.SourceSetOf("a.kt"),
			new:      domain.SourceSetOf("a.kt"),
			affected: domain.SourceSetOf("a.kt"),
			want:     invalidation.ReasonContributorChanged,
		},
		{
			name:     "only former contributor affected",
			old:      domain.SourceSetOf("a.kt", "b.kt"),
			new:      domain.SourceSetOf("a.kt"),
			affected: domain.SourceSetOf("b.kt"),
			want:     invalidation.ReasonFormerContributorChanged,
		},
		{
			name:     "new contributor affected, artifact unknown before",
			old:      domain.NewSourceSet(),
			new:      domain.SourceSetOf("c.kt"),
			affected: domain.SourceSetOf("c.kt"),
			want:     invalidation.ReasonContributorChanged,
		},
		{
			name:     "no overlap",
			old:      domain.SourceSetOf("a.kt"),
			new:      domain.SourceSetOf("a.kt"),
			affected: domain.SourceSetOf("z.kt"),
			want:     invalidation.ReasonNone,
		},
		{
			name:     "empty affected set",
			old:      domain.SourceSetOf("a.kt"),
			new:      domain.SourceSetOf("a.kt"),
			affected: domain.NewSourceSet(),
			want:     invalidation.ReasonNone,
		},
		{
			name:     "nil sets",
			old:      nil,
			new:      nil,
			affected: domain.SourceSetOf("a.kt"),
			want:     invalidation.ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, invalidation.Decide(tt.old, tt.new, tt.affected))
			assert.Equal(t, tt.want != invalidation.ReasonNone,
				invalidation.MustTouch(tt.old, tt.new, tt.affected))
		})
	}
}

// MustTouch is exactly (old ∪ new) ∩ affected ≠ ∅ over every combination of a small universe.
func TestMustTouch_MatchesUnionIntersection(t *testing.T) {
	universe := []string{"a.kt", "b.kt", "c.kt"}
	subsets := func() []domain.SourceSet {
		var out []domain.SourceSet
		for mask := range 1 << len(universe) {
			s := domain.NewSourceSet()
			for i, p := range universe {
				if mask&(1<<i) != 0 {
					s.Add(domain.NewSourceUnit(p))
				}
			}
			out = append(out, s)
		}
		return out
	}()

	for _, o := range subsets {
		for _, n := range subsets {
			for _, a := range subsets {
				want := o.Union(n).Intersects(a)
				assert.Equal(t, want, invalidation.MustTouch(o, n, a),
					"old=%v new=%v affected=%v", o.Strings(), n.Strings(), a.Strings())
			}
		}
	}
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "none", invalidation.ReasonNone.String())
	assert.Equal(t, "contributor changed", invalidation.ReasonContributorChanged.String())
	assert.Equal(t, "former contributor changed", invalidation.ReasonFormerContributorChanged.String())
}
