package registry_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/engine/registry"
)

func TestRegistry_SnapshotUnknownIsEmpty(t *testing.T) {
	r := registry.New()

	got := r.Snapshot("pkg/A.class")
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Len())

	_, ok := r.Contributors("pkg/A.class")
	assert.False(t, ok)
}

func TestRegistry_PutIsInvisibleUntilCommit(t *testing.T) {
	r := registry.New()
	r.ClearAll()
	r.Put("A.class", domain.SourceSetOf("a.kt"))

	assert.Equal(t, 0, r.Snapshot("A.class").Len())
	assert.True(t, r.Staging())

	assert.Equal(t, 1, r.Commit())
	assert.False(t, r.Staging())
	assert.True(t, r.Snapshot("A.class").Equal(domain.SourceSetOf("a.kt")))
}

func TestRegistry_SnapshotSurvivesClearAll(t *testing.T) {
	r := registry.New()
	r.Put("A.class", domain.SourceSetOf("a.kt", "b.kt"))
	r.Commit()

	r.ClearAll()
	assert.True(t, r.Snapshot("A.class").Equal(domain.SourceSetOf("a.kt", "b.kt")),
		"committed contributors must stay readable during a staged rebuild")
	assert.Len(t, r.AllEntries(), 1)
}

func TestRegistry_CommitReplacesEverything(t *testing.T) {
	r := registry.New()
	r.Put("A.class", domain.SourceSetOf("a.kt"))
	r.Put("B.class", domain.SourceSetOf("b.kt"))
	r.Commit()

	r.ClearAll()
	r.Put("A.class", domain.SourceSetOf("a.kt"))
	r.Commit()

	entries := r.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ArtifactPath("A.class"), entries[0].Artifact)
	_, ok := r.Contributors("B.class")
	assert.False(t, ok)
}

func TestRegistry_PutReplacesStagedAssociation(t *testing.T) {
	r := registry.New()
	r.ClearAll()
	r.Put("A.class", domain.SourceSetOf("a.kt"))
	r.Put("A.class", domain.SourceSetOf("b.kt"))
	r.Commit()

	assert.True(t, r.Snapshot("A.class").Equal(domain.SourceSetOf("b.kt")))
}

func TestRegistry_CommitDropsEmptyContributorSets(t *testing.T) {
	r := registry.New()
	r.ClearAll()
	r.Put("A.class", domain.NewSourceSet())
	r.Put("B.class", domain.SourceSetOf("b.kt"))

	assert.Equal(t, 1, r.Commit())
	for _, e := range r.AllEntries() {
		assert.NotZero(t, e.Contributors.Len(), "entry %s has no contributors", e.Artifact)
	}
}

func TestRegistry_DiscardKeepsCommittedState(t *testing.T) {
	r := registry.New()
	r.Put("A.class", domain.SourceSetOf("a.kt"))
	r.Commit()

	r.ClearAll()
	r.Put("B.class", domain.SourceSetOf("b.kt"))
	r.Discard()

	assert.False(t, r.Staging())
	entries := r.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ArtifactPath("A.class"), entries[0].Artifact)

	// Commit without an open rebuild keeps the current state.
	assert.Equal(t, 1, r.Commit())
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := registry.New()
	in := domain.SourceSetOf("a.kt")
	r.Put("A.class", in)
	in.Add(domain.NewSourceUnit("mutated.kt"))
	r.Commit()

	snap := r.Snapshot("A.class")
	snap.Add(domain.NewSourceUnit("other.kt"))

	entries := r.AllEntries()
	entries[0].Contributors.Add(domain.NewSourceUnit("third.kt"))

	assert.True(t, r.Snapshot("A.class").Equal(domain.SourceSetOf("a.kt")))
}

func TestRegistry_AllEntriesSorted(t *testing.T) {
	r := registry.New()
	for _, p := range []domain.ArtifactPath{"c/C.class", "a/A.class", "b/B.class"} {
		r.Put(p, domain.SourceSetOf("x.kt"))
	}
	r.Commit()

	entries := r.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, domain.ArtifactPath("a/A.class"), entries[0].Artifact)
	assert.Equal(t, domain.ArtifactPath("b/B.class"), entries[1].Artifact)
	assert.Equal(t, domain.ArtifactPath("c/C.class"), entries[2].Artifact)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_ConcurrentReadersDuringRebuild(t *testing.T) {
	r := registry.New()
	r.Put("A.class", domain.SourceSetOf("a.kt"))
	r.Commit()

	r.ClearAll()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Put(domain.ArtifactPath("gen/"+string(rune('a'+i))+".class"), domain.SourceSetOf("g.kt"))
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				assert.True(t, r.Snapshot("A.class").Equal(domain.SourceSetOf("a.kt")))
				assert.Len(t, r.AllEntries(), 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, r.Commit())
}
