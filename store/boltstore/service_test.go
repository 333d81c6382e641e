package boltstore

import (
	"path/filepath"
	"testing"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "component.db")
	s, err := New(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetConcept(t *testing.T) {
	s := newTestStore(t)
	c := &snomed.Concept{Id: 138875005, Active: true, ModuleId: 900000000000207008}
	require.NoError(t, s.Put(store.Batch{Concepts: []*snomed.Concept{c}}))

	got, err := s.GetConcept(138875005)
	require.NoError(t, err)
	assert.Equal(t, c.Id, got.Id)
	assert.True(t, got.Active)

	dirty, err := s.Dirty()
	require.NoError(t, err)
	assert.True(t, dirty, "a non-empty Put must mark the store dirty")
}

func TestPutReconcilesByEffectiveTime(t *testing.T) {
	s := newTestStore(t)
	older := &snomed.Concept{Id: 1, Active: true, EffectiveTime: &timestamp.Timestamp{Seconds: 100}}
	newer := &snomed.Concept{Id: 1, Active: false, EffectiveTime: &timestamp.Timestamp{Seconds: 200}}

	require.NoError(t, s.Put(store.Batch{Concepts: []*snomed.Concept{older}}))
	require.NoError(t, s.Put(store.Batch{Concepts: []*snomed.Concept{newer}}))

	got, err := s.GetConcept(1)
	require.NoError(t, err)
	assert.False(t, got.Active, "the later effective-time row must win")

	// Replaying the older, stale row must not overwrite the newer one.
	require.NoError(t, s.Put(store.Batch{Concepts: []*snomed.Concept{older}}))
	got, err = s.GetConcept(1)
	require.NoError(t, err)
	assert.False(t, got.Active, "an older row must never overwrite a newer one")
}

func TestDescriptionsForConcept(t *testing.T) {
	s := newTestStore(t)
	batch := store.Batch{
		Concepts: []*snomed.Concept{{Id: 1, Active: true}},
		Descriptions: []*snomed.Description{
			{Id: 10, ConceptId: 1, Active: true, TypeId: int64(snomed.FullySpecifiedName), Term: "Foo (foo)"},
			{Id: 11, ConceptId: 1, Active: true, TypeId: int64(snomed.Synonym), Term: "Foo"},
		},
	}
	require.NoError(t, s.Put(batch))

	descs, err := s.GetDescriptions(1)
	require.NoError(t, err)
	assert.Len(t, descs, 2)

	d, err := s.GetDescription(10)
	require.NoError(t, err)
	assert.Equal(t, "Foo (foo)", d.Term)
}

func TestDescriptionMovingConceptsClearsStaleIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts:     []*snomed.Concept{{Id: 1, Active: true}, {Id: 2, Active: true}},
		Descriptions: []*snomed.Description{{Id: 10, ConceptId: 1, Active: true, EffectiveTime: &timestamp.Timestamp{Seconds: 1}}},
	}))
	require.NoError(t, s.Put(store.Batch{
		Descriptions: []*snomed.Description{{Id: 10, ConceptId: 2, Active: true, EffectiveTime: &timestamp.Timestamp{Seconds: 2}}},
	}))

	oldOwner, err := s.GetDescriptions(1)
	require.NoError(t, err)
	assert.Empty(t, oldOwner, "description reassigned to concept 2 must be removed from concept 1's index")

	newOwner, err := s.GetDescriptions(2)
	require.NoError(t, err)
	assert.Len(t, newOwner, 1)
}

func TestRelationshipsAndClosureIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts: []*snomed.Concept{{Id: 1, Active: true}, {Id: 2, Active: true}},
		Relationships: []*snomed.Relationship{
			{Id: 100, Active: true, SourceId: 1, DestinationId: 2, TypeId: int64(snomed.IsA)},
		},
	}))
	// Put only maintains the primary relationship table; the parent/child
	// adjacency index is index.Builder's job (kept out of this package's
	// tests to avoid an import cycle - it's exercised in index/builder_test.go).
	require.NoError(t, s.PutParentRelationshipIndex(1, int64(snomed.IsA), 100))
	require.NoError(t, s.PutChildRelationshipIndex(2, int64(snomed.IsA), 100))

	parents, err := s.GetParentRelationships(1, int64(snomed.IsA))
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, int64(2), parents[0].DestinationId)

	children, err := s.GetChildRelationships(2, int64(snomed.IsA))
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, int64(1), children[0].SourceId)

	// The closure buckets are populated by index.Builder, not Put directly.
	require.NoError(t, s.PutAncestor(1, 2))
	require.NoError(t, s.PutDescendant(2, 1))

	ancestors, err := s.Ancestors(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ancestors)

	descendants, err := s.Descendants(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, descendants)
}

func TestRefsetMembership(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts: []*snomed.Concept{{Id: 1, Active: true}},
		RefsetItems: []*snomed.ReferenceSetItem{
			{Id: "uuid-1", Active: true, RefsetId: 900000000000497000, ReferencedComponentId: 1},
		},
	}))
	require.NoError(t, s.PutComponentRefset(1, 900000000000497000, "uuid-1"))
	require.NoError(t, s.PutInstalledRefset(900000000000497000))

	refsets, err := s.RefsetsFor(1)
	require.NoError(t, err)
	assert.Contains(t, refsets, int64(900000000000497000))

	installed, err := s.InstalledRefsets()
	require.NoError(t, err)
	assert.Contains(t, installed, int64(900000000000497000))

	item, found, err := s.GetFromRefset(900000000000497000, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "uuid-1", item.Id)
}

func TestClearIndicesLeavesPrimaryDataIntact(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{Concepts: []*snomed.Concept{{Id: 1, Active: true}}}))
	require.NoError(t, s.PutAncestor(1, 2))
	require.NoError(t, s.SetDirty(false))

	require.NoError(t, s.ClearIndices())

	ancestors, err := s.Ancestors(1)
	require.NoError(t, err)
	assert.Empty(t, ancestors)

	c, err := s.GetConcept(1)
	require.NoError(t, err)
	assert.NotNil(t, c, "clearing derived indices must not touch primary concept data")
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts:     []*snomed.Concept{{Id: 1, Active: true}, {Id: 2, Active: true}},
		Descriptions: []*snomed.Description{{Id: 10, ConceptId: 1, Active: true}},
	}))
	stats, err := s.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Concepts)
	assert.Equal(t, 1, stats.Descriptions)
}

func TestReadOnlyOpenRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "component.db")
	rw, err := New(path, false)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := New(path, true)
	require.NoError(t, err)
	defer ro.Close()

	err = ro.Put(store.Batch{Concepts: []*snomed.Concept{{Id: 1, Active: true}}})
	assert.Error(t, err, "a read-only store must reject writes")
}

func TestCompactPreservesContentAndRemainsUsable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts:     []*snomed.Concept{{Id: 1, Active: true}, {Id: 2, Active: true}},
		Descriptions: []*snomed.Description{{Id: 10, ConceptId: 1, Active: true, Term: "Foo"}},
	}))
	require.NoError(t, s.PutAncestor(1, 2))

	require.NoError(t, s.Compact())

	c, err := s.GetConcept(1)
	require.NoError(t, err)
	assert.True(t, c.Active)

	ancestors, err := s.Ancestors(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ancestors)

	// The store must still accept writes after compaction reopens the file.
	require.NoError(t, s.Put(store.Batch{Concepts: []*snomed.Concept{{Id: 3, Active: true}}}))
}

func TestCompactRejectsReadOnlyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "component.db")
	rw, err := New(path, false)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := New(path, true)
	require.NoError(t, err)
	defer ro.Close()

	assert.Error(t, ro.Compact())
}
