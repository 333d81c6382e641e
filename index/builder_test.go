package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
	"github.com/eldrix/snomed-terminology/store/boltstore"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := boltstore.New(filepath.Join(t.TempDir(), "component.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// A small hierarchy: root <- animal <- mammal <- dog, plus a sibling bird.
func seedHierarchy(t *testing.T, s store.Store) {
	t.Helper()
	require.NoError(t, s.Put(store.Batch{
		Concepts: []*snomed.Concept{
			{Id: 1, Active: true}, // root
			{Id: 2, Active: true}, // animal
			{Id: 3, Active: true}, // mammal
			{Id: 4, Active: true}, // dog
			{Id: 5, Active: true}, // bird
		},
		Relationships: []*snomed.Relationship{
			{Id: 100, Active: true, SourceId: 2, DestinationId: 1, TypeId: snomed.IsA},
			{Id: 101, Active: true, SourceId: 3, DestinationId: 2, TypeId: snomed.IsA},
			{Id: 102, Active: true, SourceId: 4, DestinationId: 3, TypeId: snomed.IsA},
			{Id: 103, Active: true, SourceId: 5, DestinationId: 2, TypeId: snomed.IsA},
		},
	}))
}

func TestBuildClosureIndex(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)

	require.NoError(t, NewBuilder(s, nil).Build())

	ancestors, err := s.Ancestors(4) // dog
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ancestors)

	descendants, err := s.Descendants(2) // animal
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{3, 4, 5}, descendants)

	dirty, err := s.Dirty()
	require.NoError(t, err)
	assert.False(t, dirty, "Build must clear the dirty flag on success")
}

func TestBuildIgnoresInactiveRelationships(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts: []*snomed.Concept{{Id: 1, Active: true}, {Id: 2, Active: true}},
		Relationships: []*snomed.Relationship{
			{Id: 100, Active: false, SourceId: 2, DestinationId: 1, TypeId: snomed.IsA},
		},
	}))
	require.NoError(t, NewBuilder(s, nil).Build())

	ancestors, err := s.Ancestors(2)
	require.NoError(t, err)
	assert.Empty(t, ancestors, "an inactive IS_A relationship must not contribute to the closure")
}

func TestBuildIsIdempotentAndRerunnable(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	builder := NewBuilder(s, nil)
	require.NoError(t, builder.Build())
	require.NoError(t, builder.Build())

	ancestors, err := s.Ancestors(4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ancestors, "rebuilding must not duplicate closure entries")
}

// A 3-node IS_A cycle (1 -> 2 -> 3 -> 1), plus a non-cyclic concept 4 whose
// only parent is cycle member 1.
func TestBuildExcludesCyclicEdgesFromClosure(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts: []*snomed.Concept{
			{Id: 1, Active: true}, {Id: 2, Active: true}, {Id: 3, Active: true}, {Id: 4, Active: true},
		},
		Relationships: []*snomed.Relationship{
			{Id: 100, Active: true, SourceId: 1, DestinationId: 2, TypeId: snomed.IsA},
			{Id: 101, Active: true, SourceId: 2, DestinationId: 3, TypeId: snomed.IsA},
			{Id: 102, Active: true, SourceId: 3, DestinationId: 1, TypeId: snomed.IsA},
			{Id: 103, Active: true, SourceId: 4, DestinationId: 1, TypeId: snomed.IsA},
		},
	}))
	require.NoError(t, NewBuilder(s, nil).Build())

	ancestors1, err := s.Ancestors(1)
	require.NoError(t, err)
	assert.Empty(t, ancestors1, "the cyclic edge 1->2->3->1 must not be folded into 1's closure")

	descendants1, err := s.Descendants(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{4}, descendants1, "1's non-cyclic child 4 is still a descendant; only the cyclic edges are excluded")

	ancestors4, err := s.Ancestors(4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1}, ancestors4, "4's own edge into the cycle is unaffected, but must not expand past it")
}

func TestBuildRefsetMembershipAndFieldNames(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(store.Batch{
		Concepts: []*snomed.Concept{{Id: 1, Active: true}},
		RefsetItems: []*snomed.ReferenceSetItem{
			{Id: "a", Active: true, RefsetId: 900000000000496009, ReferencedComponentId: 1},
			{Id: "b", Active: true, RefsetId: 900000000000456007, ReferencedComponentId: 900000000000496009,
				Body: snomed.RefSetDescriptorReferenceSet{AttributeDescriptionId: 200, AttributeOrder: 0}},
			{Id: "c", Active: true, RefsetId: 900000000000456007, ReferencedComponentId: 900000000000496009,
				Body: snomed.RefSetDescriptorReferenceSet{AttributeDescriptionId: 201, AttributeOrder: 1}},
		},
	}))
	require.NoError(t, NewBuilder(s, nil).Build())

	refsets, err := s.RefsetsFor(1)
	require.NoError(t, err)
	assert.Contains(t, refsets, int64(900000000000496009))

	names, err := s.RefsetFieldNames(900000000000496009)
	require.NoError(t, err)
	assert.Equal(t, []string{"attr:200", "attr:201"}, names, "field names must follow declared AttributeOrder")
}
