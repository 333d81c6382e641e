package terminology

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/index"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

// newTestSvc opens a real engine at a temp path and seeds it with a small
// hierarchy: root(1) <- animal(2) <- mammal(3) <- dog(4), and bird(5) also
// a direct child of animal. Descriptions are added for dog and mammal.
func newTestSvc(t *testing.T) *Svc {
	t.Helper()
	svc, err := New(filepath.Join(t.TempDir(), "engine"), false)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	require.NoError(t, svc.Put(store.Batch{
		Concepts: []*snomed.Concept{
			{Id: 1, Active: true}, {Id: 2, Active: true}, {Id: 3, Active: true},
			{Id: 4, Active: true}, {Id: 5, Active: true},
		},
		Descriptions: []*snomed.Description{
			{Id: 40, ConceptId: 4, Active: true, TypeId: int64(snomed.FullySpecifiedName), Term: "Dog (animal)"},
			{Id: 30, ConceptId: 3, Active: true, TypeId: int64(snomed.FullySpecifiedName), Term: "Mammal (animal)"},
		},
		Relationships: []*snomed.Relationship{
			{Id: 100, Active: true, SourceId: 2, DestinationId: 1, TypeId: snomed.IsA},
			{Id: 101, Active: true, SourceId: 3, DestinationId: 2, TypeId: snomed.IsA},
			{Id: 102, Active: true, SourceId: 4, DestinationId: 3, TypeId: snomed.IsA},
			{Id: 103, Active: true, SourceId: 5, DestinationId: 2, TypeId: snomed.IsA},
		},
	}))
	require.NoError(t, index.NewBuilder(svc.Store, nil).Build())
	return svc
}

func TestGetParentsAndChildren(t *testing.T) {
	svc := newTestSvc(t)
	dog, err := svc.GetConcept(4)
	require.NoError(t, err)

	parents, err := svc.GetParents(dog)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, int64(3), parents[0].Id)

	animal, err := svc.GetConcept(2)
	require.NoError(t, err)
	children, err := svc.GetChildren(animal)
	require.NoError(t, err)
	ids := conceptIDs(children)
	assert.ElementsMatch(t, []int64{3, 5}, ids)
}

func TestGetAllParentsAndChildren(t *testing.T) {
	svc := newTestSvc(t)
	dog, err := svc.GetConcept(4)
	require.NoError(t, err)

	ancestors, err := svc.GetAllParents(dog)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, conceptIDs(ancestors))

	root, err := svc.GetConcept(1)
	require.NoError(t, err)
	descendants, err := svc.GetAllChildren(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3, 4, 5}, conceptIDs(descendants))
}

func TestGetSiblings(t *testing.T) {
	svc := newTestSvc(t)
	mammal, err := svc.GetConcept(3)
	require.NoError(t, err)

	siblings, err := svc.GetSiblings(mammal)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, int64(5), siblings[0].Id)
}

func TestPathsToRoot(t *testing.T) {
	svc := newTestSvc(t)
	dog, err := svc.GetConcept(4)
	require.NoError(t, err)

	paths, err := svc.PathsToRoot(dog)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []int64{4, 3, 2, 1}, conceptIDs(paths[0]))

	longest, err := svc.LongestPathToRoot(dog)
	require.NoError(t, err)
	assert.Len(t, longest, 4)

	shortest, err := svc.ShortestPathToRoot(dog)
	require.NoError(t, err)
	assert.Len(t, shortest, 4)
}

func TestGenericiseTo(t *testing.T) {
	svc := newTestSvc(t)
	dog, err := svc.GetConcept(4)
	require.NoError(t, err)

	generic, ok := svc.GenericiseTo(dog, map[int64]bool{2: true})
	require.True(t, ok)
	assert.Equal(t, int64(2), generic.Id)

	_, ok = svc.GenericiseTo(dog, map[int64]bool{999: true})
	assert.False(t, ok, "no ancestor matches the generics set")
}

func TestGenericiseToRoot(t *testing.T) {
	svc := newTestSvc(t)
	dog, err := svc.GetConcept(4)
	require.NoError(t, err)

	generic, err := svc.GenericiseToRoot(dog, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), generic.Id, "the concept one step below root")

	_, err = svc.GenericiseToRoot(dog, 999)
	assert.Error(t, err, "an unrelated root must be reported as usage error")
}

func TestIsA(t *testing.T) {
	svc := newTestSvc(t)
	dog, err := svc.GetConcept(4)
	require.NoError(t, err)

	assert.True(t, svc.IsA(dog, 4), "a concept is-a itself")
	assert.True(t, svc.IsA(dog, 2), "dog descends from animal")
	assert.False(t, svc.IsA(dog, 5), "dog and bird are unrelated siblings")
}

func TestSubsumes(t *testing.T) {
	svc := newTestSvc(t)

	ok, err := svc.Subsumes(2, 4) // animal subsumes dog
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Subsumes(4, 4) // a concept subsumes itself
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Subsumes(5, 4) // bird does not subsume dog
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Subsumes(4, 2) // dog does not subsume its own ancestor animal
	require.NoError(t, err)
	assert.False(t, ok)
}

func conceptIDs(concepts []*snomed.Concept) []int64 {
	ids := make([]int64, len(concepts))
	for i, c := range concepts {
		ids[i] = c.Id
	}
	return ids
}
