package terminology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

func TestGetExtendedConcept(t *testing.T) {
	svc := newTestSvc(t)
	require.NoError(t, svc.Put(store.Batch{
		RefsetItems: []*snomed.ReferenceSetItem{
			{Id: "r1", Active: true, RefsetId: 900000000000497000, ReferencedComponentId: 4},
		},
	}))
	require.NoError(t, svc.PutComponentRefset(4, 900000000000497000, "r1"))

	ec, err := svc.GetExtendedConcept(4)
	require.NoError(t, err)

	assert.Equal(t, int64(4), ec.Concept.Id)
	require.Len(t, ec.Descriptions, 1)
	assert.Equal(t, "Dog (animal)", ec.Descriptions[0].Term)

	require.Contains(t, ec.DirectParentRelationships, snomed.IsA)
	assert.Equal(t, []int64{3}, ec.DirectParentRelationships[snomed.IsA])

	require.Contains(t, ec.ParentRelationships, snomed.IsA)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ec.ParentRelationships[snomed.IsA],
		"the IS_A group must carry the full ancestor closure, not just the direct parent")

	assert.Contains(t, ec.Refsets, int64(900000000000497000))
}

func TestGetExtendedConceptNonIsARelationshipIsDirectOnly(t *testing.T) {
	svc := newTestSvc(t)
	const associatedMorphology int64 = 900000000000000002
	require.NoError(t, svc.Put(store.Batch{
		Concepts: []*snomed.Concept{{Id: 4}},
		Relationships: []*snomed.Relationship{
			{Id: 200, Active: true, SourceId: 4, DestinationId: 1, TypeId: associatedMorphology},
		},
	}))
	require.NoError(t, svc.PutParentRelationshipIndex(4, associatedMorphology, 200))

	ec, err := svc.GetExtendedConcept(4)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ec.DirectParentRelationships[associatedMorphology])
	assert.Equal(t, []int64{1}, ec.ParentRelationships[associatedMorphology],
		"non-IS_A types report direct destinations only, unchanged between the two maps")
}
