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

// newSearchTestSvc seeds a small hierarchy under a "clinical finding" root
// (100), with "disorder" (200) and "infection" (300) below it, mirroring
// spec §8's worked example, plus a language refset (999001) marking
// 300's description as preferred and 200's as merely acceptable.
func newSearchTestSvc(t *testing.T) *Svc {
	t.Helper()
	svc, err := New(filepath.Join(t.TempDir(), "engine"), false)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	require.NoError(t, svc.Put(store.Batch{
		Concepts: []*snomed.Concept{
			{Id: 100, Active: true}, {Id: 200, Active: true}, {Id: 300, Active: true},
		},
		Descriptions: []*snomed.Description{
			{Id: 2001, ConceptId: 200, Active: true, TypeId: int64(snomed.Synonym), Term: "Disorder"},
			{Id: 3001, ConceptId: 300, Active: true, TypeId: int64(snomed.Synonym), Term: "Infection"},
		},
		Relationships: []*snomed.Relationship{
			{Id: 900, Active: true, SourceId: 200, DestinationId: 100, TypeId: snomed.IsA},
			{Id: 901, Active: true, SourceId: 300, DestinationId: 200, TypeId: snomed.IsA},
		},
		RefsetItems: []*snomed.ReferenceSetItem{
			{Id: "a", Active: true, RefsetId: 999001, ReferencedComponentId: 3001,
				Body: snomed.LanguageReferenceSet{AcceptabilityId: snomed.PreferredAcceptability}},
			{Id: "b", Active: true, RefsetId: 999001, ReferencedComponentId: 2001,
				Body: snomed.LanguageReferenceSet{AcceptabilityId: snomed.AcceptableAcceptability}},
		},
	}))
	require.NoError(t, index.NewBuilder(svc.Store, nil).Build())
	require.NoError(t, svc.Index())
	return svc
}

func TestSearchConceptIDFilterMatchesExactConceptOnly(t *testing.T) {
	svc := newSearchTestSvc(t)

	descendants, err := svc.Descendants(100)
	require.NoError(t, err)

	hits, err := svc.Search.Search(snomed.SearchParams{
		Text:            "infec",
		MaxHits:         10,
		ActiveOnly:      true,
		ConceptIDFilter: descendants,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(300), hits[0].ConceptID)
}

func TestSearchPreferredInFiltersByLanguageRefset(t *testing.T) {
	svc := newSearchTestSvc(t)

	hits, err := svc.Search.Search(snomed.SearchParams{
		Text:        "disor",
		MaxHits:     10,
		ActiveOnly:  true,
		PreferredIn: []int64{999001},
	})
	require.NoError(t, err)
	assert.Empty(t, hits, "disorder's description is only acceptable, not preferred, in refset 999001")

	hits, err = svc.Search.Search(snomed.SearchParams{
		Text:        "infec",
		MaxHits:     10,
		ActiveOnly:  true,
		PreferredIn: []int64{999001},
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(300), hits[0].ConceptID)
}

func TestSearchAcceptableInIncludesPreferred(t *testing.T) {
	svc := newSearchTestSvc(t)

	hits, err := svc.Search.Search(snomed.SearchParams{
		Text:         "infec",
		MaxHits:      10,
		ActiveOnly:   true,
		AcceptableIn: []int64{999001},
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits, "preferred implies acceptable-or-better")
	assert.Equal(t, int64(300), hits[0].ConceptID)
}
