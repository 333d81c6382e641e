package rf2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/snomed"
)

func TestReaderDecodesConcepts(t *testing.T) {
	data := "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n" +
		"100\t20200101\t1\t900000000000207008\t900000000000074008\n" +
		"200\t20210101\t0\t900000000000207008\t900000000000074008\n"

	r, err := NewReader(strings.NewReader(data), ConceptFileType, "sct2_Concept_Snapshot_INT_20200101.txt")
	require.NoError(t, err)

	var concepts []*snomed.Concept
	for r.Scan() {
		concepts = append(concepts, r.Record().(*snomed.Concept))
	}
	require.NoError(t, r.Err())
	require.Len(t, concepts, 2)
	assert.Equal(t, int64(100), concepts[0].Id)
	assert.True(t, concepts[0].Active)
	assert.Equal(t, int64(200), concepts[1].Id)
	assert.False(t, concepts[1].Active)
}

func TestReaderRejectsBadHeader(t *testing.T) {
	data := "id\teffectiveTime\tactive\n100\t20200101\t1\n"
	_, err := NewReader(strings.NewReader(data), ConceptFileType, "sct2_Concept_Snapshot_INT_20200101.txt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInput))
}

func TestReaderFailsOnMalformedActiveFlag(t *testing.T) {
	data := "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n" +
		"100\t20200101\tYES\t900000000000207008\t900000000000074008\n"
	r, err := NewReader(strings.NewReader(data), ConceptFileType, "sct2_Concept_Snapshot_INT_20200101.txt")
	require.NoError(t, err)
	require.False(t, r.Scan())
	require.Error(t, r.Err())
	assert.True(t, apperr.IsKind(r.Err(), apperr.KindInput))
	var ae *apperr.Error
	require.ErrorAs(t, r.Err(), &ae)
	assert.Equal(t, 2, ae.Line)
}

func TestReaderDecodesLanguageRefset(t *testing.T) {
	data := "id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tacceptabilityId\n" +
		"7e9d1642-1ca0-4e3e-9f1a-000000000000\t20200101\t1\t900000000000207008\t900000000000509007\t300\t900000000000548007\n"
	r, err := NewReader(strings.NewReader(data), LanguageRefsetFileType, "der2_cRefset_LanguageSnapshot-en_INT_20200101.txt")
	require.NoError(t, err)
	require.True(t, r.Scan())
	item := r.Record().(*snomed.ReferenceSetItem)
	lang := item.GetLanguage()
	require.NotNil(t, lang)
	assert.True(t, lang.IsPreferred())
}

func TestRecogniseAndDiscover(t *testing.T) {
	ft, ok := Recognise("sct2_Concept_Snapshot_INT_20200101.txt")
	require.True(t, ok)
	assert.Equal(t, ConceptFileType, ft)

	_, ok = Recognise("readme.txt")
	assert.False(t, ok)
}

func TestRecogniseFallsBackToGenericRefset(t *testing.T) {
	ft, ok := Recognise("der2_ssRefset_UnknownSchemaSnapshot_INT_20200101.txt")
	require.True(t, ok)
	assert.Equal(t, GenericRefsetFileType, ft)

	// A named schema must still win over the catch-all.
	ft, ok = Recognise("der2_cRefset_AttributeValueSnapshot_INT_20200101.txt")
	require.True(t, ok)
	assert.Equal(t, AttributeValueRefsetFileType, ft)
}

func TestGenericRefsetFallback(t *testing.T) {
	data := "id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tsomeExtraColumn\tanotherColumn\n" +
		"7e9d1642-1ca0-4e3e-9f1a-000000000000\t20200101\t1\t900000000000207008\t999000000000000000\t300\tfoo\tbar\n"
	r, err := NewReader(strings.NewReader(data), GenericRefsetFileType, "der2_ssRefset_UnknownSchemaSnapshot_INT_20200101.txt")
	require.NoError(t, err)
	require.True(t, r.Scan())
	require.NoError(t, r.Err())

	item := r.Record().(*snomed.ReferenceSetItem)
	generic, ok := item.Body.(snomed.GenericReferenceSet)
	require.True(t, ok)
	assert.Equal(t, []string{"foo", "bar"}, generic.Fields)
}

func TestDecodeRefsetHeaderRejectsMalformedUUID(t *testing.T) {
	data := "id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\n" +
		"not-a-uuid\t20200101\t1\t900000000000207008\t900000000000509007\t300\n"
	r, err := NewReader(strings.NewReader(data), SimpleRefsetFileType, "der2_Refset_SimpleSnapshot_INT_20200101.txt")
	require.NoError(t, err)
	require.False(t, r.Scan())
	require.Error(t, r.Err())
	assert.True(t, apperr.IsKind(r.Err(), apperr.KindInput))
}
