package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/index"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
	"github.com/eldrix/snomed-terminology/terminology"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc, err := terminology.New(filepath.Join(t.TempDir(), "engine"), false)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	require.NoError(t, svc.Put(store.Batch{
		Concepts: []*snomed.Concept{{Id: 1, Active: true}, {Id: 2, Active: true}},
		Descriptions: []*snomed.Description{
			{Id: 10, ConceptId: 2, Active: true, TypeId: int64(snomed.FullySpecifiedName), Term: "Foo (foo)", LanguageCode: "en"},
			{Id: 11, ConceptId: 2, Active: true, TypeId: int64(snomed.Synonym), Term: "Foo", LanguageCode: "en"},
		},
		Relationships: []*snomed.Relationship{
			{Id: 100, Active: true, SourceId: 2, DestinationId: 1, TypeId: snomed.IsA},
		},
	}))
	require.NoError(t, index.NewBuilder(svc.Store, nil).Build())
	require.NoError(t, svc.Index())

	return New(svc, nil)
}

func TestGetConcept(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/concepts/2", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got conceptView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got.Id)
	assert.Contains(t, got.IsA, int64(1))
	assert.Len(t, got.Descriptions, 1, "the FSN is excluded unless includeFsn=true")
}

func TestGetConceptNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/concepts/999", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetParentsRecursive(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/concepts/2/parents?recursive=true", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []*snomed.Concept
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Id)
}

func TestEvalECLMissingExpression(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/ecl", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvalECLSelf(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/ecl?expression=2", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got, int64(2))
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/search?s=foo", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []*searchHit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotEmpty(t, got)
	assert.Equal(t, int64(2), got[0].ConceptID)
}

func TestSearchWithEclFiltersOutNonMatchingConcepts(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/search?s=foo&ecl=1", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []*searchHit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got, "concept 2's description shouldn't match an ECL constrained to self-concept 1")
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
