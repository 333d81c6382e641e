package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

// fakeStore is a minimal store.Store that only records the batches handed
// to Put, so Import can be exercised without a real BoltDB file.
type fakeStore struct {
	mu      sync.Mutex
	batches []store.Batch
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) Put(b store.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
	return nil
}

func (s *fakeStore) concepts() []*snomed.Concept {
	var out []*snomed.Concept
	for _, b := range s.batches {
		out = append(out, b.Concepts...)
	}
	return out
}

func (s *fakeStore) descriptions() []*snomed.Description {
	var out []*snomed.Description
	for _, b := range s.batches {
		out = append(out, b.Descriptions...)
	}
	return out
}

// The remaining store.Store methods are unused by Import and panic if
// exercised, so a test relying on them fails loudly rather than silently
// passing.
func (s *fakeStore) GetConcept(int64) (*snomed.Concept, error)                    { panic("unused") }
func (s *fakeStore) GetConcepts(...int64) ([]*snomed.Concept, error)              { panic("unused") }
func (s *fakeStore) GetDescription(int64) (*snomed.Description, error)            { panic("unused") }
func (s *fakeStore) GetDescriptions(int64) ([]*snomed.Description, error)         { panic("unused") }
func (s *fakeStore) GetRelationship(int64) (*snomed.Relationship, error)          { panic("unused") }
func (s *fakeStore) GetRefsetItem(string) (*snomed.ReferenceSetItem, error)       { panic("unused") }
func (s *fakeStore) GetParentRelationships(int64, int64) ([]*snomed.Relationship, error) {
	panic("unused")
}
func (s *fakeStore) GetChildRelationships(int64, int64) ([]*snomed.Relationship, error) {
	panic("unused")
}
func (s *fakeStore) Descendants(int64) ([]int64, error)                    { panic("unused") }
func (s *fakeStore) Ancestors(int64) ([]int64, error)                      { panic("unused") }
func (s *fakeStore) RefsetsFor(int64) ([]int64, error)                     { panic("unused") }
func (s *fakeStore) MembersOf(int64) ([]int64, error)                      { panic("unused") }
func (s *fakeStore) GetFromRefset(int64, int64) (*snomed.ReferenceSetItem, bool, error) {
	panic("unused")
}
func (s *fakeStore) InstalledRefsets() ([]int64, error)                { panic("unused") }
func (s *fakeStore) RefsetFieldNames(int64) ([]string, error)          { panic("unused") }
func (s *fakeStore) Iterate(func(*snomed.Concept) error) error         { panic("unused") }
func (s *fakeStore) IterateRelationships(func(*snomed.Relationship) error) error {
	panic("unused")
}
func (s *fakeStore) IterateRefsetItems(func(*snomed.ReferenceSetItem) error) error {
	panic("unused")
}
func (s *fakeStore) GetStatistics() (store.Statistics, error) { panic("unused") }
func (s *fakeStore) Dirty() (bool, error)                     { return false, nil }
func (s *fakeStore) SetDirty(bool) error                      { return nil }
func (s *fakeStore) Compact() error                           { panic("unused") }
func (s *fakeStore) ClearIndices() error                      { panic("unused") }
func (s *fakeStore) PutParentRelationshipIndex(int64, int64, int64) error { panic("unused") }
func (s *fakeStore) PutChildRelationshipIndex(int64, int64, int64) error  { panic("unused") }
func (s *fakeStore) PutDescendant(int64, int64) error                    { panic("unused") }
func (s *fakeStore) PutAncestor(int64, int64) error                      { panic("unused") }
func (s *fakeStore) PutComponentRefset(int64, int64, string) error       { panic("unused") }
func (s *fakeStore) PutInstalledRefset(int64) error                      { panic("unused") }
func (s *fakeStore) PutRefsetFieldNames(int64, []string) error           { panic("unused") }
func (s *fakeStore) Close() error                                        { return nil }

var _ store.Store = (*fakeStore)(nil)

func writeRF2(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
}

func TestImportParsesAndAppliesConceptsAndDescriptions(t *testing.T) {
	dir := t.TempDir()
	writeRF2(t, dir, "sct2_Concept_Snapshot_INT_20200101.txt",
		"id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n"+
			"100\t20200101\t1\t900000000000207008\t900000000000074008\n"+
			"200\t20200101\t1\t900000000000207008\t900000000000074008\n")
	writeRF2(t, dir, "sct2_Description_Snapshot-en_INT_20200101.txt",
		"id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId\n"+
			"1000\t20200101\t1\t900000000000207008\t100\ten\t900000000000003001\tFoo\t900000000000448009\n")

	s := newFakeStore()
	err := Import(context.Background(), s, []string{dir}, Options{BatchSize: 1})
	require.NoError(t, err)

	assert.Len(t, s.concepts(), 2)
	assert.Len(t, s.descriptions(), 1)
	assert.Equal(t, int64(100), s.descriptions()[0].ConceptId)
}

func TestImportFailsOnUnrecognisedDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRF2(t, dir, "README.txt", "not an RF2 file")

	s := newFakeStore()
	err := Import(context.Background(), s, []string{dir}, Options{})
	assert.Error(t, err)
}

func TestImportRespectsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeRF2(t, dir, "sct2_Concept_Snapshot_INT_20200101.txt",
		"id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n"+
			"100\t20200101\t1\t900000000000207008\t900000000000074008\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newFakeStore()
	err := Import(ctx, s, []string{dir}, Options{})
	assert.Error(t, err)
}
