package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrOpenDescriptorCreatesThenReopens(t *testing.T) {
	dir := t.TempDir()
	desc, err := CreateOrOpenDescriptor(dir, 1.0, "bolt+bleve")
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), desc.Version)

	reopened, err := CreateOrOpenDescriptor(dir, 1.0, "bolt+bleve")
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), reopened.Version)
}

func TestCreateOrOpenDescriptorRejectsMismatchedStoreType(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateOrOpenDescriptor(dir, 1.0, "bolt+bleve")
	require.NoError(t, err)

	_, err = CreateOrOpenDescriptor(dir, 1.0, "postgres")
	assert.Error(t, err)
}

func TestCreateOrOpenDescriptorRejectsMismatchedVersion(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateOrOpenDescriptor(dir, 1.0, "bolt+bleve")
	require.NoError(t, err)

	_, err = CreateOrOpenDescriptor(dir, 2.0, "bolt+bleve")
	assert.Error(t, err)
}

func TestDescriptorSavePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := CreateOrOpenDescriptor(dir, 1.0, "bolt+bleve")
	require.NoError(t, err)
	require.NoError(t, first.Save())

	second, err := CreateOrOpenDescriptor(filepath.Dir(filepath.Join(dir, "x")), 1.0, "bolt+bleve")
	require.NoError(t, err)
	assert.Equal(t, first.StoreType, second.StoreType)
}
