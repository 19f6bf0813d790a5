package catalog

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "skus.gz")

	require.NoError(t, WriteFile(path, []string{"BOLT-M8", "NUT-M8"}))

	set, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Contains("BOLT-M8"))
	assert.True(t, set.Contains("NUT-M8"))
}

func TestSampleCatalogues_MinMatchTwo(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 0, len(SampleCatalogues))
	for name, skus := range SampleCatalogues {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, skus))
		paths = append(paths, path)
	}
	sort.Strings(paths)

	v, err := NewValidator(context.Background(), &ValidatorConfig{FilePaths: paths, MinMatchCount: 2}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	defer v.Close()

	assert.NoError(t, v.Validate(context.Background(), []string{"BOLT-M8", "NUT-M8", "WASHER-8", "SCREW-4X40", "ANCHOR-10"}))
	assert.Error(t, v.Validate(context.Background(), []string{"RIVET-5"}))
}
