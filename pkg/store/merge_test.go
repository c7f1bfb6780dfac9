package store

import (
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Validation(t *testing.T) {
	_, err := Merge(MergeConfig{DestPath: "dest.db"})
	assert.ErrorContains(t, err, "no source databases")

	_, err = Merge(MergeConfig{SourcePaths: []string{"source.db"}})
	assert.ErrorContains(t, err, "destination path is required")
}

// writeSource creates a database holding one class with the given methods.
func writeSource(t *testing.T, path string, content string, methods ...string) {
	t.Helper()
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	blobID := types.ComputeBlobID([]byte(content))
	require.NoError(t, s.AddBlob(blobID, int64(len(content))))
	require.NoError(t, s.AddProvenance(blobID, types.ArchiveProvenance{ArchivePath: path + ".jar", MemberPath: content + ".class"}))
	for _, name := range methods {
		require.NoError(t, s.AddMatch(newMatch(blobID, "com.foo."+content, name, "()V", []string{}, "void")))
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	dest := filepath.Join(dir, "merged.db")

	writeSource(t, a, "Shared", "run", "stop")
	writeSource(t, b, "Shared", "run", "stop")
	writeSource(t, b+"x", "Other", "go")

	stats, err := Merge(MergeConfig{SourcePaths: []string{a, b, b + "x"}, DestPath: dest})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.SourcesProcessed)
	assert.Equal(t, 2, stats.BlobsMerged)
	assert.Equal(t, 3, stats.MatchesMerged)
	assert.Equal(t, 3, stats.ProvenanceMerged, "same blob from two jars keeps both provenances")

	merged, err := NewSQLite(dest)
	require.NoError(t, err)
	defer merged.Close()

	all, err := merged.GetAllMatches()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "com.foo.Other", all[0].Method.Class)
	assert.Equal(t, []string{}, all[0].Method.Parameters)
}

func TestMerge_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dest := filepath.Join(dir, "dest.db")
	writeSource(t, src, "Bar", "run")

	_, err := Merge(MergeConfig{SourcePaths: []string{src}, DestPath: dest})
	require.NoError(t, err)

	stats, err := Merge(MergeConfig{SourcePaths: []string{src}, DestPath: dest})
	require.NoError(t, err)
	assert.Zero(t, stats.BlobsMerged)
	assert.Zero(t, stats.MatchesMerged)
	assert.Zero(t, stats.ProvenanceMerged)
}

func TestMerge_MissingSource(t *testing.T) {
	dir := t.TempDir()

	_, err := Merge(MergeConfig{
		SourcePaths: []string{filepath.Join(dir, "missing.db")},
		DestPath:    filepath.Join(dir, "dest.db"),
	})
	assert.Error(t, err)
}
