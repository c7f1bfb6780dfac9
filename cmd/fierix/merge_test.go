package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMergeCmd creates a fresh merge command for testing
func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "merge <source1.db> <source2.db> [source3.db...]",
		Args: cobra.MinimumNArgs(2),
		RunE: runMerge,
	}
	cmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output database path")
	return cmd
}

func TestMergeCmd_RequiresMinimumArgs(t *testing.T) {
	cmd := newMergeCmd()
	cmd.SetArgs([]string{"source1.db"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg")
}

func TestMergeCmd_MergesTwoDatabases(t *testing.T) {
	tmpDir := t.TempDir()

	source1 := filepath.Join(tmpDir, "source1.db")
	s1, err := store.NewSQLite(source1)
	require.NoError(t, err)
	place := reportMatch("com.acme.OrderService", "place", "(I)V", []string{"int"}, "void", "com.acme.*.*(*)")
	require.NoError(t, s1.AddBlob(place.BlobID, 10))
	require.NoError(t, s1.AddMatch(place))
	require.NoError(t, s1.Close())

	source2 := filepath.Join(tmpDir, "source2.db")
	s2, err := store.NewSQLite(source2)
	require.NoError(t, err)
	total := reportMatch("com.acme.billing.Invoice", "total", "()D", []string{}, "double", "com.acme.*.*(*)")
	require.NoError(t, s2.AddBlob(total.BlobID, 20))
	require.NoError(t, s2.AddMatch(total))
	// duplicate of source1
	require.NoError(t, s2.AddBlob(place.BlobID, 10))
	require.NoError(t, s2.AddMatch(place))
	require.NoError(t, s2.Close())

	outPath := filepath.Join(tmpDir, "merged.db")
	var buf bytes.Buffer
	cmd := newMergeCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"-o", outPath, source1, source2})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Sources processed: 2")
	assert.Contains(t, output, "Matches merged: 2")
	assert.Contains(t, output, "Output: "+outPath)

	merged, err := store.NewSQLite(outPath)
	require.NoError(t, err)
	defer merged.Close()

	matches, err := merged.GetAllMatches()
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
