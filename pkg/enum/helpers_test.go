package enum

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/classfile"
	"github.com/stretchr/testify/require"
)

// classBytes returns a minimal class file for an internal class name.
func classBytes(name string) []byte {
	c := &classfile.Class{
		MajorVersion: 61,
		Name:         name,
		SuperName:    "java/lang/Object",
		Methods:      []classfile.Method{{Name: "run", Descriptor: "()V"}},
	}
	return c.Bytes()
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

// zipBytes builds an archive from name → content pairs, written in order.
func zipBytes(t *testing.T, entries ...any) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i+1 < len(entries); i += 2 {
		w, err := zw.Create(entries[i].(string))
		require.NoError(t, err)
		_, err = w.Write(entries[i+1].([]byte))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
