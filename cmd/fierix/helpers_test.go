package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/classfile"
	"github.com/stretchr/testify/require"
)

// orderService is a compiled com.acme.OrderService with three methods.
func orderService() []byte {
	c := &classfile.Class{
		MajorVersion: 61,
		AccessFlags:  classfile.AccPublic,
		Name:         "com/acme/OrderService",
		SuperName:    "java/lang/Object",
		Methods: []classfile.Method{
			{Name: "<init>", Descriptor: "()V", AccessFlags: classfile.AccPublic},
			{Name: "place", Descriptor: "(Ljava/lang/String;I)J", AccessFlags: classfile.AccPublic},
			{Name: "getName", Descriptor: "()Ljava/lang/String;", AccessFlags: classfile.AccPublic},
		},
	}
	return c.Bytes()
}

// billing is a compiled com.acme.billing.Invoice with one method.
func billing() []byte {
	c := &classfile.Class{
		MajorVersion: 61,
		Name:         "com/acme/billing/Invoice",
		SuperName:    "java/lang/Object",
		Methods: []classfile.Method{
			{Name: "total", Descriptor: "([BZ)D", AccessFlags: classfile.AccPublic},
		},
	}
	return c.Bytes()
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func jarBytes(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
