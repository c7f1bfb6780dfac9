package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/classfile"
	"github.com/korniloval/fierix/pkg/enum"
	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/store"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceClass() []byte {
	c := &classfile.Class{
		MajorVersion: 61,
		AccessFlags:  classfile.AccPublic,
		Name:         "com/acme/web/OrderService",
		SuperName:    "java/lang/Object",
		Methods: []classfile.Method{
			{Name: "<init>", Descriptor: "()V", AccessFlags: classfile.AccPublic},
			{Name: "<clinit>", Descriptor: "()V", AccessFlags: classfile.AccStatic},
			{Name: "handle", Descriptor: "(Ljava/lang/String;I)Lcom/acme/web/Order;", AccessFlags: classfile.AccPublic},
			{Name: "getId", Descriptor: "()J", AccessFlags: classfile.AccPublic},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", AccessFlags: classfile.AccPublic},
			{Name: "lambda$handle$0", Descriptor: "(I)V", AccessFlags: classfile.AccPrivate | classfile.AccSynthetic},
			{Name: "broken", Descriptor: "(Q)V", AccessFlags: classfile.AccPublic},
		},
	}
	return c.Bytes()
}

func configuration(t *testing.T, yml string) *rule.Configuration {
	t.Helper()
	c, err := rule.NewLoader().LoadConfiguration([]byte(yml))
	require.NoError(t, err)
	return c
}

func newScanner(t *testing.T, cfg Config) *Scanner {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func methodNames(matches []*types.Match) []string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Method.Name
	}
	return names
}

func TestNew_RequiresConfiguration(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestScanner_ScanClass(t *testing.T) {
	s := newScanner(t, Config{Configuration: configuration(t, `
include:
  - com.acme.web.*.*(*)
exclude:
  - "*.get*()"
  - "*.toString()"
`)})

	content := serviceClass()
	blobID := types.ComputeBlobID(content)
	prov := types.ArchiveProvenance{ArchivePath: "app.jar", MemberPath: "com/acme/web/OrderService.class"}

	matches, err := s.ScanClass(content, blobID, prov)
	require.NoError(t, err)

	assert.Equal(t, []string{"<init>", "<clinit>", "handle"}, methodNames(matches))

	handle := matches[2]
	assert.Equal(t, "com.acme.web.OrderService", handle.Method.Class)
	assert.Equal(t, []string{"String", "int"}, handle.Method.Parameters)
	assert.Equal(t, "Order", handle.Method.ReturnType)
	assert.Equal(t, "com.acme.web.*.*(*)", handle.Rule)
	assert.Equal(t, "app.jar!/com/acme/web/OrderService.class", handle.Location)
	assert.Equal(t, handle.ComputeStructuralID(), handle.StructuralID)

	stored, err := s.Store().GetMatchesForClass("com.acme.web.OrderService")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestScanner_FirstIncludingRuleWins(t *testing.T) {
	s := newScanner(t, Config{Configuration: configuration(t, `
include:
  - com.acme.web.OrderService.handle(String+, *)+
  - com.acme.*.*(*)
`)})

	content := serviceClass()
	matches, err := s.ScanClass(content, types.ComputeBlobID(content), types.FileProvenance{FilePath: "OrderService.class"})
	require.NoError(t, err)

	rules := map[string]string{}
	save := map[string]bool{}
	for _, m := range matches {
		rules[m.Method.Name] = m.Rule
		save[m.Method.Name] = m.SaveReturnValue
	}
	assert.Equal(t, "com.acme.web.OrderService.handle(String+, *)+", rules["handle"])
	assert.True(t, save["handle"])
	assert.Equal(t, "com.acme.*.*(*)", rules["getId"])
	assert.False(t, save["getId"])
}

func TestScanner_ParameterRules(t *testing.T) {
	s := newScanner(t, Config{Configuration: configuration(t, `
include:
  - "*.handle(String, int)"
  - "*.getId()"
  - "*.toString(*)"
`)})

	content := serviceClass()
	matches, err := s.ScanClass(content, types.ComputeBlobID(content), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"handle", "getId", "toString"}, methodNames(matches))
}

func TestScanner_QualifiedParameterRules(t *testing.T) {
	tests := []struct {
		name string
		rule string
		want []string
	}{
		{name: "qualified", rule: "com.acme.web.OrderService.handle(java.lang.String, int)", want: []string{"handle"}},
		{name: "simple", rule: "com.acme.web.OrderService.handle(String, int)", want: []string{"handle"}},
		{name: "other package", rule: "com.acme.web.OrderService.handle(java.util.String, int)", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScanner(t, Config{Configuration: configuration(t, "include:\n  - \""+tt.rule+"\"\n")})

			content := serviceClass()
			matches, err := s.ScanClass(content, types.ComputeBlobID(content), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, methodNames(matches))

			for _, m := range matches {
				assert.Equal(t, []string{"String", "int"}, m.Method.Parameters)
			}
		})
	}
}

func TestScanner_IncludeSynthetic(t *testing.T) {
	cfg := configuration(t, "include:\n  - com.acme.web.*.lambda*(*)\n")

	content := serviceClass()

	matches, err := newScanner(t, Config{Configuration: cfg}).ScanClass(content, types.ComputeBlobID(content), nil)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = newScanner(t, Config{Configuration: cfg, IncludeSynthetic: true}).ScanClass(content, types.ComputeBlobID(content), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lambda$handle$0"}, methodNames(matches))
}

func TestScanner_NoApplicableRules(t *testing.T) {
	s := newScanner(t, Config{Configuration: configuration(t, "include:\n  - org.other.*.*(*)\n")})

	content := serviceClass()
	matches, err := s.ScanClass(content, types.ComputeBlobID(content), nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestScanner_ConfigurationEditsApply(t *testing.T) {
	cfg := configuration(t, "include:\n  - com.acme.web.*.handle(*)\n")
	s := newScanner(t, Config{Configuration: cfg})
	content := serviceClass()
	blobID := types.ComputeBlobID(content)

	matches, err := s.ScanClass(content, blobID, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	cfg.Exclude(types.MustMethodConfig("com.acme.web.OrderService.handle(*)"))

	matches, err = s.ScanClass(content, blobID, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestScanner_InvalidClassFile(t *testing.T) {
	s := newScanner(t, Config{Configuration: configuration(t, "include:\n  - \"*.*(*)\"\n")})

	_, err := s.ScanClass([]byte("nope"), types.ComputeBlobID([]byte("nope")), nil)
	assert.ErrorIs(t, err, classfile.ErrNotClassFile)
}

func writeClass(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeClass(t, filepath.Join(root, "com/acme/web/OrderService.class"), serviceClass())
	writeClass(t, filepath.Join(root, "com/acme/web/Broken.class"), []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0})
	other := &classfile.Class{Name: "org/other/Thing", SuperName: "java/lang/Object", Methods: []classfile.Method{{Name: "run", Descriptor: "()V"}}}
	writeClass(t, filepath.Join(root, "org/other/Thing.class"), other.Bytes())

	st := store.NewMemory()
	s := newScanner(t, Config{
		Configuration: configuration(t, "include:\n  - com.acme.*.*(*)\nexclude:\n  - \"*.toString()\"\n"),
		Store:         st,
	})

	stats, err := s.Scan(context.Background(), enum.NewFilesystemEnumerator(enum.Config{Root: root}))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Classes)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 4, stats.Matches)
	assert.Equal(t, 5, stats.Methods, "Thing is skipped by the prefilter")

	all, err := st.GetAllMatches()
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestScanner_ScanIncremental(t *testing.T) {
	root := t.TempDir()
	writeClass(t, filepath.Join(root, "OrderService.class"), serviceClass())

	st := store.NewMemory()
	cfg := configuration(t, "include:\n  - com.acme.*.*(*)\n")
	enumerator := enum.NewFilesystemEnumerator(enum.Config{Root: root})

	first, err := newScanner(t, Config{Configuration: cfg, Store: st, Incremental: true}).Scan(context.Background(), enumerator)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Classes)
	assert.Zero(t, first.Skipped)

	second, err := newScanner(t, Config{Configuration: cfg, Store: st, Incremental: true}).Scan(context.Background(), enumerator)
	require.NoError(t, err)
	assert.Zero(t, second.Classes)
	assert.Equal(t, 1, second.Skipped)
}

func TestScanner_ScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeClass(t, filepath.Join(root, "OrderService.class"), serviceClass())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newScanner(t, Config{Configuration: configuration(t, "include:\n  - com.acme.*.*(*)\n")})
	_, err := s.Scan(ctx, enum.NewFilesystemEnumerator(enum.Config{Root: root}))
	assert.ErrorIs(t, err, context.Canceled)
}
