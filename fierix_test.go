package fierix

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/classfile"
	"github.com/korniloval/fierix/pkg/descriptor"
	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelector(t *testing.T) {
	selector, err := NewSelector(
		WithRules("com.acme.*.*(*)"),
		WithExcludes("com.acme.Internal.*(*)"),
		WithPresets("accessors"),
	)
	require.NoError(t, err)

	including, excluding := selector.Configuration().Len()
	assert.Equal(t, 1, including)
	assert.Greater(t, excluding, 1)

	assert.True(t, selector.IsMethodInstrumented("com.acme.OrderService", "place", []string{"String", "int"}))
	assert.False(t, selector.IsMethodInstrumented("com.acme.Internal", "place", nil))
	assert.False(t, selector.IsMethodInstrumented("com.acme.OrderService", "getName", []string{}))
	assert.False(t, selector.IsMethodInstrumented("org.other.Thing", "run", nil))
}

func TestNewSelector_Errors(t *testing.T) {
	_, err := NewSelector(WithRules("no parens"))
	assert.ErrorIs(t, err, types.ErrMalformedRule)

	_, err = NewSelector(WithExcludes("a.B.c("))
	assert.ErrorIs(t, err, types.ErrMalformedRule)

	_, err = NewSelector(WithPresets("does-not-exist"))
	assert.Error(t, err)
}

func TestSelector_SharedConfiguration(t *testing.T) {
	c := rule.NewConfiguration(nil, nil)
	selector, err := NewSelector(WithConfiguration(c))
	require.NoError(t, err)

	assert.False(t, selector.IsMethodInstrumented("a.B", "run", nil))
	c.Include(types.MustMethodConfig("a.B.run(*)"))
	assert.True(t, selector.IsMethodInstrumented("a.B", "run", nil))
}

func TestSelector_IsDescriptorInstrumented(t *testing.T) {
	selector, err := NewSelector(WithRules("com.acme.Service.handle(String+, int)"))
	require.NoError(t, err)

	ok, err := selector.IsDescriptorInstrumented("com.acme.Service", "handle", "(Ljava/lang/String;I)V")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = selector.IsDescriptorInstrumented("com.acme.Service", "handle", "(I)V")
	require.NoError(t, err)
	assert.False(t, ok)

	qualified, err := NewSelector(WithRules("com.acme.Service.handle(java.lang.String, int)"))
	require.NoError(t, err)
	ok, err = qualified.IsDescriptorInstrumented("com.acme.Service", "handle", "(Ljava/lang/String;I)V")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = selector.IsDescriptorInstrumented("com.acme.Service", "handle", "(X)V")
	assert.ErrorIs(t, err, descriptor.ErrInvalidDescriptor)
}

func TestSelector_Scan(t *testing.T) {
	dir := t.TempDir()
	class := &classfile.Class{
		MajorVersion: 61,
		Name:         "com/acme/Service",
		SuperName:    "java/lang/Object",
		Methods: []classfile.Method{
			{Name: "handle", Descriptor: "(Ljava/lang/String;)V", AccessFlags: classfile.AccPublic},
			{Name: "isReady", Descriptor: "()Z", AccessFlags: classfile.AccPublic},
			{Name: "access$000", Descriptor: "()V", AccessFlags: classfile.AccStatic | classfile.AccSynthetic},
		},
	}
	path := filepath.Join(dir, "com", "acme", "Service.class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, class.Bytes(), 0o644))

	selector, err := NewSelector(WithRules("com.acme.*.*(*)"), WithExcludes("*.is*()"))
	require.NoError(t, err)

	matches, stats, err := selector.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "handle", matches[0].Method.Name)
	assert.Equal(t, []string{"String"}, matches[0].Method.Parameters)
	assert.Equal(t, "com.acme.*.*(*)", matches[0].Rule)
	assert.Equal(t, 1, stats.Classes)

	withSynthetic, err := NewSelector(WithRules("com.acme.*.*(*)"), WithSynthetic())
	require.NoError(t, err)
	matches, _, err = withSynthetic.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestParseRuleAndDecode(t *testing.T) {
	mc, err := ParseRule("com.foo.Bar.run(String+, *)+")
	require.NoError(t, err)
	assert.Equal(t, "com.foo.Bar", mc.ClassPattern())
	assert.True(t, mc.SaveReturnValue())

	params, err := DecodeDescriptor("Ljava/lang/String;I[B")
	require.NoError(t, err)
	assert.Equal(t, []string{"String", "int", "byte[]"}, params)
}

func TestLoadConfigurationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte("include:\n  - com.acme.*.*(*)\n"), 0o644))

	c, err := LoadConfigurationFile(path)
	require.NoError(t, err)
	assert.True(t, c.IsMethodInstrumented("com.acme.X", "y", nil))
}
