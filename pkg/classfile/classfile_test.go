package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClass() *Class {
	return &Class{
		MajorVersion: 61,
		AccessFlags:  AccPublic,
		Name:         "com/foo/Bar",
		SuperName:    "java/lang/Object",
		Interfaces:   []string{"java/lang/Runnable"},
		Methods: []Method{
			{Name: "<init>", Descriptor: "()V", AccessFlags: AccPublic},
			{Name: "run", Descriptor: "()V", AccessFlags: AccPublic},
			{Name: "handle", Descriptor: "(Ljava/lang/String;I[B)Ljava/lang/Object;", AccessFlags: AccPublic},
			{Name: "<clinit>", Descriptor: "()V", AccessFlags: AccStatic},
			{Name: "access$000", Descriptor: "(Lcom/foo/Bar;)V", AccessFlags: AccStatic | AccSynthetic},
		},
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := sampleClass()

	parsed, err := Parse(orig.Bytes())
	require.NoError(t, err)

	assert.Equal(t, orig, parsed)
	assert.Equal(t, "com.foo.Bar", parsed.QualifiedName())
	assert.False(t, parsed.IsInterface())
}

func TestParse_ObjectHasNoSuper(t *testing.T) {
	orig := &Class{Name: "java/lang/Object", MajorVersion: 52, Methods: []Method{}}

	parsed, err := Parse(orig.Bytes())
	require.NoError(t, err)
	assert.Empty(t, parsed.SuperName)
	assert.Empty(t, parsed.Methods)
}

func TestParse_NotClassFile(t *testing.T) {
	tests := map[string][]byte{
		"empty":     {},
		"short":     {0xCA, 0xFE},
		"zip magic": []byte("PK\x03\x04rest"),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.ErrorIs(t, err, ErrNotClassFile)
			assert.False(t, IsClassFile(data))
		})
	}
}

func TestParse_Truncated(t *testing.T) {
	data := sampleClass().Bytes()

	for _, cut := range []int{6, 9, 20, len(data) / 2, len(data) - 3} {
		_, err := Parse(data[:cut])
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}
}

func TestParse_SkipsOtherConstantsAndAttributes(t *testing.T) {
	var b []byte
	u2 := func(v uint16) { b = binary.BigEndian.AppendUint16(b, v) }
	u4 := func(v uint32) { b = binary.BigEndian.AppendUint32(b, v) }
	utf8 := func(s string) {
		b = append(b, tagUtf8)
		u2(uint16(len(s)))
		b = append(b, s...)
	}

	u4(Magic)
	u2(0)
	u2(52)
	u2(10) // 9 entries, the long takes two
	// 1: a/B, 2: class a/B, 3-4: long, 5: method handle
	utf8("a/B")
	b = append(b, tagClass)
	u2(1)
	b = append(b, tagLong)
	u4(0)
	u4(42)
	b = append(b, tagMethodHandle, 1)
	u2(2)
	// 6: m, 7: (J)V, 8: Code, 9: string m
	utf8("m")
	utf8("(J)V")
	utf8("Code")
	b = append(b, tagString)
	u2(6)

	u2(AccPublic)
	u2(2) // this
	u2(0) // super
	u2(0) // interfaces
	u2(1) // one field
	u2(AccPrivate)
	u2(6)
	u2(7)
	u2(0)
	u2(1) // one method
	u2(AccPublic)
	u2(6)
	u2(7)
	u2(1) // one attribute
	u2(8)
	u4(3)
	b = append(b, 1, 2, 3)
	u2(0)

	c, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, "a/B", c.Name)
	require.Len(t, c.Methods, 1)
	assert.Equal(t, Method{Name: "m", Descriptor: "(J)V", AccessFlags: AccPublic}, c.Methods[0])
}

func TestParse_Malformed(t *testing.T) {
	var b []byte
	b = binary.BigEndian.AppendUint32(b, Magic)
	b = binary.BigEndian.AppendUint16(b, 0)
	b = binary.BigEndian.AppendUint16(b, 52)
	b = binary.BigEndian.AppendUint16(b, 2)
	b = append(b, 99) // unknown tag

	_, err := Parse(b)
	assert.ErrorIs(t, err, ErrMalformed)

	// this_class pointing at a UTF8 entry
	b = b[:10]
	b = append(b, tagUtf8, 0, 1, 'x')
	b = binary.BigEndian.AppendUint16(b, 0)
	b = binary.BigEndian.AppendUint16(b, 1)

	_, err = Parse(b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMethodFlags(t *testing.T) {
	c := sampleClass()

	assert.True(t, c.Methods[0].IsConstructor())
	assert.True(t, c.Methods[3].IsStaticInitializer())
	assert.True(t, c.Methods[4].IsSynthetic())
	assert.False(t, c.Methods[1].IsSynthetic())
	assert.False(t, c.Methods[1].IsAbstract())
	assert.True(t, Method{AccessFlags: AccAbstract}.IsAbstract())
}
