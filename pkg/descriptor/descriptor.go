// Package descriptor decodes JVM type descriptors into the human readable
// parameter names used by method rules.
//
// A method descriptor such as (Ljava/lang/String;I[B)V carries the parameter
// block Ljava/lang/String;I[B which decodes to [String int byte[]], or to
// [java.lang.String int byte[]] with the qualified decoders rules match against.
package descriptor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidDescriptor is matched by every *InvalidDescriptorError via errors.Is.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// InvalidDescriptorError reports an unrecognized type code in a descriptor.
type InvalidDescriptorError struct {
	Descriptor string
	Index      int
	Char       byte
	Reason     string
}

func (e *InvalidDescriptorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid descriptor %q at index %d: %s", e.Descriptor, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid descriptor %q at index %d: unknown type code %q", e.Descriptor, e.Index, e.Char)
}

// Is lets errors.Is(err, ErrInvalidDescriptor) succeed.
func (e *InvalidDescriptorError) Is(target error) bool {
	return target == ErrInvalidDescriptor
}

// tokenPattern recognizes one raw parameter token: array markers followed by a
// primitive code or an object reference.
var tokenPattern = regexp.MustCompile(`\[*(C|Z|S|I|J|F|D|B|L[^;]+;)`)

var primitives = map[byte]string{
	'I': "int",
	'J': "long",
	'Z': "boolean",
	'C': "char",
	'S': "short",
	'B': "byte",
	'F': "float",
	'D': "double",
	'V': "void",
}

// Split breaks a descriptor parameter block into raw tokens without decoding
// them. Unrecognized characters between tokens are ignored.
func Split(desc string) []string {
	tokens := tokenPattern.FindAllString(desc, -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// ParseToken decodes the single token starting at start and returns the
// decoded text together with the index just past the token. Object types
// decode to their simple name.
func ParseToken(desc string, start int) (string, int, error) {
	return parseToken(desc, start, simpleName)
}

func parseToken(desc string, start int, name func(internal string) string) (string, int, error) {
	if start < 0 || start >= len(desc) {
		return "", start, &InvalidDescriptorError{Descriptor: desc, Index: start, Reason: "unexpected end of descriptor"}
	}

	c := desc[start]
	switch c {
	case '[':
		inner, end, err := parseToken(desc, start+1, name)
		if err != nil {
			return "", end, err
		}
		return inner + "[]", end, nil
	case 'L':
		semi := strings.IndexByte(desc[start+1:], ';')
		if semi < 0 {
			return "", len(desc), &InvalidDescriptorError{Descriptor: desc, Index: start, Char: c, Reason: "unterminated object type"}
		}
		end := start + 1 + semi
		return name(desc[start+1 : end]), end + 1, nil
	default:
		prim, ok := primitives[c]
		if !ok {
			return "", start, &InvalidDescriptorError{Descriptor: desc, Index: start, Char: c}
		}
		return prim, start + 1, nil
	}
}

func simpleName(internal string) string {
	if slash := strings.LastIndexByte(internal, '/'); slash >= 0 {
		return internal[slash+1:]
	}
	return internal
}

// Decode decodes a whole parameter block into simple parameter type names.
// An empty block yields an empty, non-nil slice.
func Decode(desc string) ([]string, error) {
	return decode(desc, simpleName)
}

// DecodeQualified is Decode keeping the package of object types
// (java.lang.String rather than String).
func DecodeQualified(desc string) ([]string, error) {
	return decode(desc, QualifiedName)
}

func decode(desc string, name func(string) string) ([]string, error) {
	params := []string{}
	for i := 0; i < len(desc); {
		param, end, err := parseToken(desc, i, name)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		i = end
	}
	return params, nil
}

// DecodeMethod decodes a full method descriptor of the form (params)ret
// into simple type names.
func DecodeMethod(desc string) ([]string, string, error) {
	return decodeMethod(desc, simpleName)
}

// DecodeMethodQualified decodes a full method descriptor into fully
// qualified type names, the form rules are matched against.
func DecodeMethodQualified(desc string) ([]string, string, error) {
	return decodeMethod(desc, QualifiedName)
}

func decodeMethod(desc string, name func(string) string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", &InvalidDescriptorError{Descriptor: desc, Index: 0, Reason: "method descriptor must start with '('"}
	}
	closing := strings.IndexByte(desc, ')')
	if closing < 0 {
		return nil, "", &InvalidDescriptorError{Descriptor: desc, Index: len(desc), Reason: "missing ')'"}
	}

	params, err := decode(desc[1:closing], name)
	if err != nil {
		return nil, "", err
	}

	ret, end, err := parseToken(desc, closing+1, name)
	if err != nil {
		return nil, "", err
	}
	if end != len(desc) {
		return nil, "", &InvalidDescriptorError{Descriptor: desc, Index: end, Reason: "trailing data after return type"}
	}
	return params, ret, nil
}

// ParameterBlock returns the text between the parentheses of a method
// descriptor, or desc unchanged when it has no parentheses.
func ParameterBlock(desc string) string {
	open := strings.IndexByte(desc, '(')
	if open < 0 {
		return desc
	}
	closing := strings.IndexByte(desc[open:], ')')
	if closing < 0 {
		return desc[open+1:]
	}
	return desc[open+1 : open+closing]
}

// QualifiedName converts an internal binary name (java/lang/String) to its
// dotted form (java.lang.String).
func QualifiedName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}
