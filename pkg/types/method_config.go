package types

import (
	"fmt"
	"slices"
	"strings"

	"github.com/korniloval/fierix/pkg/descriptor"
)

// Wildcard as a parameter type stands for any remaining parameters.
const Wildcard = "*"

// Parameter is one positional parameter pattern of a MethodConfig.
type Parameter struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"` // selected for value capture; not used by matching
}

// IsWildcard reports whether the parameter is the "*" marker.
func (p Parameter) IsWildcard() bool {
	return p.Type == Wildcard
}

// MethodConfig selects methods by class pattern, method pattern and
// parameter patterns. Values are immutable once built; use Derive to obtain
// a modified copy.
type MethodConfig struct {
	classPattern    string
	methodPattern   string
	parameters      []Parameter
	enabled         bool
	saveReturnValue bool

	patterns *compiledPatterns
}

// Option configures NewMethodConfig.
type Option func(*Builder)

// WithEnabled sets whether the config takes part in matching. Default true.
func WithEnabled(enabled bool) Option {
	return func(b *Builder) {
		b.enabled = enabled
	}
}

// WithSaveReturnValue marks the method's return value for capture.
func WithSaveReturnValue(save bool) Option {
	return func(b *Builder) {
		b.saveReturnValue = save
	}
}

// NewMethodConfig builds a config from pre-split class and method patterns.
// Both patterns are compiled eagerly.
func NewMethodConfig(classPattern, methodPattern string, params []Parameter, opts ...Option) (*MethodConfig, error) {
	b := NewBuilder().
		SetClassPattern(classPattern).
		SetMethodPattern(methodPattern).
		SetParameters(params)
	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}

// MustMethodConfig is like ParseMethodConfig but panics on error.
// Intended for tests and package level presets.
func MustMethodConfig(text string) *MethodConfig {
	mc, err := ParseMethodConfig(text)
	if err != nil {
		panic(err)
	}
	return mc
}

// MethodConfigFromDescriptor builds a config that selects exactly one
// concrete method. className and methodName are taken literally and desc
// may be a full method descriptor or a bare parameter block.
func MethodConfigFromDescriptor(className, methodName, desc string) (*MethodConfig, error) {
	params, err := descriptor.Decode(descriptor.ParameterBlock(desc))
	if err != nil {
		return nil, fmt.Errorf("decoding parameters of %s.%s: %w", className, methodName, err)
	}
	parameters := make([]Parameter, len(params))
	for i, p := range params {
		parameters[i] = Parameter{Type: p}
	}
	return NewMethodConfig(className, methodName, parameters)
}

// ClassPattern returns the wildcard pattern over fully qualified class names.
func (m *MethodConfig) ClassPattern() string { return m.classPattern }

// MethodPattern returns the wildcard pattern over method names.
func (m *MethodConfig) MethodPattern() string { return m.methodPattern }

// Parameters returns a copy of the parameter patterns.
func (m *MethodConfig) Parameters() []Parameter { return slices.Clone(m.parameters) }

// Enabled reports whether the config can match at all.
func (m *MethodConfig) Enabled() bool { return m.enabled }

// SaveReturnValue reports whether the return value is marked for capture.
func (m *MethodConfig) SaveReturnValue() bool { return m.saveReturnValue }

// Matches reports whether the config selects the given method. A nil params
// slice means no parameter information is available.
func (m *MethodConfig) Matches(className, methodName string, params []string) bool {
	if !m.enabled || m.patterns == nil {
		return false
	}
	return fullMatch(m.patterns.class, className) &&
		fullMatch(m.patterns.method, methodName) &&
		ParametersMatch(m.parameters, params)
}

// AppliesToClass checks only the class pattern. Used to skip whole classes
// before looking at their methods.
func (m *MethodConfig) AppliesToClass(className string) bool {
	if m.patterns == nil {
		return false
	}
	return fullMatch(m.patterns.class, className)
}

// MatchesMethod is Matches for a decoded MethodRef.
func (m *MethodConfig) MatchesMethod(ref MethodRef) bool {
	return m.Matches(ref.Class, ref.Name, ref.Parameters)
}

// ParametersMatch reports whether actual satisfies the expected parameter
// patterns:
//   - [*] matches anything, absent information included
//   - absent information matches only an empty expectation
//   - an empty expectation matches only an empty parameter list
//   - a trailing * tolerates exactly one missing actual parameter
//   - otherwise positions are compared by suffix until a * accepts the rest
func ParametersMatch(expected []Parameter, actual []string) bool {
	if len(expected) == 1 && expected[0].IsWildcard() {
		return true
	}
	if actual == nil {
		return len(expected) == 0
	}
	if len(expected) == 0 {
		return len(actual) == 0
	}
	if len(expected) > len(actual) &&
		!(len(expected) == len(actual)+1 && expected[len(expected)-1].IsWildcard()) {
		return false
	}

	i := 0
	for ; i < len(expected); i++ {
		if expected[i].IsWildcard() {
			return true
		}
		if !strings.HasSuffix(actual[i], expected[i].Type) {
			return false
		}
	}
	return len(actual) == i
}

// QualifiedName returns "<class>.<method>".
func (m *MethodConfig) QualifiedName() string {
	return m.classPattern + "." + m.methodPattern
}

// PackagePattern returns the class pattern up to its last dot.
func (m *MethodConfig) PackagePattern() string {
	dot := strings.LastIndexByte(m.classPattern, '.')
	if dot < 0 {
		return ""
	}
	return m.classPattern[:dot]
}

// SimpleClassPattern returns the class pattern after its last dot.
func (m *MethodConfig) SimpleClassPattern() string {
	dot := strings.LastIndexByte(m.classPattern, '.')
	if dot < 0 {
		return m.classPattern
	}
	return m.classPattern[dot+1:]
}

// ParametersString renders "(a, b)" without enabled markers.
func (m *MethodConfig) ParametersString() string {
	names := make([]string, len(m.parameters))
	for i, p := range m.parameters {
		names[i] = p.Type
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// String renders the config in rule notation:
// <class>.<method>(<p1>[+], <p2>[+])[+]
func (m *MethodConfig) String() string {
	var sb strings.Builder
	sb.WriteString(m.QualifiedName())
	sb.WriteByte('(')
	for i, p := range m.parameters {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
		if p.Enabled {
			sb.WriteByte('+')
		}
	}
	sb.WriteByte(')')
	if m.saveReturnValue {
		sb.WriteByte('+')
	}
	return sb.String()
}

// Compare orders configs by their rule notation.
func (m *MethodConfig) Compare(other *MethodConfig) int {
	return strings.Compare(m.String(), other.String())
}

// Equal reports whether both configs carry the same patterns and flags.
func (m *MethodConfig) Equal(other *MethodConfig) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.classPattern == other.classPattern &&
		m.methodPattern == other.methodPattern &&
		m.enabled == other.enabled &&
		m.saveReturnValue == other.saveReturnValue &&
		slices.Equal(m.parameters, other.parameters)
}

// Derive returns a copy of m with edit applied. Patterns are recompiled.
func (m *MethodConfig) Derive(edit func(b *Builder)) (*MethodConfig, error) {
	b := &Builder{
		classPattern:    m.classPattern,
		methodPattern:   m.methodPattern,
		parameters:      slices.Clone(m.parameters),
		enabled:         m.enabled,
		saveReturnValue: m.saveReturnValue,
	}
	if edit != nil {
		edit(b)
	}
	return b.Build()
}

// MarshalText renders the rule notation.
func (m *MethodConfig) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses rule notation into m.
func (m *MethodConfig) UnmarshalText(text []byte) error {
	parsed, err := ParseMethodConfig(string(text))
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// Builder accumulates fields for a new MethodConfig.
type Builder struct {
	classPattern    string
	methodPattern   string
	parameters      []Parameter
	enabled         bool
	saveReturnValue bool
}

// NewBuilder returns a builder for an enabled config with no parameters.
func NewBuilder() *Builder {
	return &Builder{enabled: true, parameters: []Parameter{}}
}

func (b *Builder) SetClassPattern(pattern string) *Builder {
	b.classPattern = pattern
	return b
}

func (b *Builder) SetMethodPattern(pattern string) *Builder {
	b.methodPattern = pattern
	return b
}

// SetParameters copies params into the builder.
func (b *Builder) SetParameters(params []Parameter) *Builder {
	b.parameters = slices.Clone(params)
	if b.parameters == nil {
		b.parameters = []Parameter{}
	}
	return b
}

// AddParameter appends one parameter pattern.
func (b *Builder) AddParameter(typeName string, enabled bool) *Builder {
	b.parameters = append(b.parameters, Parameter{Type: typeName, Enabled: enabled})
	return b
}

// SetParameterEnabled toggles the enabled flag of the parameter at index i.
// Out of range indexes are ignored.
func (b *Builder) SetParameterEnabled(i int, enabled bool) *Builder {
	if i >= 0 && i < len(b.parameters) {
		b.parameters[i].Enabled = enabled
	}
	return b
}

func (b *Builder) SetEnabled(enabled bool) *Builder {
	b.enabled = enabled
	return b
}

func (b *Builder) SetSaveReturnValue(save bool) *Builder {
	b.saveReturnValue = save
	return b
}

// RemoveEmptyParameters drops parameters with an empty type name.
func (b *Builder) RemoveEmptyParameters() *Builder {
	b.parameters = slices.DeleteFunc(b.parameters, func(p Parameter) bool {
		return p.Type == ""
	})
	return b
}

// Build compiles the patterns and returns the immutable config.
func (b *Builder) Build() (*MethodConfig, error) {
	patterns, err := compilePatterns(b.classPattern, b.methodPattern)
	if err != nil {
		return nil, err
	}
	params := slices.Clone(b.parameters)
	if params == nil {
		params = []Parameter{}
	}
	return &MethodConfig{
		classPattern:    b.classPattern,
		methodPattern:   b.methodPattern,
		parameters:      params,
		enabled:         b.enabled,
		saveReturnValue: b.saveReturnValue,
		patterns:        patterns,
	}, nil
}
