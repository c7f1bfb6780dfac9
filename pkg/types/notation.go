package types

import (
	"regexp"
	"strings"
)

// paramSeparator splits a parameter list on commas with optional spaces.
var paramSeparator = regexp.MustCompile(` *, *`)

// ParseMethodConfig parses rule notation:
//
//	com.foo.*.run(String+, *)+
//
// The class and method patterns are split at the last '.' before '('.
// A '+' after a parameter enables it, a '+' after ')' saves the return value.
func ParseMethodConfig(text string) (*MethodConfig, error) {
	trimmed := strings.TrimSpace(text)
	open := strings.IndexByte(trimmed, '(')
	if open < 0 {
		return nil, &MalformedRuleError{Text: text, Reason: "missing '('"}
	}

	qualified := strings.TrimSpace(trimmed[:open])
	classPattern, methodPattern := "", qualified
	if dot := strings.LastIndexByte(qualified, '.'); dot >= 0 {
		classPattern, methodPattern = qualified[:dot], qualified[dot+1:]
	}

	return NewMethodConfigFromParts(classPattern, methodPattern, trimmed[open:])
}

// NewMethodConfigFromParts builds a config from pre-split class and method
// patterns plus the "(params)[+]" tail of rule notation.
func NewMethodConfigFromParts(classPattern, methodPattern, paramsNotation string) (*MethodConfig, error) {
	notation := strings.TrimSpace(paramsNotation)
	open := strings.IndexByte(notation, '(')
	if open < 0 {
		return nil, &MalformedRuleError{Text: paramsNotation, Reason: "missing '('"}
	}
	closing := strings.IndexByte(notation[open:], ')')
	if closing < 0 {
		return nil, &MalformedRuleError{Text: paramsNotation, Reason: "missing ')'"}
	}
	closing += open

	tail := strings.TrimSpace(notation[closing+1:])
	if tail != "" && tail != "+" {
		return nil, &MalformedRuleError{Text: paramsNotation, Reason: "unexpected text after ')': " + tail}
	}

	return NewMethodConfig(classPattern, methodPattern,
		parseParameters(notation[open+1:closing]),
		WithSaveReturnValue(tail == "+"))
}

// parseParameters splits the inside of the parentheses. An empty list
// yields no parameters rather than one empty parameter.
func parseParameters(inner string) []Parameter {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return []Parameter{}
	}

	parts := paramSeparator.Split(inner, -1)
	params := make([]Parameter, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		enabled := strings.HasSuffix(part, "+")
		if enabled {
			part = strings.TrimSuffix(part, "+")
		}
		params = append(params, Parameter{Type: part, Enabled: enabled})
	}
	return params
}
