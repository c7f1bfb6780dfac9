package types

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// compiledPatterns is the class/method regex pair of a MethodConfig. The pair
// is built together and never mutated, so readers always see a consistent
// class and method regex.
type compiledPatterns struct {
	class  *regexp2.Regexp
	method *regexp2.Regexp
}

// WildcardToRegex converts a wildcard pattern to regular expression source.
// Dots and dollar signs are literal, '*' matches any sequence.
func WildcardToRegex(pattern string) string {
	expr := strings.ReplaceAll(pattern, ".", `\.`)
	expr = strings.ReplaceAll(expr, "*", ".*")
	expr = strings.ReplaceAll(expr, "$", `\$`)
	return expr
}

// CompilePattern compiles a wildcard pattern into an anchored regex that must
// match the whole input.
func CompilePattern(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(`^(?:`+WildcardToRegex(pattern)+`)\z`, regexp2.None)
	if err != nil {
		return nil, &PatternCompilationError{Pattern: pattern, Err: err}
	}
	return re, nil
}

func compilePatterns(classPattern, methodPattern string) (*compiledPatterns, error) {
	class, err := CompilePattern(classPattern)
	if err != nil {
		return nil, err
	}
	method, err := CompilePattern(methodPattern)
	if err != nil {
		return nil, err
	}
	return &compiledPatterns{class: class, method: method}, nil
}

// fullMatch reports whether re matches s. A nil regex or a match error
// counts as no match.
func fullMatch(re *regexp2.Regexp, s string) bool {
	if re == nil {
		return false
	}
	ok, err := re.MatchString(s)
	return err == nil && ok
}
