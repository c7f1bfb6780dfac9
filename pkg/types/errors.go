package types

import (
	"errors"
	"fmt"

	"github.com/korniloval/fierix/pkg/descriptor"
)

var (
	// ErrPatternCompilation is matched by every *PatternCompilationError.
	ErrPatternCompilation = errors.New("pattern compilation failed")

	// ErrMalformedRule is matched by every *MalformedRuleError.
	ErrMalformedRule = errors.New("malformed rule text")

	// ErrInvalidDescriptor is matched by descriptor decoding failures.
	ErrInvalidDescriptor = descriptor.ErrInvalidDescriptor
)

// PatternCompilationError reports a wildcard pattern that does not compile
// to a regular expression.
type PatternCompilationError struct {
	Pattern string
	Err     error
}

func (e *PatternCompilationError) Error() string {
	return fmt.Sprintf("compiling pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternCompilationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPatternCompilation) succeed.
func (e *PatternCompilationError) Is(target error) bool {
	return target == ErrPatternCompilation
}

// MalformedRuleError reports rule text without a well formed parameter section.
type MalformedRuleError struct {
	Text   string
	Reason string
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("malformed rule %q: %s", e.Text, e.Reason)
}

// Is lets errors.Is(err, ErrMalformedRule) succeed.
func (e *MalformedRuleError) Is(target error) bool {
	return target == ErrMalformedRule
}
