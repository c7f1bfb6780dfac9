package rule

import (
	"fmt"

	"github.com/korniloval/fierix/pkg/types"
)

// ValidateMethodConfig checks a single config for required fields.
func ValidateMethodConfig(mc *types.MethodConfig) error {
	if mc == nil {
		return fmt.Errorf("method config is nil")
	}
	if mc.ClassPattern() == "" {
		return fmt.Errorf("rule %s: class pattern is required", mc)
	}
	if mc.MethodPattern() == "" {
		return fmt.Errorf("rule %s: method pattern is required", mc)
	}
	for i, p := range mc.Parameters() {
		if p.Type == "" {
			return fmt.Errorf("rule %s: parameter %d is empty", mc, i)
		}
	}
	return nil
}

// ValidateConfiguration checks every rule and reports rules that appear in
// both lists, which would never select anything.
// Returns the first problem found.
func ValidateConfiguration(c *Configuration) error {
	if c == nil {
		return fmt.Errorf("configuration is nil")
	}
	s := c.Snapshot()

	for _, mc := range s.Including {
		if err := ValidateMethodConfig(mc); err != nil {
			return fmt.Errorf("include: %w", err)
		}
	}
	for _, mc := range s.Excluding {
		if err := ValidateMethodConfig(mc); err != nil {
			return fmt.Errorf("exclude: %w", err)
		}
	}

	excluded := make(map[string]bool, len(s.Excluding))
	for _, mc := range s.Excluding {
		excluded[mc.String()] = true
	}
	for _, mc := range s.Including {
		if excluded[mc.String()] {
			return fmt.Errorf("rule %s is both included and excluded", mc)
		}
	}

	return nil
}
