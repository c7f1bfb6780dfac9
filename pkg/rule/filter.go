package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/korniloval/fierix/pkg/types"
)

// FilterConfig specifies include and exclude patterns for selecting rules by
// their rule notation.
type FilterConfig struct {
	Include []string // Regex patterns - only matching rules included
	Exclude []string // Regex patterns - matching rules excluded
}

// ParsePatterns splits a comma-separated string into individual patterns.
// Patterns are trimmed of whitespace.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include and exclude regexes to the rule notation of each
// config. Include is applied first, then exclude; an empty include keeps
// everything. Returns error if any pattern is invalid regex.
func Filter(configs []*types.MethodConfig, config FilterConfig) ([]*types.MethodConfig, error) {
	if len(configs) == 0 {
		return configs, nil
	}

	includeRegexes, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	excludeRegexes, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	result := make([]*types.MethodConfig, 0, len(configs))
	for _, mc := range configs {
		text := mc.String()
		if len(includeRegexes) > 0 && !matchesAny(text, includeRegexes) {
			continue
		}
		if matchesAny(text, excludeRegexes) {
			continue
		}
		result = append(result, mc)
	}
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func matchesAny(text string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
