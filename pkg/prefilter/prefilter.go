package prefilter

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/korniloval/fierix/pkg/types"
)

// Prefilter uses Aho-Corasick to narrow the rules that can select methods of
// a class before running the full class pattern regexes.
type Prefilter struct {
	matcher        *ahocorasick.Matcher
	literals       []string                         // literal at each index
	literalRules   map[string][]*types.MethodConfig // literal -> rules needing it
	noLiteralRules []*types.MethodConfig            // rules without literals (always checked)
}

// New creates a prefilter from rules. Disabled rules never match and are
// left out.
func New(rules []*types.MethodConfig) *Prefilter {
	pf := &Prefilter{
		literalRules:   make(map[string][]*types.MethodConfig),
		noLiteralRules: make([]*types.MethodConfig, 0),
	}

	seen := make(map[string]bool)
	for _, rule := range rules {
		if rule == nil || !rule.Enabled() {
			continue
		}
		literal := Literal(rule.ClassPattern())
		if literal == "" {
			pf.noLiteralRules = append(pf.noLiteralRules, rule)
			continue
		}
		if !seen[literal] {
			seen[literal] = true
			pf.literals = append(pf.literals, literal)
		}
		pf.literalRules[literal] = append(pf.literalRules[literal], rule)
	}

	if len(pf.literals) > 0 {
		pf.matcher = ahocorasick.NewStringMatcher(pf.literals)
	}

	return pf
}

// Literal returns the longest wildcard-free fragment of a class pattern.
// Any class matching the pattern contains it.
func Literal(classPattern string) string {
	longest := ""
	for _, part := range strings.Split(classPattern, types.Wildcard) {
		if len(part) > len(longest) {
			longest = part
		}
	}
	return longest
}

// Candidates returns the rules that might select methods of className:
// rules whose literal occurs in the name plus rules without a literal.
// The result keeps no particular order beyond literal-free rules first.
func (pf *Prefilter) Candidates(className string) []*types.MethodConfig {
	result := make([]*types.MethodConfig, 0, len(pf.noLiteralRules))
	result = append(result, pf.noLiteralRules...)

	if pf.matcher == nil {
		return result
	}

	for _, hit := range pf.matcher.MatchThreadSafe([]byte(className)) {
		result = append(result, pf.literalRules[pf.literals[hit]]...)
	}
	return result
}

// Len returns the number of rules the prefilter was built from.
func (pf *Prefilter) Len() int {
	n := len(pf.noLiteralRules)
	for _, rules := range pf.literalRules {
		n += len(rules)
	}
	return n
}
