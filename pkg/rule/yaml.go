package rule

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlConfiguration is the on-disk form of a Configuration:
//
//	name: web
//	include:
//	  - com.acme.web.*.handle(*)
//	  - rule: com.acme.legacy.*.*(*)
//	    enabled: false
//	exclude:
//	  - com.acme.web.Health.*(*)
//	disabled:
//	  - com.acme.web.Old.*(*)
//
// Rules under disabled are loaded as including rules with enabled=false.
type yamlConfiguration struct {
	Name        string          `yaml:"name,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Include     []yamlRuleEntry `yaml:"include,omitempty"`
	Exclude     []yamlRuleEntry `yaml:"exclude,omitempty"`
	Disabled    []string        `yaml:"disabled,omitempty"`
}

// yamlRuleEntry is either a bare rule notation scalar or a mapping with an
// explicit enabled flag.
type yamlRuleEntry struct {
	Rule    string `yaml:"rule"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// UnmarshalYAML accepts both entry forms.
func (e *yamlRuleEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Rule = node.Value
		e.Enabled = nil
		return nil
	case yaml.MappingNode:
		type plain yamlRuleEntry
		return node.Decode((*plain)(e))
	default:
		return fmt.Errorf("line %d: rule entry must be a string or a mapping", node.Line)
	}
}

// MarshalYAML writes enabled entries as bare scalars.
func (e yamlRuleEntry) MarshalYAML() (interface{}, error) {
	if e.Enabled == nil || *e.Enabled {
		return e.Rule, nil
	}
	type plain yamlRuleEntry
	return plain(e), nil
}

func (e yamlRuleEntry) enabled() bool {
	return e.Enabled == nil || *e.Enabled
}
