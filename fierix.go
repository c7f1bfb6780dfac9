// Package fierix decides which JVM methods are selected for profiling.
//
// Rules use the notation <class>.<method>(<param>[+], ...)[+] where class
// and method may contain '*' wildcards, a '+' after a parameter marks it for
// capture and a '+' after the parameter list saves the return value.
//
// # Basic Usage
//
// Build a selector from rules and ask about individual methods:
//
//	selector, err := fierix.NewSelector(
//	    fierix.WithRules("com.acme.*.*(*)"),
//	    fierix.WithPresets("accessors"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
////
//	selector.IsMethodInstrumented("com.acme.OrderService", "place", []string{"String", "int"})
//
// # Scanning Compiled Code
//
// Scan reports every selected method of class files, jars or directories:
//
//	matches, stats, err := selector.Scan(ctx, "build/classes", "lib/acme.jar")
//	for _, m := range matches {
//	    fmt.Printf("%s via %s\n", m.Method, m.Rule)
//	}
package fierix

import (
	"context"
	"fmt"
	"sync"

	"github.com/korniloval/fierix/pkg/descriptor"
	"github.com/korniloval/fierix/pkg/enum"
	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/scanner"
	"github.com/korniloval/fierix/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/korniloval/fierix" without subpackages.
type (
	// MethodConfig is one parsed rule.
	MethodConfig = types.MethodConfig

	// Parameter is one parameter pattern of a rule.
	Parameter = types.Parameter

	// Configuration holds including and excluding rules.
	Configuration = rule.Configuration

	// Match is a method selected in compiled code.
	Match = types.Match

	// MethodRef identifies a method found in compiled code.
	MethodRef = types.MethodRef

	// Stats summarizes a scan.
	Stats = scanner.Stats
)

// Selector answers which methods a configuration selects.
type Selector struct {
	configuration *rule.Configuration
	config        *selectorConfig
	mu            sync.Mutex // serializes scans
}

type selectorConfig struct {
	configuration    *rule.Configuration
	rules            []string
	excludes         []string
	presets          []string
	includeSynthetic bool
}

// Option configures a Selector.
type Option func(*selectorConfig)

// WithConfiguration starts from an existing configuration. The selector
// shares it, so later edits apply to later queries.
func WithConfiguration(c *Configuration) Option {
	return func(cfg *selectorConfig) {
		cfg.configuration = c
	}
}

// WithRules adds including rules in rule notation.
func WithRules(rules ...string) Option {
	return func(cfg *selectorConfig) {
		cfg.rules = append(cfg.rules, rules...)
	}
}

// WithExcludes adds excluding rules in rule notation.
func WithExcludes(rules ...string) Option {
	return func(cfg *selectorConfig) {
		cfg.excludes = append(cfg.excludes, rules...)
	}
}

// WithPresets merges built-in presets such as "jdk" or "accessors".
func WithPresets(names ...string) Option {
	return func(cfg *selectorConfig) {
		cfg.presets = append(cfg.presets, names...)
	}
}

// WithSynthetic also reports compiler generated methods when scanning.
func WithSynthetic() Option {
	return func(cfg *selectorConfig) {
		cfg.includeSynthetic = true
	}
}

// NewSelector creates a selector. Rules given as text must all parse.
func NewSelector(opts ...Option) (*Selector, error) {
	config := &selectorConfig{}
	for _, opt := range opts {
		opt(config)
	}

	c := config.configuration
	if c == nil {
		c = rule.NewConfiguration(nil, nil)
	}

	including, err := parseRules(config.rules)
	if err != nil {
		return nil, err
	}
	excluding, err := parseRules(config.excludes)
	if err != nil {
		return nil, err
	}
	c.Include(including...)
	c.Exclude(excluding...)

	loader := rule.NewLoader()
	for _, name := range config.presets {
		p, err := loader.LoadPreset(name)
		if err != nil {
			return nil, err
		}
		c.Merge(p.Configuration)
	}

	return &Selector{configuration: c, config: config}, nil
}

// Configuration returns the live configuration of the selector.
func (s *Selector) Configuration() *Configuration {
	return s.configuration
}

// IsMethodInstrumented reports whether a method is selected. A nil params
// slice means the parameter types are unknown.
func (s *Selector) IsMethodInstrumented(className, methodName string, params []string) bool {
	return s.configuration.IsMethodInstrumented(className, methodName, params)
}

// IsDescriptorInstrumented is IsMethodInstrumented for a JVM method
// descriptor such as (Ljava/lang/String;I)V. Object parameters are matched
// by their qualified names.
func (s *Selector) IsDescriptorInstrumented(className, methodName, desc string) (bool, error) {
	params, _, err := descriptor.DecodeMethodQualified(desc)
	if err != nil {
		return false, err
	}
	return s.IsMethodInstrumented(className, methodName, params), nil
}

// Scan reads class files from each path (class file, archive or directory)
// and returns the selected methods ordered by class and method.
func (s *Selector) Scan(ctx context.Context, paths ...string) ([]*Match, *Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := scanner.New(scanner.Config{
		Configuration:    s.configuration,
		IncludeSynthetic: s.config.includeSynthetic,
	})
	if err != nil {
		return nil, nil, err
	}
	defer sc.Close()

	enumerators := make([]enum.Enumerator, 0, len(paths))
	for _, p := range paths {
		enumerators = append(enumerators, enum.NewFilesystemEnumerator(enum.Config{Root: p}))
	}

	stats, err := sc.Scan(ctx, enum.NewCombinedEnumerator(enumerators...))
	if err != nil {
		return nil, stats, err
	}

	matches, err := sc.Store().GetAllMatches()
	if err != nil {
		return nil, stats, fmt.Errorf("reading matches: %w", err)
	}
	return matches, stats, nil
}

// ParseRule parses one rule in rule notation.
func ParseRule(text string) (*MethodConfig, error) {
	return types.ParseMethodConfig(text)
}

// LoadConfigurationFile loads a YAML rule configuration.
func LoadConfigurationFile(path string) (*Configuration, error) {
	return rule.NewLoader().LoadConfigurationFile(path)
}

// DecodeDescriptor decodes a JVM descriptor parameter block such as
// Ljava/lang/String;I[B into [String int byte[]].
func DecodeDescriptor(desc string) ([]string, error) {
	return descriptor.Decode(desc)
}

func parseRules(texts []string) ([]*MethodConfig, error) {
	configs := make([]*MethodConfig, 0, len(texts))
	for _, text := range texts {
		mc, err := types.ParseMethodConfig(text)
		if err != nil {
			return nil, fmt.Errorf("parsing rule %q: %w", text, err)
		}
		configs = append(configs, mc)
	}
	return configs, nil
}
