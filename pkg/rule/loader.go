package rule

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/korniloval/fierix/pkg/logging"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Preset is a named configuration shipped with fierix.
type Preset struct {
	Name          string
	Description   string
	Configuration *Configuration
}

// Loader handles loading configurations from YAML.
type Loader struct {
	fs     fs.FS // filesystem holding presets/*.yml
	logger zerolog.Logger
}

// NewLoader creates a loader with the built-in presets.
func NewLoader() *Loader {
	return NewLoaderWithFS(builtinPresetsFS)
}

// NewLoaderWithFS creates a loader reading presets from a custom filesystem.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		fs:     fsys,
		logger: logging.GetLogger("rule.loader"),
	}
}

// LoadConfiguration parses a configuration from YAML bytes. Every rule must
// parse; the first failure is returned with its list and position.
func (l *Loader) LoadConfiguration(data []byte) (*Configuration, error) {
	yc, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	return l.convert(yc)
}

// LoadConfigurationFile loads a configuration from a YAML file.
func (l *Loader) LoadConfigurationFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	c, err := l.LoadConfiguration(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	inc, exc := c.Len()
	l.logger.Debug().
		Str("path", path).
		Int("including", inc).
		Int("excluding", exc).
		Msg("Loaded configuration")
	return c, nil
}

// LoadPreset loads one built-in preset by name.
func (l *Loader) LoadPreset(name string) (*Preset, error) {
	data, err := fs.ReadFile(l.fs, path.Join("presets", name+".yml"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q: %w", name, err)
	}
	return l.loadPreset(name, data)
}

// LoadBuiltinPresets loads every preset, sorted by name.
func (l *Loader) LoadBuiltinPresets() ([]*Preset, error) {
	var presets []*Preset

	err := fs.WalkDir(l.fs, "presets", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(l.fs, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		preset, err := l.loadPreset(strings.TrimSuffix(path.Base(p), ".yml"), data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}
		presets = append(presets, preset)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Name < presets[j].Name
	})
	return presets, nil
}

// MarshalConfiguration renders c as YAML. Disabled including rules move to
// the disabled list; disabled excluding rules keep an explicit enabled flag.
func MarshalConfiguration(c *Configuration) ([]byte, error) {
	s := c.Snapshot()
	yc := yamlConfiguration{
		Exclude: toEntries(s.Excluding),
	}
	for _, mc := range s.Including {
		if mc.Enabled() {
			yc.Include = append(yc.Include, yamlRuleEntry{Rule: mc.String()})
		} else {
			yc.Disabled = append(yc.Disabled, mc.String())
		}
	}
	data, err := yaml.Marshal(&yc)
	if err != nil {
		return nil, fmt.Errorf("marshaling configuration: %w", err)
	}
	return data, nil
}

// SaveConfigurationFile writes c as YAML to path.
func SaveConfigurationFile(path string, c *Configuration) error {
	data, err := MarshalConfiguration(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseYAML(data []byte) (*yamlConfiguration, error) {
	var yc yamlConfiguration
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &yc, nil
}

func (l *Loader) loadPreset(name string, data []byte) (*Preset, error) {
	yc, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	c, err := l.convert(yc)
	if err != nil {
		return nil, err
	}
	if yc.Name != "" {
		name = yc.Name
	}
	return &Preset{Name: name, Description: yc.Description, Configuration: c}, nil
}

func (l *Loader) convert(yc *yamlConfiguration) (*Configuration, error) {
	including, err := fromEntries("include", yc.Include)
	if err != nil {
		return nil, err
	}
	disabled := make([]yamlRuleEntry, len(yc.Disabled))
	for i, text := range yc.Disabled {
		off := false
		disabled[i] = yamlRuleEntry{Rule: text, Enabled: &off}
	}
	more, err := fromEntries("disabled", disabled)
	if err != nil {
		return nil, err
	}
	including = append(including, more...)
	excluding, err := fromEntries("exclude", yc.Exclude)
	if err != nil {
		return nil, err
	}
	return NewConfiguration(including, excluding), nil
}

func fromEntries(list string, entries []yamlRuleEntry) ([]*types.MethodConfig, error) {
	configs := make([]*types.MethodConfig, 0, len(entries))
	for i, e := range entries {
		mc, err := types.ParseMethodConfig(e.Rule)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", list, i, err)
		}
		if !e.enabled() {
			mc, err = mc.Derive(func(b *types.Builder) {
				b.SetEnabled(false)
			})
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", list, i, err)
			}
		}
		configs = append(configs, mc)
	}
	return configs, nil
}

func toEntries(configs []*types.MethodConfig) []yamlRuleEntry {
	entries := make([]yamlRuleEntry, 0, len(configs))
	for _, mc := range configs {
		e := yamlRuleEntry{Rule: mc.String()}
		if !mc.Enabled() {
			disabled := false
			e.Enabled = &disabled
		}
		entries = append(entries, e)
	}
	return entries
}
