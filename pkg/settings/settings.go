// Package settings loads CLI settings from defaults, a TOML file and
// FIERIX_ environment variables, in that order of precedence.
package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "fierix.toml"

// EnvPrefix prefixes environment overrides. The first underscore after the
// prefix separates the section: FIERIX_SCAN_MAX_FILE_SIZE sets
// scan.max_file_size.
const EnvPrefix = "FIERIX_"

// Settings are the CLI defaults.
type Settings struct {
	// Rules is the rule configuration file (YAML).
	Rules string `koanf:"rules"`
	// Presets are built-in presets merged into the configuration.
	Presets []string `koanf:"presets"`
	// Database is the scan result store.
	Database string `koanf:"database"`

	Scan   ScanSettings   `koanf:"scan"`
	Output OutputSettings `koanf:"output"`
}

// ScanSettings configure class file enumeration.
type ScanSettings struct {
	MaxFileSize      int64    `koanf:"max_file_size"`
	IncludeHidden    bool     `koanf:"include_hidden"`
	Incremental      bool     `koanf:"incremental"`
	IncludeSynthetic bool     `koanf:"include_synthetic"`
	SkipArchives     bool     `koanf:"skip_archives"`
	Include          []string `koanf:"include"`
	Workers          int      `koanf:"workers"`
}

// OutputSettings configure rendering.
type OutputSettings struct {
	Format string `koanf:"format"` // human or json
	Color  string `koanf:"color"`  // auto, always or never
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rules":                  "",
		"presets":                []string{},
		"database":               "fierix.db",
		"scan.max_file_size":     int64(10 * 1024 * 1024),
		"scan.include_hidden":    false,
		"scan.incremental":       false,
		"scan.include_synthetic": false,
		"scan.skip_archives":     false,
		"scan.include":           []string{},
		"scan.workers":           0,
		"output.format":          "human",
		"output.color":           "auto",
	}
}

// Default returns the built-in settings, ignoring files and environment.
func Default() *Settings {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		panic(err)
	}
	s, err := unmarshal(k)
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads settings. path names a TOML file that must exist; an empty
// path reads DefaultFile when present. Environment variables override both.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Settings file
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
		}
	}

	// 3. Environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	s, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func unmarshal(k *koanf.Koanf) (*Settings, error) {
	var s Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &s,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &s, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &s, nil
}

// Validate checks enumerated values.
func (s *Settings) Validate() error {
	switch s.Output.Format {
	case "human", "json":
	default:
		return fmt.Errorf("invalid output.format %q (want human or json)", s.Output.Format)
	}
	switch s.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid output.color %q (want auto, always or never)", s.Output.Color)
	}
	if s.Scan.MaxFileSize < 0 {
		return fmt.Errorf("scan.max_file_size must not be negative")
	}
	return nil
}
