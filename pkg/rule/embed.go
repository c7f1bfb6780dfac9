package rule

import "embed"

// builtinPresetsFS embeds the built-in configuration presets.
//
//go:embed presets/*.yml
var builtinPresetsFS embed.FS
