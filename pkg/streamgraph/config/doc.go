/*
Package config extracts typed values from loosely typed configuration.

Block parameters arrive as `any`: from Go code, from a YAML pipeline file
(integers decode as int), from JSON (every number is a float64) or from
TOML (integers are int64). The As* functions convert such values to one
Go type and return ErrConversion when they cannot:

	rate, err := config.AsFloat(value)       // 4800, 4800.0, int64(4800), "4800"
	burst, err := config.AsDuration(value)   // "20ms", 0.02 (seconds)
	vector, err := config.AsBytes(value)     // []any{0, 1, 2}, "raw", []byte

Config wraps a map[string]any and applies the same conversions, falling
back to a default when a key is missing or does not convert:

	cfg := config.New(map[string]any{"rate": 4800, "max_burst": "20ms"})
	rate := cfg.Float("rate", 1000)                        // 4800
	burst := cfg.Duration("max_burst", 20*time.Millisecond) // 20ms

# File Loading

FromFile and DecodeFile pick the format from the extension:
.yaml/.yml (gopkg.in/yaml.v3), .json (encoding/json) and .toml
(github.com/BurntSushi/toml). DecodeFile decodes into a struct and rejects
unknown fields.

Config is safe for concurrent reads.
*/
package config
