package config

import (
	"maps"
	"time"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods return default values if the key is missing
// or the value cannot be converted to the requested type. Conversions
// follow the As* functions.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	return get(c, key, defaultVal, AsString)
}

// Duration returns the duration value for key, or defaultVal.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	return get(c, key, defaultVal, AsDuration)
}

// Bool returns the boolean value for key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	return get(c, key, defaultVal, AsBool)
}

// Int returns the integer value for key, or defaultVal.
func (c Config) Int(key string, defaultVal int) int {
	return get(c, key, defaultVal, AsInt)
}

// Float returns the float64 value for key, or defaultVal.
func (c Config) Float(key string, defaultVal float64) float64 {
	return get(c, key, defaultVal, AsFloat)
}

// Bytes returns the byte slice for key, or defaultVal.
func (c Config) Bytes(key string, defaultVal []byte) []byte {
	return get(c, key, defaultVal, AsBytes)
}

// StringSlice returns the string slice for key, or defaultVal if missing or
// if any element is not a string.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// Sub returns the nested map under key as a Config. A missing or non-map
// value yields an empty Config.
func (c Config) Sub(key string) Config {
	if m, ok := c.data[key].(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// Any returns the raw value for key, or defaultVal if missing.
func (c Config) Any(key string, defaultVal any) any {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	return v
}

// Has returns true if the key exists in the config.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Len returns the number of top-level keys.
func (c Config) Len() int { return len(c.data) }

// Raw returns a shallow copy of the underlying map.
func (c Config) Raw() map[string]any {
	return maps.Clone(c.data)
}

func get[T any](c Config, key string, defaultVal T, conv func(any) (T, error)) T {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	out, err := conv(v)
	if err != nil {
		return defaultVal
	}
	return out
}
