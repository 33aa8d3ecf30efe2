package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
	TOML Format = "toml"
)

// FormatOf detects the format from a file extension
// (.yaml, .yml, .json, .toml; case-insensitive).
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension: %q", ext)
	}
}

// FromFile loads configuration from a file, auto-detecting format by extension.
func FromFile(path string) (Config, error) {
	var m map[string]any
	if err := DecodeFile(path, &m); err != nil {
		return Config{}, err
	}
	return New(m), nil
}

// DecodeFile decodes a file into v, auto-detecting format by extension.
// v is typically a pointer to a struct carrying yaml, json and toml tags.
func DecodeFile(path string, v any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return Decode(format, data, v)
}

// Decode parses data in the given format into v.
// Unknown struct fields are an error in every format. An empty YAML
// document leaves v untouched.
func Decode(format Format, data []byte, v any) error {
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse yaml: %w", err)
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), v)
		if err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse toml: unknown keys %v", undecoded)
		}
	default:
		return fmt.Errorf("unsupported config format: %q", format)
	}
	return nil
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	return fromBytes(YAML, data)
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	return fromBytes(JSON, data)
}

// FromTOML parses TOML data into a Config.
func FromTOML(data []byte) (Config, error) {
	return fromBytes(TOML, data)
}

func fromBytes(format Format, data []byte) (Config, error) {
	var m map[string]any
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil), nil
	}
	if err := Decode(format, data, &m); err != nil {
		return Config{}, err
	}
	return New(m), nil
}
