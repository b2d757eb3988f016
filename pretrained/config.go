// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"encoding/json"
	"fmt"
	"os"
)

// Reserved configuration keys.
const (
	// KeyInitArgs holds extra positional constructor values beyond the
	// declared parameters, in order.
	KeyInitArgs = "init_args"

	// KeyInitClass names the model class a configuration was captured
	// for.
	KeyInitClass = "init_class"
)

// Config is a captured init configuration: a mapping from constructor
// parameter names to the values used to build a model instance.
//
// Besides declared parameter names it may contain the reserved keys
// KeyInitArgs and KeyInitClass. Values loaded from JSON carry JSON types
// (numbers are float64); use the typed accessors in build functions.
type Config map[string]any

// InitClass returns the class name the configuration was captured for,
// or "" if absent.
func (c Config) InitClass() string {
	if v, ok := c[KeyInitClass].(string); ok {
		return v
	}
	return ""
}

// InitArgs returns the extra positional values, or nil if absent.
func (c Config) InitArgs() []any {
	if v, ok := c[KeyInitArgs].([]any); ok {
		return v
	}
	return nil
}

// Int returns the configuration value at key as an int.
//
// JSON decoding produces float64 numbers, so both exact integers stored
// as float64 and native ints are accepted.
func (c Config) Int(key string) (int, error) {
	v, ok := c[key]
	if !ok {
		return 0, fmt.Errorf("config is missing %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("config value %q is not an integer: %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("config value %q has type %T, want integer", key, v)
	}
}

// String returns the configuration value at key as a string.
func (c Config) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", fmt.Errorf("config is missing %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config value %q has type %T, want string", key, v)
	}
	return s, nil
}

// Clone returns a deep copy of the configuration.
//
// Nested maps and slices are copied recursively; live model values (as
// appear in a freshly captured config of a derived model) are shared by
// reference.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Config:
		return t.Clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// asConfig converts nested configuration values (either Config or the
// plain maps produced by JSON decoding) to Config.
func asConfig(v any) (Config, bool) {
	switch t := v.(type) {
	case Config:
		return t, true
	case map[string]any:
		return Config(t), true
	default:
		return nil, false
	}
}

// loadConfigFile reads a JSON model configuration from disk.
func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: resolved artifact path
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config %s: %w", path, err)
	}
	return cfg, nil
}
