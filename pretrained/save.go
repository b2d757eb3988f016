// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/textkit-ml/textkit/internal/serialization"
)

// SaveConfig writes the model's init configuration to the arch's config
// file inside dir.
//
// Live model values captured in the configuration of a derived class
// (the nested base encoder, whether it arrived positionally or by
// keyword) are replaced by their own captured configurations, so the
// written file is plain JSON that FromPretrained can reconcile later.
func SaveConfig(m Model, dir string) error {
	data, err := json.MarshalIndent(serializableConfig(m.Config()), "", "  ")
	if err != nil {
		return fmt.Errorf("%s: failed to marshal config: %w", m.Class().Name, err)
	}

	path := filepath.Join(dir, m.Class().Arch.ConfigFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: model configs are not secrets
		return fmt.Errorf("%s: failed to write config: %w", m.Class().Name, err)
	}
	return nil
}

// serializableConfig substitutes nested model values with their own
// captured configurations, recursing into extra positional arguments.
func serializableConfig(cfg Config) Config {
	out := make(Config, len(cfg))
	for key, value := range cfg {
		out[key] = serializableValue(value)
	}
	return out
}

func serializableValue(v any) any {
	switch t := v.(type) {
	case Model:
		return serializableConfig(t.Config())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = serializableValue(e)
		}
		return out
	default:
		return v
	}
}

// Save writes the model's configuration and weights into dir, which
// must be an existing directory. The weights go to the arch's primary
// resource file; a model saved this way can be reloaded by passing dir
// to FromPretrained.
func Save(m Model, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("save dir %s is not available", dir)
	}

	if err := SaveConfig(m, dir); err != nil {
		return err
	}

	primary := m.Class().Arch.ResourceFiles.Oldest()
	if primary == nil {
		return fmt.Errorf("%s: architecture %q declares no resource files", m.Class().Name, m.Class().Arch.Name)
	}

	writer, err := serialization.NewWriter(filepath.Join(dir, primary.Value))
	if err != nil {
		return fmt.Errorf("%s: %w", m.Class().Name, err)
	}
	defer func() {
		_ = writer.Close()
	}()

	if err := writer.WriteStateDict(m.StateDict(), m.Class().Name, nil); err != nil {
		return fmt.Errorf("%s: failed to write weights: %w", m.Class().Name, err)
	}
	return writer.Close()
}
