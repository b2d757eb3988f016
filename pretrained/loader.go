// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/textkit-ml/textkit/internal/serialization"
	"github.com/textkit-ml/textkit/nn"
	"github.com/textkit-ml/textkit/tensor"
)

// LoadReport records the parameter paths a weight load could not align.
// Partial loads are accepted by design, so a report never implies
// failure: missing parameters keep their initialization values and
// unexpected checkpoint entries are skipped.
type LoadReport struct {
	// Missing lists live model parameter paths absent from the
	// checkpoint.
	Missing []string

	// Unexpected lists checkpoint keys not used by the model.
	Unexpected []string
}

// ConfigMismatchError reports a saved configuration whose structure
// does not fit the requested class, such as a derived configuration
// with zero or several nested base-model configurations.
type ConfigMismatchError struct {
	ClassName string
	Reason    string
}

// Error implements the error interface.
func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("%s: configuration mismatch: %s", e.ClassName, e.Reason)
}

// FromPretrained instantiates a model of this class from a registered
// pretrained name or a local directory path.
//
// args, when non-empty, replace the loaded positional arguments
// entirely. kwargs override loaded keyword arguments by name: keys
// declared by the base model class apply to the base constructor, keys
// declared by this class apply to the derived constructor.
//
// The saved configuration may have been captured for this class or for
// the arch's base model class; either way the base encoder is
// constructed first and, for a derived target class, substituted into
// the argument position the configuration embedded it at (first
// positional argument when it embedded none). Weights are then loaded
// from the arch's primary resource with prefix-aware partial matching;
// missing and unexpected parameters are logged, never fatal.
func (cls *Class) FromPretrained(nameOrPath string, args []any, kwargs map[string]any) (Model, error) {
	baseClass := cls.Arch.BaseClass()
	if baseClass == nil {
		return nil, fmt.Errorf("%s: architecture %q has no registered base model class", cls.Name, cls.Arch.Name)
	}

	resolved, initCfg, err := cls.resolveResources(nameOrPath)
	if err != nil {
		return nil, err
	}

	// A config file saved alongside the weights takes precedence over
	// the registry configuration.
	if cfgPath, ok := resolved.Get(configFileResource); ok {
		resolved.Delete(configFileResource)
		initCfg, err = loadConfigFile(cfgPath)
		if err != nil {
			return nil, err
		}
	}
	if initCfg == nil {
		initCfg = Config{}
	}

	model, err := cls.buildFromConfig(initCfg, args, kwargs)
	if err != nil {
		return nil, err
	}

	weights := resolved.Oldest()
	if weights == nil {
		return nil, fmt.Errorf("%s: no weight resource resolved for %q", cls.Name, nameOrPath)
	}
	report, err := LoadWeights(model, weights.Value)
	if err != nil {
		return nil, err
	}
	if len(report.Missing) > 0 {
		logrus.WithField("model", cls.Name).Infof("weights not initialized from pretrained model: %v", report.Missing)
	}
	if len(report.Unexpected) > 0 {
		logrus.WithField("model", cls.Name).Infof("weights from pretrained model not used: %v", report.Unexpected)
	}

	return model, nil
}

// buildFromConfig splits a loaded init configuration between the base
// and derived constructors and builds the requested class.
func (cls *Class) buildFromConfig(initCfg Config, args []any, kwargs map[string]any) (Model, error) {
	baseClass := cls.Arch.BaseClass()

	initCfg = initCfg.Clone()
	initArgs := initCfg.InitArgs()
	delete(initCfg, KeyInitArgs)
	initClass := initCfg.InitClass()
	delete(initCfg, KeyInitClass)
	if initClass == "" {
		initClass = baseClass.Name
	}

	var (
		baseArgs      []any
		baseKwargs    map[string]any
		derivedArgs   []any
		derivedKwargs map[string]any
		markerIndex   = -1
		markerKey     string
	)

	if initClass == baseClass.Name {
		// The whole configuration belongs to the base model.
		baseArgs = initArgs
		baseKwargs = initCfg
		derivedKwargs = map[string]any{}
	} else {
		// The configuration belongs to a derived class; exactly one of
		// its values must be the embedded base model configuration.
		derivedArgs = initArgs
		derivedKwargs = initCfg

		var baseCfg Config
		markers := 0
		for i, arg := range derivedArgs {
			if nested, ok := asConfig(arg); ok && nested.InitClass() != "" {
				markers++
				if markers == 1 {
					markerIndex = i
					baseCfg = nested
				}
			}
		}
		for _, name := range sortedKeys(derivedKwargs) {
			if nested, ok := asConfig(derivedKwargs[name]); ok && nested.InitClass() != "" {
				markers++
				if markers == 1 && markerIndex < 0 {
					markerKey = name
					baseCfg = nested
				}
			}
		}
		switch {
		case markers == 0:
			return nil, &ConfigMismatchError{cls.Name, "no nested base model configuration found"}
		case markers > 1:
			return nil, &ConfigMismatchError{cls.Name, "multiple nested base model configurations found"}
		}
		if ic := baseCfg.InitClass(); ic != baseClass.Name {
			return nil, &ConfigMismatchError{cls.Name,
				fmt.Sprintf("pretrained base model should be %s, got %s", baseClass.Name, ic)}
		}

		baseCfg = baseCfg.Clone()
		delete(baseCfg, KeyInitClass)
		baseArgs = baseCfg.InitArgs()
		delete(baseCfg, KeyInitArgs)
		baseKwargs = baseCfg
	}

	if cls == baseClass {
		// Explicit positional arguments replace the loaded ones
		// entirely; keyword arguments merge over them.
		if len(args) > 0 {
			baseArgs = args
		}
		for name, value := range kwargs {
			baseKwargs[name] = value
		}
		return New(cls, baseArgs, baseKwargs)
	}

	for name, value := range kwargs {
		if baseClass.Params.Has(name) {
			baseKwargs[name] = value
		}
	}
	baseModel, err := New(baseClass, baseArgs, baseKwargs)
	if err != nil {
		return nil, err
	}

	switch {
	case markerIndex >= 0:
		derivedArgs[markerIndex] = baseModel
	case markerKey != "":
		derivedKwargs[markerKey] = baseModel
	default:
		// The configuration embedded no base model; assume it goes in
		// the first positional slot.
		derivedArgs = []any{baseModel}
	}
	if len(args) > 0 {
		derivedArgs = args
	}
	for name, value := range kwargs {
		if cls.Params.Has(name) {
			derivedKwargs[name] = value
		}
	}
	return New(cls, derivedArgs, derivedKwargs)
}

// LoadWeights loads a serialized state dictionary into a live model
// with prefix-aware partial matching.
//
// Three cases are distinguished by comparing the checkpoint's key
// prefixes with the arch's base prefix:
//
//   - the model is a bare base encoder but the checkpoint keys carry
//     the base prefix: the prefix is stripped before loading, and keys
//     without it are reported as unexpected;
//   - the model nests a base encoder but no checkpoint key carries the
//     prefix: the checkpoint loads into the nested base only, and every
//     head parameter is reported as missing;
//   - otherwise the checkpoint loads into the full model as-is.
//
// Mismatched keys never fail the load; shape or dtype conflicts on
// matching keys do.
func LoadWeights(m Model, path string) (*LoadReport, error) {
	if !strings.HasSuffix(path, serialization.FileSuffix) {
		return nil, fmt.Errorf("%w: %s", serialization.ErrWrongSuffix, path)
	}

	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	state, err := reader.ReadStateDict()
	if err != nil {
		return nil, err
	}

	prefix := m.Class().Arch.BasePrefix + "."
	prefixed := false
	for key := range state {
		if strings.HasPrefix(key, prefix) {
			prefixed = true
			break
		}
	}
	derived := m.BaseModel() != m

	report := &LoadReport{}
	var target nn.Module = m
	toLoad := state

	switch {
	case !derived && prefixed:
		// Base-only model fed a checkpoint saved from a derived model:
		// strip the base prefix and skip everything else.
		stripped := make(map[string]*tensor.RawTensor, len(state))
		for key, raw := range state {
			if strings.HasPrefix(key, prefix) {
				stripped[key[len(prefix):]] = raw
			} else {
				report.Unexpected = append(report.Unexpected, key)
			}
		}
		toLoad = stripped
	case derived && !prefixed:
		// Base-only checkpoint fed to a derived model: load into the
		// nested base, leave head parameters at initialization.
		target = m.BaseModel()
		for _, key := range sortedKeys(m.StateDict()) {
			if !strings.HasPrefix(key, prefix) {
				report.Missing = append(report.Missing, key)
			}
		}
	}

	missing, unexpected, err := applyState(target, toLoad)
	if err != nil {
		return nil, err
	}
	report.Missing = append(report.Missing, missing...)
	report.Unexpected = append(report.Unexpected, unexpected...)
	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	return report, nil
}

// applyState copies aligned entries of state into the live parameters
// of target, returning the keys that did not align on either side.
func applyState(target nn.Module, state map[string]*tensor.RawTensor) (missing, unexpected []string, err error) {
	live := target.StateDict()
	for _, name := range sortedKeys(live) {
		raw, ok := state[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if err := live[name].CopyFrom(raw); err != nil {
			return nil, nil, fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	for _, name := range sortedKeys(state) {
		if _, ok := live[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	return missing, unexpected, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
