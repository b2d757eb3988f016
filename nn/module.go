// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/textkit-ml/textkit/tensor"
)

// Module is the base interface for all neural network components.
//
// Every module must implement:
//   - Parameters: Return all trainable parameters
//   - StateDict: Export parameters for serialization
//   - LoadStateDict: Import parameters from serialization
//
// State dictionary keys are dot-qualified parameter paths. A module that
// nests other modules prefixes their keys with the field name, so a
// classifier wrapping an encoder yields keys such as
// "encoder.embed.weight" next to its own "classifier.weight".
//
// Forward computation is deliberately not part of this interface: layers
// expose typed Forward methods instead, since input types differ between
// layers (Embedding consumes token IDs, Linear consumes activations).
type Module interface {
	// Parameters returns all trainable parameters of this module,
	// including nested module parameters.
	Parameters() []*Parameter

	// StateDict returns a map of dot-qualified parameter paths to raw
	// tensors. The returned tensors alias the live parameter storage.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads parameters from a state dictionary.
	//
	// Returns an error if a required parameter is missing or has a
	// mismatched shape or dtype.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Prefixed returns a copy of stateDict with every key prefixed by
// prefix and a dot. It is the helper composite modules use to namespace
// nested module state.
func Prefixed(prefix string, stateDict map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor, len(stateDict))
	for name, raw := range stateDict {
		out[prefix+"."+name] = raw
	}
	return out
}

// Unprefixed returns the subset of stateDict under prefix with the
// prefix and dot stripped from each key.
func Unprefixed(prefix string, stateDict map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if len(name) > len(prefix)+1 && name[:len(prefix)] == prefix && name[len(prefix)] == '.' {
			out[name[len(prefix)+1:]] = raw
		}
	}
	return out
}
