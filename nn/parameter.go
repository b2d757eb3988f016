// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/textkit-ml/textkit/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters wrap the raw tensors that hold weights and biases. Loading
// a checkpoint copies data into the wrapped tensor in place, so every
// module sharing the parameter observes the new values.
type Parameter struct {
	name string
	raw  *tensor.RawTensor
}

// NewParameter creates a new trainable parameter.
//
// The name is local to the owning layer (e.g. "weight", "bias"); the
// owning module qualifies it when exporting its state dictionary.
func NewParameter(name string, raw *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, raw: raw}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter's raw tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.raw
}
