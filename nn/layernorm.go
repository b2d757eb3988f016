// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"
	"math"

	"github.com/textkit-ml/textkit/tensor"
)

// LayerNorm implements layer normalization over the last dimension.
//
// For each row x: y = (x - mean(x)) / sqrt(var(x) + eps) * gamma + beta
//
// Gamma is initialized to ones and beta to zeros, making the layer an
// identity transform (up to normalization) at initialization.
type LayerNorm struct {
	dim   int
	eps   float32
	gamma *Parameter // [dim]
	beta  *Parameter // [dim]
}

// NewLayerNorm creates a LayerNorm over vectors of the given dimension.
func NewLayerNorm(dim int) *LayerNorm {
	return &LayerNorm{
		dim:   dim,
		eps:   1e-5,
		gamma: NewParameter("weight", Ones(tensor.Shape{dim})),
		beta:  NewParameter("bias", Zeros(tensor.Shape{dim})),
	}
}

// Forward normalizes each row of a [n, dim] input.
func (ln *LayerNorm) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != ln.dim {
		panic(fmt.Sprintf("LayerNorm.Forward: expected [n, %d] input, got shape %v", ln.dim, shape))
	}

	out, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}

	g := ln.gamma.Tensor()
	b := ln.beta.Tensor()
	for i := 0; i < shape[0]; i++ {
		var mean float32
		for j := 0; j < ln.dim; j++ {
			mean += input.At(i*ln.dim + j)
		}
		mean /= float32(ln.dim)

		var variance float32
		for j := 0; j < ln.dim; j++ {
			d := input.At(i*ln.dim+j) - mean
			variance += d * d
		}
		variance /= float32(ln.dim)

		inv := 1 / float32(math.Sqrt(float64(variance+ln.eps)))
		for j := 0; j < ln.dim; j++ {
			v := (input.At(i*ln.dim+j) - mean) * inv
			out.Set(i*ln.dim+j, v*g.At(j)+b.At(j))
		}
	}
	return out
}

// Dim returns the normalized dimension.
func (ln *LayerNorm) Dim() int {
	return ln.dim
}

// Parameters returns the trainable parameters of this layer.
func (ln *LayerNorm) Parameters() []*Parameter {
	return []*Parameter{ln.gamma, ln.beta}
}

// StateDict returns a map of parameter names to raw tensors.
func (ln *LayerNorm) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": ln.gamma.Tensor(),
		"bias":   ln.beta.Tensor(),
	}
}

// LoadStateDict loads parameters from a state dictionary.
func (ln *LayerNorm) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	weight, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("missing weight in state dict")
	}
	if err := ln.gamma.Tensor().CopyFrom(weight); err != nil {
		return fmt.Errorf("weight: %w", err)
	}

	bias, ok := stateDict["bias"]
	if !ok {
		return fmt.Errorf("missing bias in state dict")
	}
	if err := ln.beta.Tensor().CopyFrom(bias); err != nil {
		return fmt.Errorf("bias: %w", err)
	}
	return nil
}
