// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math"
	"math/rand"

	"github.com/textkit-ml/textkit/tensor"
)

// Xavier returns a Float32 tensor initialized from the Glorot uniform
// distribution U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
//
// This initialization helps maintain variance of activations across
// layers.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.RawTensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	for i := 0; i < raw.NumElements(); i++ {
		//nolint:gosec // math/rand is appropriate for ML weight initialization
		raw.Set(i, float32((rand.Float64()*2.0-1.0)*bound))
	}
	return raw
}

// Zeros returns a zero-filled Float32 tensor.
//
// This is commonly used for bias initialization.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	return raw
}

// Ones returns a Float32 tensor filled with ones.
func Ones(shape tensor.Shape) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	for i := 0; i < raw.NumElements(); i++ {
		raw.Set(i, 1)
	}
	return raw
}

// Randn returns a Float32 tensor with values drawn from N(0, 1).
func Randn(shape tensor.Shape) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	for i := 0; i < raw.NumElements(); i++ {
		//nolint:gosec // math/rand is appropriate for ML weight initialization
		raw.Set(i, float32(rand.NormFloat64()))
	}
	return raw
}
