// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the module and layer primitives that pretrained
// models are assembled from.
//
// A Module exposes its trainable state through Parameters and a
// dot-qualified StateDict, which is the contract the pretrained package
// builds its loading and saving protocol on. The layers included here
// (Linear, Embedding, LayerNorm) run plain float32 math on the CPU;
// they exist so model architectures are concrete, not to be fast.
package nn
