// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the raw tensor value type carried by model
// state dictionaries.
//
// TextKit is a model lifecycle library, not a compute engine: a RawTensor
// is a contiguous byte buffer plus shape and dtype, enough to initialize,
// serialize, and copy model weights. Execution backends (BLAS, GPU) are
// external collaborators and deliberately absent here.
package tensor
